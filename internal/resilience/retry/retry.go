// Package retry provides retry logic with exponential backoff and jitter.
// It helps handle transient failures gracefully by automatically retrying failed operations.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Config holds the configuration for retry logic.
//
// A Config is a plain value: nothing in this package mutates it, so one
// instance may be shared by any number of concurrent callers.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// The operation runs at most MaxRetries+1 times.
	MaxRetries int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries (applied before jitter)
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff
	Multiplier float64

	// JitterFraction randomizes each delay by ±JitterFraction (0.0 to 1.0)
	JitterFraction float64

	// RetryableStatusCodes overrides the default transient status set
	// (408, 429 and every 5xx). Nil keeps the default.
	RetryableStatusCodes []int
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// PlatformAPIConfig returns a retry configuration for JSON platform APIs
// (syndication, GitHub, Reddit, oEmbed). These answer quickly or not at all,
// so retries are short.
func PlatformAPIConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// WebScraperConfig returns a retry configuration optimized for generic web pages.
func WebScraperConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialDelay:   2 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

// NoRetryConfig returns a configuration that runs the operation exactly once.
func NoRetryConfig() Config {
	return Config{MaxRetries: 0, Multiplier: 1.0}
}

// Option customizes a single retry run.
type Option func(*options)

type options struct {
	onRetry func(attempt int, err error, delay time.Duration)
	random  func() float64
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

// WithOnRetry registers a callback invoked before each backoff sleep.
// attempt is the 1-based index of the attempt that just failed.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(o *options) { o.onRetry = fn }
}

// WithRand replaces the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(o *options) { o.random = fn }
}

// WithSleep replaces the backoff sleep. The function must honor ctx.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// WithLogger sets the logger used for retry events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) options {
	o := options{
		random: rand.Float64, // #nosec G404 -- jitter does not need cryptographic randomness
		sleep:  sleepContext,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithBackoff executes fn with exponential backoff retry logic.
// It retries only on retryable errors (network errors, 5xx, 429, 408).
func WithBackoff(ctx context.Context, cfg Config, fn func() error, opts ...Option) error {
	_, err := Do(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	}, opts...)
	return err
}

// Do executes fn up to cfg.MaxRetries+1 times and returns its first
// successful value.
//
// Permanent errors are returned immediately without sleeping. When every
// attempt fails with a transient error, the last error is returned as is.
// Cancelling ctx aborts a pending backoff sleep.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error), opts ...Option) (T, error) {
	o := newOptions(opts)

	var zero T
	attempts := cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}

		v, err := fn()
		if err == nil {
			if attempt > 0 {
				o.logger.Info("operation succeeded after retry",
					slog.Int("attempt", attempt+1))
			}
			return v, nil
		}
		lastErr = err

		if !cfg.IsRetryable(err) {
			o.logger.Debug("non-retryable error, aborting",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))
			return zero, err
		}

		if attempt == attempts-1 {
			break
		}

		delay := cfg.Delay(attempt, o.random)
		if hint := cfg.retryAfter(err); hint > delay {
			delay = hint
		}
		o.logger.Warn("operation failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		if o.onRetry != nil {
			o.onRetry(attempt+1, err, delay)
		}

		if err := o.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}
	}

	o.logger.Warn("max retry attempts exceeded",
		slog.Int("attempts", attempts),
		slog.Any("error", lastErr))
	return zero, lastErr
}

// BaseDelay returns the backoff delay before jitter for the given 0-based
// attempt: min(InitialDelay * Multiplier^attempt, MaxDelay).
func (c Config) BaseDelay(attempt int) time.Duration {
	mult := c.Multiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(c.InitialDelay) * math.Pow(mult, float64(attempt))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	return time.Duration(d)
}

// Delay returns BaseDelay randomized by ±JitterFraction using random,
// which must yield values in [0, 1).
func (c Config) Delay(attempt int, random func() float64) time.Duration {
	base := c.BaseDelay(attempt)
	if c.JitterFraction <= 0 || random == nil {
		return base
	}
	jitter := float64(base) * c.JitterFraction * (2*random() - 1)
	d := time.Duration(float64(base) + jitter)
	if d < 0 {
		return 0
	}
	return d
}

// retryAfter returns the server-requested wait carried by err, capped at
// MaxDelay. Zero when err carries none.
func (c Config) retryAfter(err error) time.Duration {
	var ra retryAfterer
	if !errors.As(err, &ra) {
		return 0
	}
	d := ra.RetryAfter()
	if d <= 0 {
		return 0
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// ParseRetryAfter reads a Retry-After header value, either delay-seconds or
// an HTTP date relative to now. Malformed and past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

type retryAfterer interface {
	RetryAfter() time.Duration
}

type statusCoder interface {
	HTTPStatusCode() int
}

type transient interface {
	Transient() bool
}

// IsRetryable determines if an error should trigger a retry under the
// default status policy.
func IsRetryable(err error) bool {
	return Config{}.IsRetryable(err)
}

// IsRetryable determines if err is transient under this configuration.
//
// Context cancellation is never retried. Errors carrying an HTTP status are
// judged by status alone; errors exposing Transient() decide for themselves;
// timeouts and connection-level syscall errors are transient; everything
// else is permanent.
func (c Config) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatusCode() > 0 {
		return c.retryableStatus(sc.HTTPStatusCode())
	}

	var tr transient
	if errors.As(err, &tr) {
		return tr.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

func (c Config) retryableStatus(code int) bool {
	if c.RetryableStatusCodes != nil {
		for _, s := range c.RetryableStatusCodes {
			if s == code {
				return true
			}
		}
		return false
	}
	return code >= 500 ||
		code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatusCode exposes the status for retry classification.
func (e *HTTPError) HTTPStatusCode() int {
	return e.StatusCode
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
