// Package fetcher implements the single gateway for outbound HTTP: SSRF
// validation, per-platform timeouts, streamed size limits, retry with
// backoff, circuit breaking and request pacing.
package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"webintel/internal/observability/metrics"
	"webintel/internal/resilience/circuitbreaker"
	"webintel/internal/resilience/retry"
	"webintel/internal/usecase/scrape"
)

// chunkSize is the body streaming granularity. The size cap is checked
// after every chunk.
const chunkSize = 8192

var errReadTimeout = errors.New("read timeout")

type connectTimeoutKey struct{}

// Request describes one logical fetch. Zero fields take the fetcher defaults.
type Request struct {
	URL      string
	Method   string
	Headers  http.Header
	MaxSize  int64
	Platform string
	Policy   *retry.Config
	Timeouts *Timeouts
}

// Response is a fully buffered successful response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Size       int
	FinalURL   string
}

// Fetcher performs validated, bounded and retried HTTP requests.
// It is safe for concurrent use.
type Fetcher struct {
	cfg       Config
	resolver  Resolver
	validator *Validator
	client    *http.Client
	transport http.RoundTripper
	breakers  *circuitbreaker.Registry
	retryOpts []retry.Option
	logger    *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithResolver replaces the DNS resolver used by validation and dialing.
func WithResolver(r Resolver) Option {
	return func(f *Fetcher) { f.resolver = r }
}

// WithTransport replaces the HTTP transport. The safe dialer is bypassed;
// URL validation still runs on every request and redirect hop.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) { f.transport = rt }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithRetryOptions appends options to every retry run.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(f *Fetcher) { f.retryOpts = append(f.retryOpts, opts...) }
}

// WithBreakers shares a circuit breaker registry.
func WithBreakers(r *circuitbreaker.Registry) Option {
	return func(f *Fetcher) { f.breakers = r }
}

// New creates a Fetcher.
//
// Example:
//
//	cfg, err := fetcher.LoadConfigFromEnv()
//	f := fetcher.New(cfg, fetcher.WithLogger(logger))
//	resp, err := f.Fetch(ctx, fetcher.Request{URL: "https://example.com", Platform: "webpage"})
func New(cfg Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.resolver == nil {
		f.resolver = net.DefaultResolver
	}
	if f.breakers == nil {
		f.breakers = circuitbreaker.NewRegistry(func(key string) circuitbreaker.Config {
			c := circuitbreaker.PlatformConfig(key)
			c.IsFailure = retry.IsRetryable
			return c
		})
	}
	if f.transport == nil {
		f.transport = f.newTransport()
	}
	f.validator = NewValidator(f.resolver, cfg.DenyPrivateIPs, f.logger)
	f.client = &http.Client{
		Transport:     f.transport,
		CheckRedirect: f.checkRedirect,
	}
	return f
}

// Config returns the configuration the fetcher was built with.
func (f *Fetcher) Config() Config {
	return f.cfg
}

// ValidateURL runs the strict SSRF gate on rawURL.
func (f *Fetcher) ValidateURL(ctx context.Context, rawURL string) error {
	return f.validator.ValidateStrict(ctx, rawURL)
}

// BreakerStates reports the state of every platform breaker used so far.
func (f *Fetcher) BreakerStates() map[string]string {
	return f.breakers.States()
}

// Fetch validates req.URL, then performs the request with retry, circuit
// breaking and the size limit applied.
//
// Per-call overrides attached with scrape.WithOptions fill the size limit
// and retry policy when req leaves them unset.
//
// Failures are *FetchError values, except cancellation of ctx which is
// returned as the context error. SSRF rejections never reach the network
// and are never retried.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	platform := req.Platform
	if platform == "" {
		platform = "default"
	}

	if err := f.validator.ValidateStrict(ctx, req.URL); err != nil {
		return nil, &FetchError{Kind: KindSSRFBlocked, Detail: err.Error(), Err: err}
	}

	callOpts, _ := scrape.OptionsFrom(ctx)

	policy := f.cfg.Retry
	switch {
	case req.Policy != nil:
		policy = *req.Policy
	case callOpts.Retry != nil:
		policy = *callOpts.Retry
	}
	timeouts := f.cfg.Timeouts.For(req.Platform)
	if req.Timeouts != nil {
		if req.Timeouts.Connect > 0 {
			timeouts.Connect = req.Timeouts.Connect
		}
		if req.Timeouts.Read > 0 {
			timeouts.Read = req.Timeouts.Read
		}
	}
	maxSize := req.MaxSize
	if maxSize <= 0 {
		maxSize = callOpts.MaxContentSize
	}
	if maxSize <= 0 {
		maxSize = f.cfg.MaxContentSize
	}

	breaker := f.breakers.Get(platform)
	limiter := f.limiter(platform)

	opts := []retry.Option{
		retry.WithLogger(f.logger.With(slog.String("platform", platform))),
		retry.WithOnRetry(func(int, error, time.Duration) {
			metrics.RecordRetry(platform)
		}),
	}
	opts = append(opts, f.retryOpts...)

	resp, err := retry.Do(ctx, policy, func() (*Response, error) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		v, err := breaker.Execute(func() (interface{}, error) {
			return f.attempt(ctx, req, timeouts, maxSize)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, fmt.Errorf("%w: circuit %s: %w", scrape.ErrNetwork, breaker.Name(), err)
			}
			metrics.RecordFetchAttempt(platform, false)
			return nil, err
		}
		metrics.RecordFetchAttempt(platform, true)
		return v.(*Response), nil
	}, opts...)

	if err != nil {
		metrics.RecordFetch(platform, false, time.Since(start), 0)
		f.logger.Debug("fetch failed",
			slog.String("url", req.URL),
			slog.String("platform", platform),
			slog.Any("error", err))
		return nil, err
	}

	metrics.RecordFetch(platform, true, time.Since(start), resp.Size)
	return resp, nil
}

// attempt performs one HTTP exchange and streams the body under the size cap.
func (f *Fetcher) attempt(ctx context.Context, req Request, t Timeouts, maxSize int64) (*Response, error) {
	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// The watchdog first bounds connect plus time-to-headers, then is
	// re-armed with the read timeout before every chunk.
	watchdog := time.AfterFunc(t.Total(), func() { cancel(errReadTimeout) })
	defer watchdog.Stop()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(
		context.WithValue(attemptCtx, connectTimeoutKey{}, t.Connect),
		method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scrape.ErrInvalidURL, err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, context.Cause(attemptCtx) == errReadTimeout, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return nil, statusError(resp)
	}

	if resp.ContentLength > maxSize {
		return nil, tooLarge(fmt.Sprintf("content-length %d exceeds limit %d", resp.ContentLength, maxSize))
	}

	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	for {
		watchdog.Reset(t.Read)
		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			if int64(buf.Len()+n) > maxSize {
				return nil, tooLarge(fmt.Sprintf("body exceeds limit %d", maxSize))
			}
			buf.Write(chunk[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, classify(ctx, context.Cause(attemptCtx) == errReadTimeout, rerr)
		}
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       buf.Bytes(),
		Size:       buf.Len(),
		FinalURL:   finalURL,
	}, nil
}

func tooLarge(detail string) *FetchError {
	return &FetchError{
		Kind:   KindTooLarge,
		Detail: detail,
		Err:    scrape.ErrBodyTooLarge,
	}
}

// classify maps a transport error to a FetchError. Cancellation of the
// caller's context is returned unchanged so it is never retried.
func classify(parent context.Context, timedOut bool, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}

	var netErr net.Error
	switch {
	case errors.Is(err, scrape.ErrSSRFBlocked), errors.Is(err, scrape.ErrInvalidURL):
		return &FetchError{Kind: KindSSRFBlocked, Detail: err.Error(), Err: err}
	case errors.Is(err, scrape.ErrTooManyRedirects):
		return &FetchError{Kind: KindRedirectLimit, Detail: err.Error(), Err: err}
	case timedOut, errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &FetchError{
			Kind:   KindTimeout,
			Detail: err.Error(),
			Err:    fmt.Errorf("%w: %v", scrape.ErrTimeout, err),
		}
	default:
		return &FetchError{
			Kind:   KindNetworkError,
			Detail: err.Error(),
			Err:    fmt.Errorf("%w: %w", scrape.ErrNetwork, err),
		}
	}
}

// checkRedirect re-validates every hop and enforces the redirect limit.
func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > f.cfg.MaxRedirects {
		return fmt.Errorf("%w: stopped after %d redirects", scrape.ErrTooManyRedirects, f.cfg.MaxRedirects)
	}
	if err := f.validator.ValidateStrict(req.Context(), req.URL.String()); err != nil {
		return fmt.Errorf("redirect target validation failed: %w", err)
	}
	return nil
}

func (f *Fetcher) limiter(platform string) *rate.Limiter {
	if f.cfg.RateLimitRPS <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[platform]
	if !ok {
		burst := f.cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(f.cfg.RateLimitRPS), burst)
		f.limiters[platform] = l
	}
	return l
}

func (f *Fetcher) newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               nil,
		DialContext:         f.dialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: f.cfg.Timeouts.FetcherConnect,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12, // Enforce TLS 1.2+
		},
	}
}

// dialContext resolves the host itself and dials the checked address, so a
// DNS answer that changes between validation and connect cannot reach a
// private range.
func (f *Fetcher) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	timeout := f.cfg.Timeouts.FetcherConnect
	if d, ok := ctx.Value(connectTimeoutKey{}).(time.Duration); ok && d > 0 {
		timeout = d
	}
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}

	var addrs []netip.Addr
	if a, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{a.Unmap()}
	} else {
		ips, err := f.resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		for _, ip := range ips {
			if a, ok := netip.AddrFromSlice(ip.IP); ok {
				addrs = append(addrs, a.Unmap())
			}
		}
	}

	if f.cfg.DenyPrivateIPs {
		for _, a := range addrs {
			if IsPrivateIP(a) {
				metrics.SSRFBlockedTotal.Inc()
				return nil, fmt.Errorf("%w: %s resolved to private address %s at dial time", scrape.ErrSSRFBlocked, host, a)
			}
		}
	}

	lastErr := fmt.Errorf("no addresses for %s", host)
	for _, a := range addrs {
		conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(a.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
