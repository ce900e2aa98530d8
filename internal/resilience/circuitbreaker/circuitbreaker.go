// Package circuitbreaker provides circuit breaker pattern implementation for upstream platform calls.
// It prevents cascading failures by stopping requests to a platform that keeps failing.
package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"webintel/internal/observability/metrics"
)

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name is the identifier for this circuit breaker (used in logs and metrics)
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state
	MaxRequests uint32

	// Interval is the cyclic period of the closed state to clear internal counts
	Interval time.Duration

	// Timeout is the period of the open state before transitioning to half-open
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the circuit (0.0 to 1.0)
	FailureThreshold float64

	// MinRequests is the minimum number of requests before evaluating the failure ratio
	MinRequests uint32

	// IsFailure decides whether an error counts against the breaker.
	// Nil counts every non-nil error. Permanent upstream answers such as
	// 404 should not open the circuit, so callers usually pass a
	// transient-only classifier here.
	IsFailure func(err error) bool
}

// DefaultConfig returns a default circuit breaker configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// PlatformConfig returns the configuration used for one upstream platform
// (twitter, github, reddit, youtube, webpage, redirect).
//
// Generic webpages are spread over many hosts and fail individually, so the
// webpage breaker tolerates a higher failure ratio before opening.
func PlatformConfig(platform string) Config {
	cfg := DefaultConfig("platform-" + platform)
	if platform == "webpage" {
		cfg.Interval = 60 * time.Second
		cfg.FailureThreshold = 0.8
		cfg.MinRequests = 10
	}
	return cfg
}

// CircuitBreaker wraps gobreaker.CircuitBreaker with additional functionality.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a new circuit breaker with the given configuration.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.SetCircuitBreakerState(name, int(to))
		},
	}
	if cfg.IsFailure != nil {
		isFailure := cfg.IsFailure
		settings.IsSuccessful = func(err error) bool {
			return err == nil || !isFailure(err)
		}
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs the given function if the circuit breaker allows it.
// Returns gobreaker.ErrOpenState when the circuit is open and
// gobreaker.ErrTooManyRequests when the half-open quota is exhausted.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen returns true if the circuit breaker is in open state.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}

// Registry lazily creates one breaker per key and hands out the same
// instance on every call. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	configFn func(key string) Config
}

// NewRegistry creates a registry building breakers with configFn.
// A nil configFn uses PlatformConfig.
func NewRegistry(configFn func(key string) Config) *Registry {
	if configFn == nil {
		configFn = PlatformConfig
	}
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		configFn: configFn,
	}
}

// Get returns the breaker for key, creating it on first use.
func (r *Registry) Get(key string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[key]
	if !ok {
		cb = New(r.configFn(key))
		r.breakers[key] = cb
	}
	return cb
}

// States reports the state of every breaker created so far.
func (r *Registry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.breakers))
	for key, cb := range r.breakers {
		out[key] = cb.State().String()
	}
	return out
}
