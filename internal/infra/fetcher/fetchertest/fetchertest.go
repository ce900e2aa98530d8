// Package fetchertest provides helpers for exercising code built on the
// fetcher against httptest servers while keeping real host names in URLs.
package fetchertest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"webintel/internal/infra/fetcher"
	"webintel/internal/resilience/retry"
)

// PublicAddr is a public address handed out by the fake resolvers.
const PublicAddr = "93.184.216.34"

// Resolver is a fake DNS resolver. Hosts missing from Hosts resolve to
// PublicAddr.
type Resolver struct {
	Hosts map[string][]string
}

// LookupIPAddr implements fetcher.Resolver.
func (r Resolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := r.Hosts[strings.ToLower(host)]
	if !ok {
		ips = []string{PublicAddr}
	}
	out := make([]net.IPAddr, 0, len(ips))
	for _, s := range ips {
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, fmt.Errorf("fake resolver: bad address %q", s)
		}
		out = append(out, net.IPAddr{IP: ip})
	}
	return out, nil
}

// Router is an http.RoundTripper that sends every request to a test
// server while presenting the original URL to the caller.
type Router struct {
	target *url.URL
	base   http.RoundTripper

	mu    sync.Mutex
	hosts []string
}

// NewRouter routes all traffic to srv.
func NewRouter(srv *httptest.Server) *Router {
	u, _ := url.Parse(srv.URL)
	return &Router{target: u, base: srv.Client().Transport}
}

// RoundTrip implements http.RoundTripper.
func (rt *Router) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.hosts = append(rt.hosts, req.URL.Host)
	rt.mu.Unlock()

	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	out.Host = req.URL.Host
	out.Header.Set("X-Original-Host", req.URL.Host)

	resp, err := rt.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// Hosts returns the original hosts of every routed request, in order.
func (rt *Router) Hosts() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.hosts...)
}

// Config returns a fetcher config with fast retries for tests.
func Config() fetcher.Config {
	cfg := fetcher.DefaultConfig()
	cfg.Retry = retry.Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
	cfg.Timeouts.FetcherConnect = 2 * time.Second
	cfg.Timeouts.FetcherRead = 2 * time.Second
	return cfg
}

// New builds a fetcher that routes every request to srv and resolves every
// host to a public address.
func New(srv *httptest.Server, opts ...fetcher.Option) (*fetcher.Fetcher, *Router) {
	router := NewRouter(srv)
	base := []fetcher.Option{
		fetcher.WithTransport(router),
		fetcher.WithResolver(Resolver{}),
		fetcher.WithRetryOptions(retry.WithSleep(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		})),
	}
	return fetcher.New(Config(), append(base, opts...)...), router
}
