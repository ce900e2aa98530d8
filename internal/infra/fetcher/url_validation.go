package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"webintel/internal/observability/metrics"
	"webintel/internal/usecase/scrape"
)

// Resolver resolves host names to addresses. *net.Resolver satisfies it;
// tests inject a fake to exercise DNS-based SSRF rejection without a network.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// ValidationResult is the outcome of a single URL validation.
type ValidationResult struct {
	OK     bool
	Reason string
}

// blockedHostnames are rejected on exact match and on ".name" suffix match,
// so "internal" also blocks "db.internal".
var blockedHostnames = []string{
	"localhost",
	"localhost.localdomain",
	"127.0.0.1",
	"0.0.0.0",
	"::1",
	"169.254.169.254",
	"metadata.google.internal",
	"metadata",
	"internal",
	"local",
	"corp",
	"intranet",
}

// blockedPrefixes lists private, reserved and special-purpose ranges.
var blockedPrefixes = mustPrefixes(
	// IPv4
	"0.0.0.0/8",          // "this" network
	"10.0.0.0/8",         // RFC1918
	"100.64.0.0/10",      // CGNAT
	"127.0.0.0/8",        // loopback
	"169.254.0.0/16",     // link-local, cloud metadata
	"172.16.0.0/12",      // RFC1918
	"192.0.0.0/24",       // IETF protocol assignments
	"192.0.2.0/24",       // TEST-NET-1
	"192.168.0.0/16",     // RFC1918
	"198.18.0.0/15",      // benchmarking
	"198.51.100.0/24",    // TEST-NET-2
	"203.0.113.0/24",     // TEST-NET-3
	"224.0.0.0/4",        // multicast
	"240.0.0.0/4",        // reserved
	"255.255.255.255/32", // broadcast
	// IPv6
	"::/128",        // unspecified
	"::1/128",       // loopback
	"64:ff9b::/96",  // NAT64, may embed private IPv4
	"2001:db8::/32", // documentation
	"fc00::/7",      // unique local
	"fe80::/10",     // link-local
	"ff00::/8",      // multicast
)

func mustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}

// IsPrivateIP reports whether addr is private, reserved or otherwise not a
// legitimate public destination. IPv4-mapped IPv6 addresses are unmapped
// before matching.
func IsPrivateIP(addr netip.Addr) bool {
	if !addr.IsValid() {
		return true
	}
	addr = addr.Unmap().WithZone("")
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IsBlockedHostname reports whether host matches the hostname blocklist.
func IsBlockedHostname(host string) bool {
	h := strings.TrimSuffix(strings.ToLower(strings.Trim(host, "[]")), ".")
	for _, b := range blockedHostnames {
		if h == b || strings.HasSuffix(h, "."+b) {
			return true
		}
	}
	return false
}

// Validator is the SSRF gate. All network access in this package goes
// through it before a connection is attempted.
type Validator struct {
	resolver       Resolver
	denyPrivateIPs bool
	logger         *slog.Logger
}

// NewValidator creates a validator. A nil resolver uses net.DefaultResolver.
//
// When denyPrivateIPs is false only the scheme and host checks run; this is
// meant for local development against services on loopback.
func NewValidator(resolver Resolver, denyPrivateIPs bool, logger *slog.Logger) *Validator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		resolver:       resolver,
		denyPrivateIPs: denyPrivateIPs,
		logger:         logger,
	}
}

// Validate checks rawURL and reports the verdict without returning an error.
func (v *Validator) Validate(ctx context.Context, rawURL string) ValidationResult {
	if err := v.ValidateStrict(ctx, rawURL); err != nil {
		return ValidationResult{OK: false, Reason: err.Error()}
	}
	return ValidationResult{OK: true}
}

// ValidateStrict validates rawURL against Server-Side Request Forgery.
//
// Checks run in order: scheme (http/https only), presence of a host, the
// hostname blocklist, private ranges for literal IPs, and finally the
// addresses the host resolves to. Rejection on any resolved address closes
// DNS rebinding through names that point at internal ranges. A resolution
// failure is not an error here: the fetch itself will then fail.
//
// Returns an error wrapping scrape.ErrInvalidURL or scrape.ErrSSRFBlocked.
func (v *Validator) ValidateStrict(ctx context.Context, rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", scrape.ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: scheme %q is not allowed (only http and https)", scrape.ErrInvalidURL, u.Scheme)
	}

	// Hostname() drops userinfo, port and IPv6 brackets.
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: missing host", scrape.ErrInvalidURL)
	}

	if !v.denyPrivateIPs {
		return nil
	}

	if IsBlockedHostname(host) {
		return v.blocked(host, "hostname is blocked")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if IsPrivateIP(addr) {
			return v.blocked(host, "private or reserved IP address")
		}
		return nil
	}

	if isAmbiguousNumericHost(host) {
		return fmt.Errorf("%w: ambiguous numeric host %q", scrape.ErrInvalidURL, host)
	}

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		v.logger.Debug("DNS resolution failed during URL validation",
			slog.String("host", host),
			slog.Any("error", err))
		return nil
	}

	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok || IsPrivateIP(addr) {
			return v.blocked(host, fmt.Sprintf("resolves to private address %s", a.IP))
		}
	}

	return nil
}

func (v *Validator) blocked(host, reason string) error {
	metrics.SSRFBlockedTotal.Inc()
	v.logger.Warn("URL blocked by SSRF protection",
		slog.String("host", host),
		slog.String("reason", reason))
	return fmt.Errorf("%w: %s (%s)", scrape.ErrSSRFBlocked, reason, host)
}

// isAmbiguousNumericHost catches IPv4 spellings that net/netip refuses but
// some resolvers accept, such as "2130706433", "0x7f.1" or "127.1".
func isAmbiguousNumericHost(host string) bool {
	if strings.Contains(host, ":") {
		return false
	}
	for _, r := range host {
		switch {
		case r >= '0' && r <= '9', r == '.', r == 'x':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	// Pure hex words ("cafe.be") are valid names; require a leading digit
	// in the final label, which no real TLD has.
	last := host[strings.LastIndex(host, ".")+1:]
	return last != "" && last[0] >= '0' && last[0] <= '9'
}
