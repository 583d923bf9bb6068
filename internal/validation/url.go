package validation

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrScheme        = errors.New("URL must use http or https")
	ErrMissingHost   = errors.New("URL must have a hostname")
	ErrPrivateHost   = errors.New("local and private addresses are not permitted")
	ErrInvalidDomain = errors.New("invalid domain")
)

// URLPolicy decides which remote URLs the importer and browser accept.
type URLPolicy struct {
	AllowPrivate bool
	MaxLength    int
}

// DefaultPolicy blocks loopback, link-local and private hosts.
func DefaultPolicy() URLPolicy {
	return URLPolicy{MaxLength: 2048}
}

// PermissivePolicy allows local hosts, for development servers and tests.
func PermissivePolicy() URLPolicy {
	return URLPolicy{AllowPrivate: true, MaxLength: 2048}
}

// Normalize trims input, defaults a missing scheme to https and checks the
// result against the policy.
func (p URLPolicy) Normalize(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyURL
	}
	if p.MaxLength > 0 && len(input) > p.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", p.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", errors.New("URL contains invalid characters")
	}
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrScheme
	}
	host := u.Hostname()
	if host == "" {
		return "", ErrMissingHost
	}
	if !p.AllowPrivate && isPrivateHost(host) {
		return "", ErrPrivateHost
	}
	if strings.Contains(u.Path, "..") {
		return "", errors.New("directory traversal patterns not allowed in URL path")
	}
	return u.String(), nil
}

func isPrivateHost(host string) bool {
	h := strings.ToLower(strings.TrimSuffix(host, "."))
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(h)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}

// Domain normalizes a source domain filter value. Schemes, paths and ports
// are stripped so that "https://Example.com/feed" becomes "example.com".
func Domain(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", nil
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	s = strings.TrimPrefix(s, "www.")
	if s == "" || strings.ContainsAny(s, " _<>\"'`") || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, input)
	}
	return s, nil
}
