package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// URLGuard decides which URLs the agent may open. Patterns are globs
// matched against the lowercased host, such as "*.example.com" or
// "shop.example.*". Denied patterns take precedence. With no allowed
// patterns every host not denied is allowed.
type URLGuard struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewURLGuard compiles the allow and deny lists.
func NewURLGuard(allowed, denied []string) (*URLGuard, error) {
	g := &URLGuard{}
	for _, pattern := range allowed {
		c, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		g.allowed = append(g.allowed, c)
	}
	for _, pattern := range denied {
		c, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		g.denied = append(g.denied, c)
	}
	return g, nil
}

// Check returns an error wrapping ErrNavigationDenied when rawURL may not
// be opened. Only http and https URLs are ever allowed. A nil guard only
// enforces the scheme.
func (g *URLGuard) Check(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNavigationDenied, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrNavigationDenied, u.Scheme)
	}
	if g == nil {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	for _, p := range g.denied {
		if p.Match(host) {
			return fmt.Errorf("%w: %s is blocked", ErrNavigationDenied, host)
		}
	}
	if len(g.allowed) == 0 {
		return nil
	}
	for _, p := range g.allowed {
		if p.Match(host) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not in the allowed list", ErrNavigationDenied, host)
}

// NormalizeURL adds https:// to bare hosts such as "example.com/path".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") || strings.HasPrefix(raw, "about:") {
		return raw
	}
	return "https://" + raw
}
