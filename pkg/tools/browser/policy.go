package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// NavigationPolicy decides which URLs the tools may open. Patterns are host
// globs with '.' as the separator, so "*.example.com" matches one label and
// "**.example.com" matches any depth.
type NavigationPolicy struct {
	allowed []glob.Glob
	blocked []glob.Glob
}

// NewNavigationPolicy compiles the host patterns. An empty allow list allows
// every host not explicitly blocked.
func NewNavigationPolicy(allowed, blocked []string) (*NavigationPolicy, error) {
	p := &NavigationPolicy{}
	var err error
	if p.allowed, err = compileHostGlobs(allowed); err != nil {
		return nil, fmt.Errorf("invalid allowed host pattern: %w", err)
	}
	if p.blocked, err = compileHostGlobs(blocked); err != nil {
		return nil, fmt.Errorf("invalid blocked host pattern: %w", err)
	}
	return p, nil
}

func compileHostGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Check returns an error describing why raw may not be opened, or nil.
// raw must be an absolute http or https URL with a host.
func (p *NavigationPolicy) Check(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("url %q is not valid: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be absolute and use http or https", raw)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}

	if p == nil {
		return nil
	}
	for _, g := range p.blocked {
		if g.Match(host) {
			return fmt.Errorf("host %s is blocked", host)
		}
	}
	if len(p.allowed) == 0 {
		return nil
	}
	for _, g := range p.allowed {
		if g.Match(host) {
			return nil
		}
	}
	return fmt.Errorf("host %s is not in the allowed hosts", host)
}
