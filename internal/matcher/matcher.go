// Package matcher decides whether a host is on a proxy bypass list.
package matcher

import (
	"strings"
)

// Matcher is a compiled, immutable bypass list. It is safe for concurrent use.
//
// Pattern formats:
//   - "example.com" - exact match
//   - "*.example.com" - suffix match on ".example.com"
//   - "*apple.com" - suffix match on "apple.com", so "pineapple.com" matches
//
// Only the text after the last "*" of a pattern is used as the suffix. Text
// before it, including earlier wildcards, is ignored.
type Matcher struct {
	patterns      []string
	exact         map[string]struct{}
	suffixes      []string
	excludeSimple bool
}

// New creates a Matcher from patterns. Patterns are trimmed and lowercased;
// empty ones are skipped. When excludeSimple is set, hosts without a dot
// always match.
func New(patterns []string, excludeSimple bool) *Matcher {
	m := &Matcher{
		exact:         make(map[string]struct{}, len(patterns)),
		excludeSimple: excludeSimple,
	}

	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := m.exact[p]; dup {
			continue
		}
		m.exact[p] = struct{}{}
		m.patterns = append(m.patterns, p)

		if suffix, ok := WildcardSuffix(p); ok {
			m.suffixes = append(m.suffixes, suffix)
		}
	}

	return m
}

// Match reports whether host bypasses the proxy. The host is expected
// without scheme or port; it is lowercased before matching.
func (m *Matcher) Match(host string) bool {
	if m == nil {
		return false
	}
	host = strings.ToLower(host)

	if m.excludeSimple && IsSimpleHostname(host) {
		return true
	}

	if _, ok := m.exact[host]; ok {
		return true
	}

	for _, suffix := range m.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}

	return false
}

// Patterns returns the normalized patterns in insertion order.
func (m *Matcher) Patterns() []string {
	result := make([]string, len(m.patterns))
	copy(result, m.patterns)
	return result
}

// ExcludeSimple reports whether dotless hosts always match.
func (m *Matcher) ExcludeSimple() bool {
	return m.excludeSimple
}

// IsWhitelisted reports whether host bypasses the proxy under whitelist and
// excludeSimple. It is equivalent to New(whitelist, excludeSimple).Match(host).
func IsWhitelisted(host string, whitelist []string, excludeSimple bool) bool {
	return New(whitelist, excludeSimple).Match(host)
}

// IsSimpleHostname reports whether host is an unqualified name (no dot).
func IsSimpleHostname(host string) bool {
	return !strings.Contains(host, ".")
}

// WildcardSuffix returns the text after the last "*" in pattern. ok is false
// when pattern has no wildcard or nothing follows the last one.
func WildcardSuffix(pattern string) (suffix string, ok bool) {
	idx := strings.LastIndex(pattern, "*")
	if idx == -1 {
		return "", false
	}
	suffix = pattern[idx+1:]
	return suffix, suffix != ""
}
