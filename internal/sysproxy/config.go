package sysproxy

import (
	"sort"
	"strings"

	"github.com/rennerdo30/proxycfg/internal/matcher"
)

// Config holds normalized, platform-agnostic proxy settings. A Config is
// immutable once built and may be shared between goroutines.
type Config struct {
	proxies       map[string]string
	whitelist     []string
	excludeSimple bool
	source        string
	bypass        *matcher.Matcher
}

// Settings is a plain snapshot of a Config, used for display and encoding.
type Settings struct {
	Source        string            `json:"source" yaml:"source"`
	Proxies       map[string]string `json:"proxies" yaml:"proxies"`
	Whitelist     []string          `json:"whitelist" yaml:"whitelist"`
	ExcludeSimple bool              `json:"exclude_simple" yaml:"exclude_simple"`
}

// NewConfig builds a Config from raw values. Scheme keys and whitelist
// entries are lowercased.
func NewConfig(source string, proxies map[string]string, whitelist []string, excludeSimple bool) *Config {
	b := NewBuilder(source).Bypass(whitelist...).ExcludeSimple(excludeSimple)
	for scheme, addr := range proxies {
		b.Proxy(scheme, addr)
	}
	return b.Build()
}

// Proxy returns the endpoint configured for scheme.
func (c *Config) Proxy(scheme string) (string, bool) {
	if c == nil {
		return "", false
	}
	addr, ok := c.proxies[strings.ToLower(scheme)]
	return addr, ok
}

// Proxies returns a copy of the scheme to endpoint map.
func (c *Config) Proxies() map[string]string {
	result := make(map[string]string, len(c.proxiesOrNil()))
	for k, v := range c.proxiesOrNil() {
		result[k] = v
	}
	return result
}

// Schemes returns the configured schemes in sorted order.
func (c *Config) Schemes() []string {
	schemes := make([]string, 0, len(c.proxiesOrNil()))
	for k := range c.proxiesOrNil() {
		schemes = append(schemes, k)
	}
	sort.Strings(schemes)
	return schemes
}

// Whitelist returns a copy of the bypass patterns.
func (c *Config) Whitelist() []string {
	if c == nil {
		return []string{}
	}
	result := make([]string, len(c.whitelist))
	copy(result, c.whitelist)
	return result
}

// ExcludeSimple reports whether dotless hostnames bypass the proxy.
func (c *Config) ExcludeSimple() bool {
	return c != nil && c.excludeSimple
}

// Source returns the name of the provider that produced the config.
func (c *Config) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

// IsEmpty reports whether the config carries no proxy, bypass or
// simple-hostname directive. An empty config is a valid "no proxy" answer.
func (c *Config) IsEmpty() bool {
	return c == nil || (len(c.proxies) == 0 && len(c.whitelist) == 0 && !c.excludeSimple)
}

// Settings returns a snapshot of the config.
func (c *Config) Settings() Settings {
	return Settings{
		Source:        c.Source(),
		Proxies:       c.Proxies(),
		Whitelist:     c.Whitelist(),
		ExcludeSimple: c.ExcludeSimple(),
	}
}

// Bypasses reports whether host is whitelisted by this config.
func (c *Config) Bypasses(host string) bool {
	if c == nil {
		return false
	}
	return c.bypass.Match(host)
}

func (c *Config) proxiesOrNil() map[string]string {
	if c == nil {
		return nil
	}
	return c.proxies
}

// Builder assembles a Config. Config sources use it to accumulate values
// while reading an OS facility.
type Builder struct {
	source        string
	proxies       map[string]string
	whitelist     []string
	seen          map[string]struct{}
	excludeSimple bool
}

// NewBuilder returns an empty Builder for the named source.
func NewBuilder(source string) *Builder {
	return &Builder{
		source:  source,
		proxies: make(map[string]string),
		seen:    make(map[string]struct{}),
	}
}

// Proxy sets the endpoint for scheme. A later call for the same scheme wins.
func (b *Builder) Proxy(scheme, addr string) *Builder {
	b.proxies[strings.ToLower(strings.TrimSpace(scheme))] = addr
	return b
}

// Bypass appends whitelist entries. Entries are trimmed and lowercased;
// empty entries and duplicates are dropped.
func (b *Builder) Bypass(entries ...string) *Builder {
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, dup := b.seen[e]; dup {
			continue
		}
		b.seen[e] = struct{}{}
		b.whitelist = append(b.whitelist, e)
	}
	return b
}

// ExcludeSimple sets the simple-hostname flag.
func (b *Builder) ExcludeSimple(v bool) *Builder {
	b.excludeSimple = v
	return b
}

// HasProxies reports whether at least one scheme has an endpoint.
func (b *Builder) HasProxies() bool {
	return len(b.proxies) > 0
}

// Build returns the immutable Config.
func (b *Builder) Build() *Config {
	proxies := make(map[string]string, len(b.proxies))
	for k, v := range b.proxies {
		proxies[k] = v
	}
	whitelist := make([]string, len(b.whitelist))
	copy(whitelist, b.whitelist)

	return &Config{
		proxies:       proxies,
		whitelist:     whitelist,
		excludeSimple: b.excludeSimple,
		source:        b.source,
		bypass:        matcher.New(whitelist, b.excludeSimple),
	}
}
