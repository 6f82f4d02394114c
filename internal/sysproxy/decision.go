package sysproxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Outcome is the result kind of a proxy decision.
type Outcome int

const (
	// OutcomeProxy means the request must go through Decision.Proxy.
	OutcomeProxy Outcome = iota
	// OutcomeNoProxyNeeded means the host is whitelisted, is a simple
	// hostname, or the URL has no host at all.
	OutcomeNoProxyNeeded
	// OutcomeNoProxyForScheme means the host is not whitelisted but no
	// endpoint is configured for the URL scheme.
	OutcomeNoProxyForScheme
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProxy:
		return "proxy"
	case OutcomeNoProxyNeeded:
		return "no_proxy_needed"
	case OutcomeNoProxyForScheme:
		return "no_proxy_for_scheme"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, candidate := range []Outcome{OutcomeProxy, OutcomeNoProxyNeeded, OutcomeNoProxyForScheme} {
		if candidate.String() == string(text) {
			*o = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Decision is the answer to "should this URL be proxied".
type Decision struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Scheme  string  `json:"scheme" yaml:"scheme"`
	Host    string  `json:"host,omitempty" yaml:"host,omitempty"`
	Proxy   string  `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

// Err returns the error form of d: nil for OutcomeProxy, ErrNoProxyNeeded,
// or a *NoProxyForSchemeError.
func (d Decision) Err() error {
	switch d.Outcome {
	case OutcomeProxy:
		return nil
	case OutcomeNoProxyForScheme:
		return &NoProxyForSchemeError{Scheme: d.Scheme}
	default:
		return ErrNoProxyNeeded
	}
}

// ParseTarget parses a URL to decide on. It must carry a scheme and a
// host: "google.com" parses as a bare path and would otherwise be
// reported as not needing a proxy.
func ParseTarget(raw string) (*url.URL, error) {
	target, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("%w: %q needs a scheme and a host", ErrInvalidTarget, raw)
	}
	return target, nil
}

// Decide picks the proxy for target under cfg. It never fails: both
// non-proxy outcomes are legitimate answers. cfg is only read.
func Decide(cfg *Config, target *url.URL) Decision {
	scheme := strings.ToLower(target.Scheme)
	host := strings.ToLower(target.Hostname())
	if host == "" {
		return Decision{Outcome: OutcomeNoProxyNeeded, Scheme: scheme}
	}

	if cfg.Bypasses(host) {
		return Decision{Outcome: OutcomeNoProxyNeeded, Scheme: scheme, Host: host}
	}

	if addr, ok := cfg.Proxy(scheme); ok {
		return Decision{Outcome: OutcomeProxy, Scheme: scheme, Host: host, Proxy: strings.ToLower(addr)}
	}

	return Decision{Outcome: OutcomeNoProxyForScheme, Scheme: scheme, Host: host}
}

// ProxyURL returns the endpoint of an OutcomeProxy decision as a URL, using
// "http" for addresses that carry no scheme of their own.
func (d Decision) ProxyURL() (*url.URL, error) {
	if d.Outcome != OutcomeProxy {
		return nil, d.Err()
	}
	return NormalizeAddress("http", d.Proxy)
}

// ProxyForURL resolves the configuration with r and returns the proxy to use
// for target. It returns ErrNoProxyNeeded or a *NoProxyForSchemeError when
// target should not be proxied.
func ProxyForURL(r *Resolver, target *url.URL) (*url.URL, error) {
	cfg, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	d := Decide(cfg, target)
	if d.Outcome != OutcomeProxy {
		return nil, d.Err()
	}
	return NormalizeAddress(d.Scheme, d.Proxy)
}

// HTTPProxyFunc returns a function for http.Transport.Proxy. Both non-proxy
// outcomes connect directly.
func (c *Config) HTTPProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		d := Decide(c, req.URL)
		if d.Outcome != OutcomeProxy {
			return nil, nil
		}
		return d.ProxyURL()
	}
}
