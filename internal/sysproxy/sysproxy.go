// Package sysproxy discovers the operating system's proxy configuration and
// decides, per target URL, whether and through which endpoint to proxy.
package sysproxy

import (
	"os"
	"slices"
	"strings"

	"github.com/rennerdo30/proxycfg/internal/logging"
)

// Provider reads proxy settings from one OS facility.
type Provider interface {
	// Name identifies the source, e.g. "env" or "sysconfig".
	Name() string
	// ProxyConfig returns the source's settings or an error from the
	// package's error kinds. It must not block indefinitely.
	ProxyConfig() (*Config, error)
}

type providerFunc struct {
	name string
	fn   func() (*Config, error)
}

func (p providerFunc) Name() string                  { return p.name }
func (p providerFunc) ProxyConfig() (*Config, error) { return p.fn() }

// NewProviderFunc adapts fn to a Provider named name.
func NewProviderFunc(name string, fn func() (*Config, error)) Provider {
	return providerFunc{name: name, fn: fn}
}

// Options configures the default provider set.
type Options struct {
	// Environ returns the process environment. Defaults to os.Environ.
	Environ func() []string
	// SysconfigPath overrides /etc/sysconfig/proxy.
	SysconfigPath string
}

// DefaultProviders returns the providers for the running platform in
// precedence order. Environment variables always come first.
func DefaultProviders(opts Options) []Provider {
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}
	if opts.SysconfigPath == "" {
		opts.SysconfigPath = DefaultSysconfigPath
	}
	return append([]Provider{&EnvProvider{Environ: opts.Environ}}, platformProviders(opts)...)
}

// FilterProviders drops providers whose name is in disabled, keeping order.
func FilterProviders(providers []Provider, disabled []string) []Provider {
	result := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if slices.ContainsFunc(disabled, func(name string) bool {
			return strings.EqualFold(strings.TrimSpace(name), p.Name())
		}) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Observer is notified after every provider attempt. err is nil on success.
type Observer func(source string, err error)

// Resolver queries an ordered, fixed list of providers and returns the first
// configuration that one of them yields. It holds no mutable state and is
// safe for concurrent use.
type Resolver struct {
	providers []Provider
	observers []Observer
}

// NewResolver creates a Resolver over providers, in the given order.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: slices.Clone(providers)}
}

// WithObserver returns a copy of r that also notifies o.
func (r *Resolver) WithObserver(o Observer) *Resolver {
	return &Resolver{
		providers: r.providers,
		observers: append(slices.Clone(r.observers), o),
	}
}

// Sources returns the provider names in precedence order.
func (r *Resolver) Sources() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve returns the configuration of the first provider that succeeds.
// Failures are not fatal; the next provider is tried. When every provider
// fails, the error of the last one is returned, or ErrPlatformNotSupported
// if there are no providers.
func (r *Resolver) Resolve() (*Config, error) {
	log := logging.WithComponent("resolver")
	lastErr := ErrPlatformNotSupported

	for _, p := range r.providers {
		cfg, err := p.ProxyConfig()
		r.notify(p.Name(), err)
		if err == nil {
			log.Debug("proxy configuration resolved", "source", p.Name(), "schemes", cfg.Schemes())
			return cfg, nil
		}
		log.Debug("proxy source unavailable", "source", p.Name(), "kind", ErrorKind(err), "error", err)
		lastErr = err
	}

	return nil, lastErr
}

func (r *Resolver) notify(source string, err error) {
	for _, o := range r.observers {
		o(source, err)
	}
}
