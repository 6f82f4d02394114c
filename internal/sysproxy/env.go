package sysproxy

import (
	"os"
	"strings"
)

const (
	envSuffix   = "_proxy"
	envNoPrefix = "no"
)

// EnvProvider reads *_PROXY environment variables. The variable name is
// matched case-insensitively; its prefix is the scheme (HTTPS_PROXY ->
// "https"). NO_PROXY is a comma separated whitelist.
type EnvProvider struct {
	// Environ returns "KEY=value" pairs. Defaults to os.Environ.
	Environ func() []string
}

// NewEnvProvider returns an EnvProvider reading the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{Environ: os.Environ}
}

func (p *EnvProvider) Name() string { return "env" }

// ProxyConfig fails with ErrNoProxyConfigured when no proxy variable is set.
// A whitelist on its own does not count as configured.
func (p *EnvProvider) ProxyConfig() (*Config, error) {
	environ := p.Environ
	if environ == nil {
		environ = os.Environ
	}

	b := NewBuilder(p.Name())
	for _, kv := range environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		if !strings.HasSuffix(key, envSuffix) {
			continue
		}

		scheme := strings.TrimSuffix(key, envSuffix)
		if scheme == envNoPrefix {
			b.Bypass(strings.Split(value, ",")...)
			continue
		}
		if scheme == "" || strings.TrimSpace(value) == "" {
			continue
		}

		u, err := NormalizeAddress(scheme, strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		b.Proxy(scheme, u.String())
	}

	if !b.HasProxies() {
		return nil, ErrNoProxyConfigured
	}
	return b.Build(), nil
}
