package sysproxy

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestDecide(t *testing.T) {
	cfg := NewConfig("test",
		map[string]string{
			"http":  "http://Proxy.Example.com:3128",
			"https": "https://secure.example.com:443",
		},
		[]string{"localhost", "*.internal.corp", "*apple.com"},
		true,
	)

	tests := []struct {
		name    string
		target  string
		outcome Outcome
		proxy   string
	}{
		{"proxied http", "http://www.golang.org/doc", OutcomeProxy, "http://proxy.example.com:3128"},
		{"proxied https", "https://bitbucket.org", OutcomeProxy, "https://secure.example.com:443"},
		{"port is ignored", "https://bitbucket.org:8443/x", OutcomeProxy, "https://secure.example.com:443"},
		{"exact whitelist", "https://localhost", OutcomeNoProxyNeeded, ""},
		{"uppercase host", "http://LOCALHOST:8080", OutcomeNoProxyNeeded, ""},
		{"wildcard whitelist", "http://db.internal.corp", OutcomeNoProxyNeeded, ""},
		{"substring suffix", "http://pineapple.com", OutcomeNoProxyNeeded, ""},
		{"simple hostname", "http://intranet/", OutcomeNoProxyNeeded, ""},
		{"no scheme entry", "ftp://files.example.org", OutcomeNoProxyForScheme, ""},
		{"no host", "file:///etc/hosts", OutcomeNoProxyNeeded, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(cfg, mustParse(t, tt.target))
			assert.Equal(t, tt.outcome, d.Outcome, d.Outcome.String())
			assert.Equal(t, tt.proxy, d.Proxy)
		})
	}
}

func TestDecide_NilConfig(t *testing.T) {
	d := Decide(nil, mustParse(t, "http://example.com"))
	assert.Equal(t, OutcomeNoProxyForScheme, d.Outcome)
	assert.Equal(t, "http", d.Scheme)
}

func TestDecide_DoesNotMutateConfig(t *testing.T) {
	cfg := NewConfig("test", map[string]string{"http": "P:1"}, []string{"a.com"}, false)
	before := cfg.Settings()

	Decide(cfg, mustParse(t, "http://b.com"))
	Decide(cfg, mustParse(t, "http://a.com"))

	assert.Equal(t, before, cfg.Settings())
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, Decision{Outcome: OutcomeProxy}.Err())
	assert.ErrorIs(t, Decision{Outcome: OutcomeNoProxyNeeded}.Err(), ErrNoProxyNeeded)

	var schemeErr *NoProxyForSchemeError
	err := Decision{Outcome: OutcomeNoProxyForScheme, Scheme: "ftp"}.Err()
	require.True(t, errors.As(err, &schemeErr))
	assert.Equal(t, "ftp", schemeErr.Scheme)
	assert.Equal(t, "no proxy found for scheme: 'ftp'", err.Error())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "proxy", OutcomeProxy.String())
	assert.Equal(t, "no_proxy_needed", OutcomeNoProxyNeeded.String())
	assert.Equal(t, "no_proxy_for_scheme", OutcomeNoProxyForScheme.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestParseTarget(t *testing.T) {
	u, err := ParseTarget("https://Bitbucket.org:8443/path")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "Bitbucket.org:8443", u.Host)

	for _, raw := range []string{"google.com", "google.com:443", "/relative", "mailto:user@example.com", "http://[::1", ""} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTarget(raw)
			assert.ErrorIs(t, err, ErrInvalidTarget)
			assert.Equal(t, "invalid_target", ErrorKind(err))
		})
	}
}

func TestProxyForURL(t *testing.T) {
	cfg := NewConfig("test", map[string]string{"https": "proxy.local:8443"}, []string{"github.com"}, false)
	r := NewResolver(NewProviderFunc("static", func() (*Config, error) { return cfg, nil }))

	u, err := ProxyForURL(r, mustParse(t, "https://bitbucket.org"))
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.local:8443", u.String())

	_, err = ProxyForURL(r, mustParse(t, "https://github.com"))
	assert.ErrorIs(t, err, ErrNoProxyNeeded)

	_, err = ProxyForURL(r, mustParse(t, "http://bitbucket.org"))
	var schemeErr *NoProxyForSchemeError
	assert.ErrorAs(t, err, &schemeErr)
}

func TestProxyForURL_ResolveError(t *testing.T) {
	r := NewResolver()
	_, err := ProxyForURL(r, mustParse(t, "https://bitbucket.org"))
	assert.ErrorIs(t, err, ErrPlatformNotSupported)
}

func TestHTTPProxyFunc(t *testing.T) {
	cfg := NewConfig("test", map[string]string{"http": "10.0.0.1:3128"}, []string{"direct.example.com"}, false)
	proxyFunc := cfg.HTTPProxyFunc()

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)
	u, err := proxyFunc(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "http://10.0.0.1:3128", u.String())

	req, err = http.NewRequest(http.MethodGet, "http://direct.example.com/", nil)
	require.NoError(t, err)
	u, err = proxyFunc(req)
	assert.NoError(t, err)
	assert.Nil(t, u)

	req, err = http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)
	u, err = proxyFunc(req)
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestOutcomeText(t *testing.T) {
	for _, o := range []Outcome{OutcomeProxy, OutcomeNoProxyNeeded, OutcomeNoProxyForScheme} {
		text, err := o.MarshalText()
		require.NoError(t, err)

		var got Outcome
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, o, got)
	}

	var o Outcome
	assert.Error(t, o.UnmarshalText([]byte("maybe")))
}
