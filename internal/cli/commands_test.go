package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rennerdo30/proxycfg/internal/sysproxy"
)

type stubSource struct {
	cfg *sysproxy.Config
	err error
}

func (s stubSource) Resolve() (*sysproxy.Config, error) { return s.cfg, s.err }

func envConfig() *sysproxy.Config {
	return sysproxy.NewBuilder("env").
		Proxy("http", "http://127.0.0.1").
		Proxy("https", "https://candybox2.github.io").
		Bypass("google.com", "localhost").
		Build()
}

func options(src Source, strict bool) Options {
	return Options{
		Source:             func() (Source, error) { return src, nil },
		MissingSchemeError: func() bool { return strict },
	}
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShowCommand_Text(t *testing.T) {
	out, err := run(t, NewShowCommand(options(stubSource{cfg: envConfig()}, false)))
	require.NoError(t, err)

	assert.Contains(t, out, "Source:")
	assert.Contains(t, out, "env")
	assert.Contains(t, out, "http://127.0.0.1")
	assert.Contains(t, out, "google.com, localhost")
	assert.Contains(t, out, "false")
}

func TestShowCommand_Empty(t *testing.T) {
	out, err := run(t, NewShowCommand(options(stubSource{cfg: sysproxy.NewBuilder("sysconfig").Build()}, false)))
	require.NoError(t, err)
	assert.Contains(t, out, "none")
}

func TestShowCommand_JSON(t *testing.T) {
	out, err := run(t, NewShowCommand(options(stubSource{cfg: envConfig()}, false)), "--format", "json")
	require.NoError(t, err)

	var settings sysproxy.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Equal(t, "env", settings.Source)
	assert.Equal(t, "https://candybox2.github.io", settings.Proxies["https"])
}

func TestShowCommand_YAML(t *testing.T) {
	out, err := run(t, NewShowCommand(options(stubSource{cfg: envConfig()}, false)), "-f", "yaml")
	require.NoError(t, err)

	var settings sysproxy.Settings
	require.NoError(t, yaml.Unmarshal([]byte(out), &settings))
	assert.Equal(t, []string{"google.com", "localhost"}, settings.Whitelist)
}

func TestShowCommand_Errors(t *testing.T) {
	_, err := run(t, NewShowCommand(options(stubSource{err: sysproxy.ErrNoProxyConfigured}, false)))
	assert.ErrorIs(t, err, sysproxy.ErrNoProxyConfigured)

	_, err = run(t, NewShowCommand(options(stubSource{cfg: envConfig()}, false)), "-f", "xml")
	assert.ErrorContains(t, err, "unknown format")

	broken := Options{Source: func() (Source, error) { return nil, errors.New("bad config") }}
	_, err = run(t, NewShowCommand(broken))
	assert.ErrorContains(t, err, "bad config")
}

func TestLookup(t *testing.T) {
	results, failed := Lookup(envConfig(), []string{
		"http://google.com",
		"https://bitbucket.org",
		"ftp://files.example.com",
		"http://[::1",
	}, false)

	require.Len(t, results, 4)
	assert.True(t, failed, "an unparsable URL is a failure")

	assert.Equal(t, sysproxy.OutcomeNoProxyNeeded, results[0].Outcome)
	assert.Equal(t, sysproxy.OutcomeProxy, results[1].Outcome)
	assert.Equal(t, "https://candybox2.github.io", results[1].Proxy)
	assert.Equal(t, sysproxy.OutcomeNoProxyForScheme, results[2].Outcome)
	assert.Empty(t, results[2].Error)
	assert.NotEmpty(t, results[3].Error)
}

func TestLookup_RequiresSchemeAndHost(t *testing.T) {
	results, failed := Lookup(envConfig(), []string{"google.com", "google.com:443"}, false)

	require.Len(t, results, 2)
	assert.True(t, failed)
	for _, r := range results {
		assert.Contains(t, r.Error, "invalid target URL", r.URL)
	}
}

func TestLookup_Strict(t *testing.T) {
	results, failed := Lookup(envConfig(), []string{"ftp://files.example.com"}, true)
	assert.True(t, failed)
	assert.Equal(t, "no proxy found for scheme: 'ftp'", results[0].Error)

	_, failed = Lookup(envConfig(), []string{"http://localhost", "http://example.com"}, true)
	assert.False(t, failed)
}

func TestLookupCommand_Text(t *testing.T) {
	out, err := run(t, NewLookupCommand(options(stubSource{cfg: envConfig()}, false)),
		"http://google.com", "https://bitbucket.org", "ftp://files.example.com")
	require.NoError(t, err)

	assert.Contains(t, out, "URL")
	assert.Contains(t, out, "bypassed")
	assert.Contains(t, out, "https://candybox2.github.io")
	assert.Contains(t, out, "no proxy for ftp")
}

func TestLookupCommand_StrictFails(t *testing.T) {
	out, err := run(t, NewLookupCommand(options(stubSource{cfg: envConfig()}, true)), "ftp://files.example.com")
	assert.ErrorIs(t, err, errLookupsFailed)
	assert.Contains(t, out, "ERROR")
}

func TestLookupCommand_HostlessTarget(t *testing.T) {
	out, err := run(t, NewLookupCommand(options(stubSource{cfg: envConfig()}, false)), "google.com")
	assert.ErrorIs(t, err, errLookupsFailed)
	assert.Contains(t, out, "ERROR")
	assert.NotContains(t, out, "bypassed")
}

func TestLookupCommand_JSON(t *testing.T) {
	out, err := run(t, NewLookupCommand(options(stubSource{cfg: envConfig()}, false)), "-f", "json", "https://bitbucket.org")
	require.NoError(t, err)

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "proxy", results[0]["outcome"])
	assert.Equal(t, "https://bitbucket.org", results[0]["url"])
}

func TestLookupCommand_RequiresArgs(t *testing.T) {
	_, err := run(t, NewLookupCommand(options(stubSource{cfg: envConfig()}, false)))
	assert.Error(t, err)
}
