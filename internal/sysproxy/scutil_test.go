package sysproxy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scutilSample = `<dictionary> {
  ExceptionsList : <array> {
    0 : *.local
    1 : 169.254/16
    2 : Intranet.Example.com
  }
  ExcludeSimpleHostnames : 1
  FTPPassive : 1
  HTTPEnable : 1
  HTTPPort : 8080
  HTTPProxy : proxy.example.com
  HTTPSEnable : 1
  HTTPSPort : 8443
  HTTPSProxy : secure.example.com
  SOCKSEnable : 0
  __SCOPED__ : <dictionary> {
    en0 : <dictionary> {
      HTTPEnable : 0
    }
  }
}
`

func TestParseScutil(t *testing.T) {
	cfg, err := ParseScutil([]byte(scutilSample))
	require.NoError(t, err)

	assert.Equal(t, "scutil", cfg.Source())
	assert.Equal(t, map[string]string{
		"http":  "http://proxy.example.com:8080",
		"https": "https://secure.example.com:8443",
	}, cfg.Proxies())
	assert.Equal(t, []string{"*.local", "169.254/16", "intranet.example.com"}, cfg.Whitelist())
	assert.True(t, cfg.ExcludeSimple())
}

func TestParseScutil_ScopedExceptionsIgnored(t *testing.T) {
	cfg, err := ParseScutil([]byte(`<dictionary> {
  ExceptionsList : <array> {
    0 : *.corp.example.com
  }
  HTTPEnable : 1
  HTTPPort : 3128
  HTTPProxy : proxy.corp.example.com
  __SCOPED__ : <dictionary> {
    en0 : <dictionary> {
      ExceptionsList : <array> {
        0 : *.local
        1 : 169.254/16
      }
      HTTPEnable : 1
      HTTPPort : 8080
      HTTPProxy : other.example.com
    }
  }
}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"*.corp.example.com"}, cfg.Whitelist())
	assert.Equal(t, map[string]string{"http": "http://proxy.corp.example.com:3128"}, cfg.Proxies())
}

func TestParseScutilDict_NestedArrays(t *testing.T) {
	dict, err := ParseScutilDict([]byte(`<dictionary> {
  __SCOPED__ : <dictionary> {
    en0 : <dictionary> {
      ExceptionsList : <array> {
        0 : *.local
      }
    }
  }
  HTTPEnable : 0
}`))
	require.NoError(t, err)

	assert.Empty(t, dict.Arrays)
	assert.Equal(t, "0", dict.Values["HTTPEnable"])
}

func TestParseScutil_SocksAndFTP(t *testing.T) {
	cfg, err := ParseScutil([]byte(`<dictionary> {
  FTPEnable : 1
  FTPProxy : ftp.example.com
  SOCKSEnable : 1
  SOCKSPort : 1080
  SOCKSProxy : 10.0.0.1
}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"ftp":   "http://ftp.example.com",
		"socks": "socks5://10.0.0.1:1080",
	}, cfg.Proxies())
	assert.False(t, cfg.ExcludeSimple())
}

func TestParseScutil_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "nothing enabled",
			input: "<dictionary> {\n  HTTPEnable : 0\n  ExcludeSimpleHostnames : 1\n}\n",
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoProxyConfigured) },
		},
		{
			name:  "pac",
			input: "<dictionary> {\n  HTTPEnable : 1\n  HTTPProxy : p\n  ProxyAutoConfigEnable : 1\n}\n",
			check: func(t *testing.T, err error) {
				var ae *AutoconfigError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, AutoconfigPAC, ae.Kind)
			},
		},
		{
			name:  "wpad",
			input: "<dictionary> {\n  ProxyAutoDiscoveryEnable : 1\n}\n",
			check: func(t *testing.T, err error) {
				assert.True(t, IsAutoconfig(err))
				assert.Contains(t, err.Error(), "WPAD")
			},
		},
		{
			name:  "enabled without host",
			input: "<dictionary> {\n  HTTPEnable : 1\n  HTTPPort : 80\n}\n",
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidConfig) },
		},
		{
			name:  "bad port",
			input: "<dictionary> {\n  HTTPEnable : 1\n  HTTPProxy : p\n  HTTPPort : eighty\n}\n",
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidConfig) },
		},
		{
			name:  "garbage",
			input: "not scutil output\n",
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidConfig) },
		},
		{
			name:  "unterminated array",
			input: "<dictionary> {\n  ExceptionsList : <array> {\n    0 : a\n",
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidConfig) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScutil([]byte(tt.input))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestScutilProvider(t *testing.T) {
	p := &ScutilProvider{Run: func(ctx context.Context) ([]byte, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return []byte(scutilSample), nil
	}}

	cfg, err := p.ProxyConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"http", "https"}, cfg.Schemes())
}

func TestScutilProvider_CommandFails(t *testing.T) {
	p := &ScutilProvider{Run: func(context.Context) ([]byte, error) {
		return nil, errors.New("exec: \"scutil\": executable file not found in $PATH")
	}}

	_, err := p.ProxyConfig()
	assert.ErrorIs(t, err, ErrOS)
}
