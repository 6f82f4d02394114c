package sysproxy

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const scutilTimeout = time.Second

// scutilProtocols maps the scutil key prefix to the config scheme and the
// default scheme used to normalize the endpoint.
var scutilProtocols = []struct {
	prefix        string
	scheme        string
	defaultScheme string
}{
	{"HTTP", "http", "http"},
	{"HTTPS", "https", "https"},
	{"FTP", "ftp", "http"},
	{"SOCKS", "socks", "socks5"},
}

// ScutilProvider reads the macOS System Configuration proxy dictionary
// through "scutil --proxy".
type ScutilProvider struct {
	// Run returns the scutil output. Defaults to executing scutil.
	Run func(ctx context.Context) ([]byte, error)
}

func (p *ScutilProvider) Name() string { return "scutil" }

func (p *ScutilProvider) ProxyConfig() (*Config, error) {
	run := p.Run
	if run == nil {
		run = runScutil
	}

	ctx, cancel := context.WithTimeout(context.Background(), scutilTimeout)
	defer cancel()

	out, err := run(ctx)
	if err != nil {
		return nil, osError("scutil --proxy", err)
	}
	return ParseScutil(out)
}

func runScutil(ctx context.Context) ([]byte, error) {
	return exec.CommandContext(ctx, "scutil", "--proxy").Output()
}

// ScutilDict is the parsed form of a "scutil --proxy" dictionary dump.
type ScutilDict struct {
	Values map[string]string
	Arrays map[string][]string
}

// ParseScutilDict parses the output of "scutil --proxy":
//
//	<dictionary> {
//	  ExceptionsList : <array> {
//	    0 : *.local
//	  }
//	  HTTPEnable : 1
//	  HTTPPort : 8080
//	  HTTPProxy : proxy.example.com
//	}
func ParseScutilDict(out []byte) (ScutilDict, error) {
	dict := ScutilDict{
		Values: make(map[string]string),
		Arrays: make(map[string][]string),
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	var arrayKey string
	inArray := false
	keepArray := false
	depth := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "}" {
			if inArray {
				inArray = false
			} else {
				depth--
			}
			continue
		}
		if strings.HasPrefix(line, "<dictionary>") {
			depth++
			continue
		}

		key, value, ok := strings.Cut(line, " : ")
		if !ok {
			return ScutilDict{}, invalidf("unexpected scutil line %q", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if inArray {
			if keepArray {
				dict.Arrays[arrayKey] = append(dict.Arrays[arrayKey], value)
			}
			continue
		}
		if strings.HasPrefix(value, "<array>") {
			arrayKey = key
			inArray = true
			// Arrays of nested dictionaries such as __SCOPED__ are skipped.
			keepArray = depth == 1
			if keepArray {
				dict.Arrays[key] = []string{}
			}
			continue
		}
		if strings.HasPrefix(value, "<dictionary>") {
			depth++
			continue
		}
		if depth == 1 {
			dict.Values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return ScutilDict{}, osError("read scutil output", err)
	}
	if inArray {
		return ScutilDict{}, invalidf("unterminated scutil array %q", arrayKey)
	}

	return dict, nil
}

// ParseScutil converts "scutil --proxy" output into a Config. An enabled
// PAC URL or auto discovery yields an *AutoconfigError.
func ParseScutil(out []byte) (*Config, error) {
	dict, err := ParseScutilDict(out)
	if err != nil {
		return nil, err
	}

	if dict.Values["ProxyAutoConfigEnable"] == "1" {
		return nil, &AutoconfigError{Kind: AutoconfigPAC}
	}
	if dict.Values["ProxyAutoDiscoveryEnable"] == "1" {
		return nil, &AutoconfigError{Kind: AutoconfigWPAD}
	}

	b := NewBuilder("scutil")
	for _, proto := range scutilProtocols {
		if dict.Values[proto.prefix+"Enable"] != "1" {
			continue
		}
		host := dict.Values[proto.prefix+"Proxy"]
		if host == "" {
			return nil, invalidf("%sEnable is set without %sProxy", proto.prefix, proto.prefix)
		}
		addr := host
		if port, ok := dict.Values[proto.prefix+"Port"]; ok {
			if _, err := strconv.ParseUint(port, 10, 16); err != nil {
				return nil, invalidf("%sPort %q is not a port number", proto.prefix, port)
			}
			addr = net.JoinHostPort(host, port)
		}
		u, err := NormalizeAddress(proto.defaultScheme, addr)
		if err != nil {
			return nil, err
		}
		b.Proxy(proto.scheme, u.String())
	}

	if !b.HasProxies() {
		return nil, ErrNoProxyConfigured
	}

	b.Bypass(dict.Arrays["ExceptionsList"]...)
	b.ExcludeSimple(dict.Values["ExcludeSimpleHostnames"] == "1")
	return b.Build(), nil
}
