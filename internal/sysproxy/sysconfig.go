package sysproxy

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

// DefaultSysconfigPath is the proxy file on SUSE and Red Hat style systems.
const DefaultSysconfigPath = "/etc/sysconfig/proxy"

// SysconfigProvider reads a sysconfig proxy file, a list of KEY="value"
// lines. PROXY_ENABLED must be "yes" or "no".
type SysconfigProvider struct {
	Path string
}

func (p *SysconfigProvider) Name() string { return "sysconfig" }

// ProxyConfig returns an empty config when PROXY_ENABLED="no".
func (p *SysconfigProvider) ProxyConfig() (*Config, error) {
	path := p.Path
	if path == "" {
		path = DefaultSysconfigPath
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, osError("sysconfig file not found", err)
		}
		return nil, osError("open sysconfig file", err)
	}
	defer f.Close()

	values, err := ParseSysconfig(f)
	if err != nil {
		return nil, err
	}
	return sysconfigToConfig(p.Name(), values)
}

func sysconfigToConfig(source string, values map[string]string) (*Config, error) {
	b := NewBuilder(source)

	enabled, ok := values["PROXY_ENABLED"]
	if !ok {
		return nil, invalidf("missing PROXY_ENABLED directive")
	}
	switch enabled {
	case "yes":
	case "no":
		return b.Build(), nil
	default:
		return nil, invalidf("PROXY_ENABLED must be \"yes\" or \"no\", got %q", enabled)
	}

	for _, scheme := range []string{"HTTP", "HTTPS", "FTP"} {
		if addr, ok := values[scheme+"_PROXY"]; ok {
			b.Proxy(scheme, addr)
		}
	}

	if noProxy, ok := values["NO_PROXY"]; ok {
		b.Bypass(strings.Split(noProxy, ",")...)
	}

	return b.Build(), nil
}

// ParseSysconfig reads KEY="value" pairs, one per line. Blank lines and
// lines starting with '#' are skipped. Anything after the closing quote is
// ignored, and a missing closing quote is tolerated. A non-blank line
// without `="` is ErrInvalidConfig.
func ParseSysconfig(r io.Reader) (map[string]string, error) {
	result := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, rest, ok := strings.Cut(line, `="`)
		if !ok {
			return nil, invalidf("sysconfig line %d: expected KEY=\"value\"", lineNo)
		}
		value, _, _ := strings.Cut(rest, `"`)
		result[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, osError("read sysconfig file", err)
	}

	return result, nil
}
