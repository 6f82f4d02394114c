package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rennerdo30/proxycfg/internal/matcher"
	"github.com/rennerdo30/proxycfg/internal/sysproxy"
)

// defaultPorts fills in the port when a proxy address has none, since PAC
// directives require one.
var defaultPorts = map[string]string{
	"http":   "80",
	"https":  "443",
	"socks":  "1080",
	"socks4": "1080",
	"socks5": "1080",
}

// GeneratePAC renders cfg as a Proxy Auto-Configuration script that makes
// the same decisions as sysproxy.Decide.
func GeneratePAC(cfg *sysproxy.Config) (string, error) {
	var sb strings.Builder

	sb.WriteString(`// Proxy Auto-Configuration (PAC) file
// Generated by proxycfg from the system proxy settings
`)
	fmt.Fprintf(&sb, "// Source: %s\n\n", cfg.Source())
	sb.WriteString(`function FindProxyForURL(url, host) {
    function suffixMatch(str, suffix) {
        return str.length >= suffix.length &&
            str.substring(str.length - suffix.length) === suffix;
    }

    host = host.toLowerCase();
`)

	if cfg.ExcludeSimple() {
		sb.WriteString("    if (isPlainHostName(host)) return \"DIRECT\";\n")
	}

	for _, pattern := range cfg.Whitelist() {
		fmt.Fprintf(&sb, "    if (host === \"%s\") return \"DIRECT\";\n", escapeJS(pattern))
		if suffix, ok := matcher.WildcardSuffix(pattern); ok {
			fmt.Fprintf(&sb, "    if (suffixMatch(host, \"%s\")) return \"DIRECT\";\n", escapeJS(suffix))
		}
	}

	sb.WriteString("\n    var scheme = url.substring(0, url.indexOf(\":\")).toLowerCase();\n")
	for _, scheme := range cfg.Schemes() {
		addr, _ := cfg.Proxy(scheme)
		directive, err := pacDirective(scheme, addr)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "    if (scheme === \"%s\") return \"%s\";\n", escapeJS(scheme), escapeJS(directive))
	}

	sb.WriteString("\n    return \"DIRECT\";\n}\n")
	return sb.String(), nil
}

// pacDirective converts the proxy address configured for scheme to a PAC
// return value such as "PROXY host:port". A missing port comes from the
// address scheme, then from the configured scheme, then defaults to 80.
func pacDirective(configured, addr string) (string, error) {
	u, err := sysproxy.NormalizeAddress("http", strings.ToLower(addr))
	if err != nil {
		return "", err
	}

	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == "" {
		port = defaultPorts[scheme]
	}
	if port == "" {
		port = defaultPorts[strings.ToLower(configured)]
	}
	if port == "" {
		port = "80"
	}
	hostPort := net.JoinHostPort(u.Hostname(), port)

	switch scheme {
	case "https":
		return "HTTPS " + hostPort, nil
	case "socks", "socks5", "socks5h":
		return "SOCKS5 " + hostPort, nil
	case "socks4", "socks4a":
		return "SOCKS " + hostPort, nil
	default:
		return "PROXY " + hostPort, nil
	}
}

func (a *API) handlePAC(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.source.Resolve()
	if err != nil {
		a.writeResolveError(w, err)
		return
	}

	pac, err := GeneratePAC(cfg)
	if err != nil {
		a.writeResolveError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ns-proxy-autoconfig")
	w.Header().Set("Content-Disposition", "inline; filename=\"proxy.pac\"")
	w.Write([]byte(pac))
}

var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// escapeJS escapes a string for use in a JavaScript string literal.
func escapeJS(s string) string {
	return jsEscaper.Replace(s)
}
