package sysproxy

import (
	"strings"
	"unicode"
)

// RegistryScope selects which registry hive WinINet settings are read from.
type RegistryScope int

const (
	ScopeUser RegistryScope = iota
	ScopeMachine
)

func (s RegistryScope) String() string {
	if s == ScopeMachine {
		return "machine"
	}
	return "user"
}

const (
	internetSettingsKey   = `Software\Microsoft\Windows\CurrentVersion\Internet Settings`
	connectionsKey        = internetSettingsKey + `\Connections`
	internetPolicyKey     = `Software\Policies\Microsoft\Windows\CurrentVersion\Internet Settings`
	localBypassEntry      = "<local>"
	connectionFlagsOffset = 8
	connectionFlagPAC     = 1 << 2
	connectionFlagWPAD    = 1 << 3
)

// AutoconfigFromConnectionSettings inspects a DefaultConnectionSettings
// blob. Byte 9 holds the connection flags: bit 2 is "use automatic
// configuration script" (PAC), bit 3 is "automatically detect settings"
// (WPAD).
func AutoconfigFromConnectionSettings(blob []byte) (AutoconfigKind, bool) {
	if len(blob) <= connectionFlagsOffset {
		return "", false
	}
	flags := blob[connectionFlagsOffset]
	switch {
	case flags&connectionFlagPAC != 0:
		return AutoconfigPAC, true
	case flags&connectionFlagWPAD != 0:
		return AutoconfigWPAD, true
	default:
		return "", false
	}
}

// ParseProxyServer parses a WinINet/WinHTTP proxy list. The value is either
// a single address, which applies to "http", or a list of scheme=address
// pairs separated by ';' or whitespace. Addresses are normalized with their
// scheme as the default.
func ParseProxyServer(value string) (map[string]string, error) {
	fields := splitProxyList(value)
	proxies := make(map[string]string, len(fields))
	if len(fields) == 0 {
		return proxies, nil
	}

	if len(fields) == 1 && !strings.Contains(fields[0], "=") {
		u, err := NormalizeAddress("http", fields[0])
		if err != nil {
			return nil, err
		}
		proxies["http"] = u.String()
		return proxies, nil
	}

	for _, field := range fields {
		scheme, addr, ok := strings.Cut(field, "=")
		scheme = strings.ToLower(strings.TrimSpace(scheme))
		if !ok || scheme == "" || addr == "" {
			return nil, invalidf("invalid proxy list entry %q", field)
		}
		u, err := NormalizeAddress(scheme, addr)
		if err != nil {
			return nil, err
		}
		proxies[scheme] = u.String()
	}
	return proxies, nil
}

// ParseProxyOverride parses a bypass list separated by ';' or whitespace.
// The special entry "<local>" turns on excludeSimple instead of being
// added to the whitelist.
func ParseProxyOverride(value string) (whitelist []string, excludeSimple bool) {
	for _, field := range splitProxyList(value) {
		if strings.EqualFold(field, localBypassEntry) {
			excludeSimple = true
			continue
		}
		whitelist = append(whitelist, field)
	}
	return whitelist, excludeSimple
}

// winINetConfig builds a Config from the raw ProxyServer and ProxyOverride
// values of one registry scope.
func winINetConfig(source, server, override string) (*Config, error) {
	proxies, err := ParseProxyServer(server)
	if err != nil {
		return nil, err
	}
	if len(proxies) == 0 {
		return nil, ErrNoProxyConfigured
	}

	whitelist, excludeSimple := ParseProxyOverride(override)
	return NewConfig(source, proxies, whitelist, excludeSimple), nil
}

func splitProxyList(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ';' || unicode.IsSpace(r)
	})
}
