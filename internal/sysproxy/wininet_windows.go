//go:build windows

package sysproxy

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// WinINetProvider reads the Internet Settings of one registry scope.
type WinINetProvider struct {
	Scope RegistryScope
}

func (p *WinINetProvider) Name() string { return "wininet-" + p.Scope.String() }

// ProxyConfig fails with an *AutoconfigError when the scope uses PAC or WPAD,
// so the resolver moves on to the next scope.
func (p *WinINetProvider) ProxyConfig() (*Config, error) {
	root := registry.CURRENT_USER
	if p.Scope == ScopeMachine {
		root = registry.LOCAL_MACHINE
	}

	if p.Scope == ScopeUser && machineEnforced() {
		return nil, fmt.Errorf("%w: proxy settings are enforced per machine", ErrNoProxyConfigured)
	}

	if kind, ok := scopeAutoconfig(root); ok {
		return nil, &AutoconfigError{Kind: kind}
	}

	k, err := registry.OpenKey(root, internetSettingsKey, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, ErrNoProxyConfigured
		}
		return nil, osError("open internet settings", err)
	}
	defer k.Close()

	enabled, _, err := k.GetIntegerValue("ProxyEnable")
	if err != nil || enabled == 0 {
		return nil, ErrNoProxyConfigured
	}

	server, _, err := k.GetStringValue("ProxyServer")
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, ErrNoProxyConfigured
		}
		return nil, osError("read ProxyServer", err)
	}

	override, _, err := k.GetStringValue("ProxyOverride")
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return nil, osError("read ProxyOverride", err)
	}

	return winINetConfig(p.Name(), server, override)
}

// machineEnforced reports whether the ProxySettingsPerUser policy is 0.
func machineEnforced() bool {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, internetPolicyKey, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer k.Close()

	perUser, _, err := k.GetIntegerValue("ProxySettingsPerUser")
	return err == nil && perUser == 0
}

func scopeAutoconfig(root registry.Key) (AutoconfigKind, bool) {
	k, err := registry.OpenKey(root, connectionsKey, registry.QUERY_VALUE)
	if err != nil {
		return "", false
	}
	defer k.Close()

	blob, _, err := k.GetBinaryValue("DefaultConnectionSettings")
	if err != nil {
		return "", false
	}
	return AutoconfigFromConnectionSettings(blob)
}
