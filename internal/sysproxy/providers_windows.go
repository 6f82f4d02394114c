//go:build windows

package sysproxy

// User settings win over machine settings unless the ProxySettingsPerUser
// policy disables them; the WinHTTP default proxy is the last resort.
func platformProviders(_ Options) []Provider {
	return []Provider{
		&WinINetProvider{Scope: ScopeUser},
		&WinINetProvider{Scope: ScopeMachine},
		&WinHTTPProvider{},
	}
}
