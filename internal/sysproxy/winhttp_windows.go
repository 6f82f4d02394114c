//go:build windows

package sysproxy

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modwinhttp                              = windows.NewLazySystemDLL("winhttp.dll")
	modkernel32                             = windows.NewLazySystemDLL("kernel32.dll")
	procWinHttpGetDefaultProxyConfiguration = modwinhttp.NewProc("WinHttpGetDefaultProxyConfiguration")
	procGlobalFree                          = modkernel32.NewProc("GlobalFree")
)

const winHTTPAccessTypeNamedProxy = 3

// winHTTPProxyInfo mirrors WINHTTP_PROXY_INFO.
type winHTTPProxyInfo struct {
	accessType  uint32
	proxy       *uint16
	proxyBypass *uint16
}

// WinHTTPProvider reads the machine-wide WinHTTP default proxy, as set by
// "netsh winhttp set proxy".
type WinHTTPProvider struct{}

func (p *WinHTTPProvider) Name() string { return "winhttp" }

func (p *WinHTTPProvider) ProxyConfig() (*Config, error) {
	if err := procWinHttpGetDefaultProxyConfiguration.Find(); err != nil {
		return nil, osError("load winhttp", err)
	}

	var info winHTTPProxyInfo
	r1, _, callErr := procWinHttpGetDefaultProxyConfiguration.Call(uintptr(unsafe.Pointer(&info)))
	if r1 == 0 {
		return nil, osError("WinHttpGetDefaultProxyConfiguration", callErr)
	}
	defer globalFree(info.proxy)
	defer globalFree(info.proxyBypass)

	if info.accessType != winHTTPAccessTypeNamedProxy || info.proxy == nil {
		return nil, ErrNoProxyConfigured
	}

	server := windows.UTF16PtrToString(info.proxy)
	var bypass string
	if info.proxyBypass != nil {
		bypass = windows.UTF16PtrToString(info.proxyBypass)
	}
	return winINetConfig(p.Name(), server, bypass)
}

func globalFree(p *uint16) {
	if p != nil {
		procGlobalFree.Call(uintptr(unsafe.Pointer(p)))
	}
}
