//go:build linux

package sysproxy

func platformProviders(opts Options) []Provider {
	return []Provider{&SysconfigProvider{Path: opts.SysconfigPath}}
}
