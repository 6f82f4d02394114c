//go:build darwin

package sysproxy

func platformProviders(_ Options) []Provider {
	return []Provider{&ScutilProvider{}}
}
