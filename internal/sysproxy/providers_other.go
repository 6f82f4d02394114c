//go:build !windows && !darwin && !linux

package sysproxy

// Only environment variables are consulted on other platforms.
func platformProviders(_ Options) []Provider {
	return nil
}
