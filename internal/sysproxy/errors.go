package sysproxy

import (
	"errors"
	"fmt"
)

// Error kinds reported by config sources and the resolver.
var (
	ErrInvalidConfig          = errors.New("invalid proxy configuration")
	ErrOS                     = errors.New("error getting proxy configuration from the operating system")
	ErrPlatformNotSupported   = errors.New("can not read proxy configuration on this platform")
	ErrNoProxyConfigured      = errors.New("no proxy configuration found")
	ErrNoProxyNeeded          = errors.New("no proxy needed for the given URL")
	ErrAutoconfigNotSupported = errors.New("autoconfiguration type not supported")
	ErrInvalidTarget          = errors.New("invalid target URL")
)

// AutoconfigKind names a script-driven proxy configuration mechanism.
type AutoconfigKind string

const (
	AutoconfigPAC  AutoconfigKind = "PAC"
	AutoconfigWPAD AutoconfigKind = "WPAD"
)

// AutoconfigError is returned by a source whose proxy selection is driven by
// a PAC script or WPAD discovery. It matches ErrAutoconfigNotSupported.
type AutoconfigError struct {
	Kind AutoconfigKind
}

func (e *AutoconfigError) Error() string {
	return fmt.Sprintf("autoconfiguration type not supported: %s", e.Kind)
}

// Is reports whether target is ErrAutoconfigNotSupported.
func (e *AutoconfigError) Is(target error) bool {
	return target == ErrAutoconfigNotSupported
}

// NoProxyForSchemeError is the error form of OutcomeNoProxyForScheme.
type NoProxyForSchemeError struct {
	Scheme string
}

func (e *NoProxyForSchemeError) Error() string {
	return fmt.Sprintf("no proxy found for scheme: '%s'", e.Scheme)
}

// IsInvalidConfig checks if an error is an invalid configuration error.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsNoProxyConfigured checks if a source ran but found no proxy directives.
func IsNoProxyConfigured(err error) bool {
	return errors.Is(err, ErrNoProxyConfigured)
}

// IsAutoconfig checks if an error reports an active PAC or WPAD setup.
func IsAutoconfig(err error) bool {
	return errors.Is(err, ErrAutoconfigNotSupported)
}

// ErrorKind returns a short, stable label for err, suitable for metrics
// labels and structured log fields.
func ErrorKind(err error) string {
	var schemeErr *NoProxyForSchemeError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrOS):
		return "os"
	case errors.Is(err, ErrPlatformNotSupported):
		return "platform_not_supported"
	case errors.Is(err, ErrNoProxyConfigured):
		return "no_proxy_configured"
	case errors.Is(err, ErrAutoconfigNotSupported):
		return "autoconfig"
	case errors.Is(err, ErrNoProxyNeeded):
		return "no_proxy_needed"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.As(err, &schemeErr):
		return "no_proxy_for_scheme"
	default:
		return "other"
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

func osError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrOS, op, err)
}
