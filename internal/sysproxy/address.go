package sysproxy

import (
	"net/url"
	"strings"
)

const schemeSeparator = "://"

// NormalizeAddress turns a proxy address into a fully qualified URL. An
// address without a scheme, such as "1.2.3.4:8080", gets defaultScheme.
// An explicit scheme in raw is kept.
func NormalizeAddress(defaultScheme, raw string) (*url.URL, error) {
	switch strings.Count(raw, schemeSeparator) {
	case 0:
		raw = defaultScheme + schemeSeparator + raw
	case 1:
	default:
		return nil, invalidf("proxy address %q has more than one scheme", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, invalidf("proxy address: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, invalidf("proxy address %q has no host", raw)
	}
	return u, nil
}
