package config

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/rennerdo30/proxycfg/internal/logging"
)

// Missing scheme policies.
const (
	MissingSchemeDirect = "direct"
	MissingSchemeError  = "error"
)

// KnownSources lists the provider names that can be disabled.
var KnownSources = []string{"env", "wininet-user", "wininet-machine", "winhttp", "scutil", "sysconfig"}

// ToolConfig is the proxycfg configuration file.
type ToolConfig struct {
	Logging  logging.Config `yaml:"logging" json:"logging"`
	Sources  SourcesConfig  `yaml:"sources" json:"sources"`
	Decision DecisionConfig `yaml:"decision" json:"decision"`
	API      APIConfig      `yaml:"api" json:"api"`
}

// SourcesConfig controls which providers the resolver consults.
type SourcesConfig struct {
	Disabled      []string `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	SysconfigPath string   `yaml:"sysconfig_path,omitempty" json:"sysconfig_path,omitempty"`
}

// DecisionConfig controls how a URL whose scheme has no proxy is reported.
// "direct" treats it as a direct connection, "error" reports an error.
type DecisionConfig struct {
	MissingScheme string `yaml:"missing_scheme" json:"missing_scheme"`
}

// MissingSchemeIsError reports whether a missing scheme should fail a lookup.
func (d DecisionConfig) MissingSchemeIsError() bool {
	return strings.EqualFold(d.MissingScheme, MissingSchemeError)
}

// APIConfig configures the lookup service started by "serve".
type APIConfig struct {
	Listen string `yaml:"listen" json:"listen"`

	// MaxConnections caps concurrent connections; 0 means unlimited.
	MaxConnections int `yaml:"max_connections" json:"max_connections"`

	Token     string `yaml:"token,omitempty" json:"-"`
	TokenHash string `yaml:"token_hash,omitempty" json:"-"` // bcrypt

	CacheTTL Duration `yaml:"cache_ttl" json:"cache_ttl"`
	Watch    bool     `yaml:"watch" json:"watch"`
}

// DefaultToolConfig returns the configuration used when no file is present.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		Logging: logging.DefaultConfig(),
		Decision: DecisionConfig{
			MissingScheme: MissingSchemeDirect,
		},
		API: APIConfig{
			Listen:         "127.0.0.1:8089",
			MaxConnections: 64,
			CacheTTL:       Duration(30 * time.Second),
			Watch:          true,
		},
	}
}

// Validate checks the tool configuration.
func (c *ToolConfig) Validate() error {
	switch strings.ToLower(c.Decision.MissingScheme) {
	case MissingSchemeDirect, MissingSchemeError, "":
	default:
		return fmt.Errorf("decision.missing_scheme must be %q or %q, got %q",
			MissingSchemeDirect, MissingSchemeError, c.Decision.MissingScheme)
	}

	for _, name := range c.Sources.Disabled {
		if !isKnownSource(name) {
			return fmt.Errorf("sources.disabled: unknown source %q", name)
		}
	}

	if c.API.Listen != "" {
		if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
			return fmt.Errorf("api.listen: %w", err)
		}
	}
	if c.API.CacheTTL < 0 {
		return fmt.Errorf("api.cache_ttl must not be negative")
	}
	if c.API.MaxConnections < 0 {
		return fmt.Errorf("api.max_connections must not be negative")
	}
	if c.API.TokenHash != "" {
		if _, err := bcrypt.Cost([]byte(c.API.TokenHash)); err != nil {
			return fmt.Errorf("api.token_hash is not a bcrypt hash: %w", err)
		}
	}

	return nil
}

func isKnownSource(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, known := range KnownSources {
		if name == known {
			return true
		}
	}
	return false
}

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
