package config

// DefaultToolConfigTemplate is the commented configuration written by
// "proxycfg config init".
const DefaultToolConfigTemplate = `# proxycfg configuration

# Logging
logging:
  level: info          # debug, info, warn, error
  format: text         # text or json
  output: stderr       # stdout, stderr, or a file path
  # Rotation, used when output is a file
  max_size_mb: 50
  max_backups: 3
  max_age_days: 28

# Proxy sources
# Sources are consulted in platform order; the first one that yields a
# configuration wins. Environment variables always come first.
sources:
  # Skip sources by name: env, wininet-user, wininet-machine, winhttp,
  # scutil, sysconfig
  # disabled: [env]
  # sysconfig_path: /etc/sysconfig/proxy

# Decision policy
decision:
  # What to report when a URL's scheme has no configured proxy:
  #   direct  connect directly (default)
  #   error   report "no proxy found for scheme"
  missing_scheme: direct

# Lookup service ("proxycfg serve")
api:
  listen: "127.0.0.1:8089"
  max_connections: 64            # 0 means unlimited
  # token: "${PROXYCFG_TOKEN}"   # Bearer token required by /api/v1 when set
  # token_hash: "$2a$12$..."     # or its bcrypt hash ("proxycfg config hash-token")
  cache_ttl: "30s"               # How long a resolved configuration is reused
  watch: true                    # Drop the cache when the sysconfig file changes
`
