package server

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rennerdo30/proxycfg/internal/logging"
	"github.com/rennerdo30/proxycfg/internal/metrics"
	"github.com/rennerdo30/proxycfg/internal/sysproxy"
)

const resolvedKey = "resolved"

// ConfigSource yields the current proxy configuration. *sysproxy.Resolver
// implements it.
type ConfigSource interface {
	Resolve() (*sysproxy.Config, error)
}

type resolution struct {
	cfg *sysproxy.Config
	err error
}

// ConfigCache reuses a resolution, successful or not, for a fixed TTL. A
// zero TTL disables caching.
type ConfigCache struct {
	source  ConfigSource
	ttl     time.Duration
	cache   *gocache.Cache
	metrics *metrics.Metrics

	// serializes resolution so concurrent misses query the OS once
	mu sync.Mutex
}

// NewConfigCache wraps source. m may be nil.
func NewConfigCache(source ConfigSource, ttl time.Duration, m *metrics.Metrics) *ConfigCache {
	cleanup := 2 * ttl
	if ttl <= 0 {
		cleanup = 0
	}
	return &ConfigCache{
		source:  source,
		ttl:     ttl,
		cache:   gocache.New(ttl, cleanup),
		metrics: m,
	}
}

// Resolve returns the cached resolution or resolves anew.
func (c *ConfigCache) Resolve() (*sysproxy.Config, error) {
	if c.ttl <= 0 {
		return c.source.Resolve()
	}

	if res, ok := c.lookup(); ok {
		c.record("hit")
		return res.cfg, res.err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if res, ok := c.lookup(); ok {
		c.record("hit")
		return res.cfg, res.err
	}

	c.record("miss")
	cfg, err := c.source.Resolve()
	c.cache.Set(resolvedKey, resolution{cfg: cfg, err: err}, gocache.DefaultExpiration)
	return cfg, err
}

// Invalidate drops the cached resolution.
func (c *ConfigCache) Invalidate() {
	c.cache.Delete(resolvedKey)
	c.record("invalidate")
	logging.WithComponent("cache").Debug("resolved configuration invalidated")
}

func (c *ConfigCache) lookup() (resolution, bool) {
	v, ok := c.cache.Get(resolvedKey)
	if !ok {
		return resolution{}, false
	}
	return v.(resolution), true
}

func (c *ConfigCache) record(event string) {
	if c.metrics != nil {
		c.metrics.RecordCache(event)
	}
}
