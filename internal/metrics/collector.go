package metrics

import (
	"runtime"
	"sync"
	"time"
)

const collectInterval = 15 * time.Second

// Collector updates the system gauges periodically while the lookup
// service runs.
type Collector struct {
	metrics   *Metrics
	startTime time.Time
	ticker    *time.Ticker
	done      chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewCollector creates a collector for m.
func NewCollector(m *Metrics) *Collector {
	return &Collector{
		metrics:   m,
		startTime: time.Now(),
	}
}

// Start begins periodic collection. It is a no-op if already running.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	c.running = true
	c.done = make(chan struct{})
	c.ticker = time.NewTicker(collectInterval)

	go c.collectLoop(c.done, c.ticker)
}

// Stop ends periodic collection.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	close(c.done)
	c.ticker.Stop()
	c.running = false
}

func (c *Collector) collectLoop(done <-chan struct{}, ticker *time.Ticker) {
	c.collect()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	c.metrics.Uptime.Set(time.Since(c.startTime).Seconds())
	c.metrics.GoRoutines.Set(float64(runtime.NumGoroutine()))
}
