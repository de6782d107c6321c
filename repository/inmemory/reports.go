package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

type entry struct {
	report  core.HealthReport
	expires time.Time
}

// ReportCache is a process-local TTL map. Expired entries are dropped lazily
// on read.
type ReportCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]entry
}

func NewReportCache(now func() time.Time) *ReportCache {
	if now == nil {
		now = time.Now
	}
	return &ReportCache{now: now, entries: make(map[string]entry)}
}

func (c *ReportCache) Get(_ context.Context, key string) (core.HealthReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return core.HealthReport{}, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return core.HealthReport{}, false, nil
	}
	return e.report, true, nil
}

func (c *ReportCache) Set(_ context.Context, key string, report core.HealthReport, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{report: report, expires: c.now().Add(ttl)}
	return nil
}

// Len counts entries, expired ones included.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
