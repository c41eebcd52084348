package report

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	report     string
	expiration time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.After(e.expiration)
}

// ExportCache keeps the base64 summary export of each feed. Entries are
// dropped when the feed is deleted or their TTL runs out.
type ExportCache struct {
	mu      sync.RWMutex
	entries map[uint]cacheEntry
	// bumped by Invalidate; builds started under an older value are not stored
	generations map[uint]uint64
	builds      singleflight.Group
	ttl         time.Duration
	now         func() time.Time
}

func NewExportCache(ttl time.Duration) *ExportCache {
	return &ExportCache{
		entries:     make(map[uint]cacheEntry),
		generations: make(map[uint]uint64),
		ttl:         ttl,
		now:         time.Now,
	}
}

func (c *ExportCache) Get(feedID uint) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[feedID]
	if !ok || entry.expired(c.now()) {
		return "", false
	}
	return entry.report, true
}

func (c *ExportCache) Set(feedID uint, report string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[feedID] = cacheEntry{report: report, expiration: c.now().Add(c.ttl)}
}

func (c *ExportCache) Invalidate(feedID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, feedID)
	c.generations[feedID]++
}

func (c *ExportCache) generation(feedID uint) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[feedID]
}

// setIfCurrent stores the report only if the feed was not invalidated since gen.
func (c *ExportCache) setIfCurrent(feedID uint, gen uint64, report string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[feedID] != gen {
		return false
	}
	c.entries[feedID] = cacheEntry{report: report, expiration: c.now().Add(c.ttl)}
	return true
}

// GetOrBuild returns the cached report or builds, stores and returns a new one.
// Concurrent callers for the same feed share one build. Build errors are not
// cached, nor is a report whose feed was invalidated while it was being built.
func (c *ExportCache) GetOrBuild(feedID uint, build func() (string, error)) (string, error) {
	if report, ok := c.Get(feedID); ok {
		return report, nil
	}

	gen := c.generation(feedID)
	v, err, _ := c.builds.Do(fmt.Sprintf("%d/%d", feedID, gen), func() (interface{}, error) {
		report, err := build()
		if err != nil {
			return "", err
		}
		c.setIfCurrent(feedID, gen, report)
		return report, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Sweep removes expired entries and returns how many were dropped.
func (c *ExportCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for id, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, id)
			dropped++
		}
	}
	return dropped
}

func (c *ExportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper runs Sweep on the given cron spec. The caller stops the returned scheduler.
func (c *ExportCache) StartSweeper(spec string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.UTC
	}
	sched := cron.New(cron.WithLocation(loc))

	_, err := sched.AddFunc(spec, func() {
		if n := c.Sweep(); n > 0 {
			log.Printf("Export cache: %d expired reports dropped", n)
		}
	})
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("Export cache sweeper started (%s)", spec)
	return sched, nil
}
