// Package fdcache maintains working descriptors: read-only descriptors
// the shim keeps open on source files so they can serve as the source
// side of range clones.
package fdcache

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"writededuper/internal/sysio"
)

// Default cache policy. Collection runs once the population reaches
// CollectThreshold and removes entries idle longer than MaxAge.
const (
	CollectThreshold = 1000
	MaxAge           = time.Second
)

// entry is one cached working descriptor.
type entry struct {
	fd    int
	atime time.Time // last use
}

// Cache maps a path to an open, readable descriptor on that path.
//
// The cache holds at most one descriptor per path. Safe for concurrent
// use. Evicted descriptors are closed through the native close path,
// never through an interposed primitive.
type Cache struct {
	sys sysio.SysIO

	mu      sync.Mutex
	entries map[string]*entry

	threshold int
	maxAge    time.Duration
	now       func() time.Time
}

// New returns an empty cache with the default collection policy.
func New(sys sysio.SysIO) *Cache {
	return &Cache{
		sys:       sys,
		entries:   make(map[string]*entry),
		threshold: CollectThreshold,
		maxAge:    MaxAge,
		now:       time.Now,
	}
}

// Acquire returns a readable descriptor for path, opening one if the
// cache holds none. A cached descriptor has its last-use time refreshed.
// Open failures are returned verbatim.
//
// The returned descriptor remains owned by the cache; callers must not
// close it.
func (c *Cache) Acquire(path string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maybeCollect()

	if e, ok := c.entries[path]; ok {
		e.atime = c.now()

		return e.fd, nil
	}

	fd, err := c.sys.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return -1, err
	}

	c.entries[path] = &entry{fd: fd, atime: c.now()}

	return fd, nil
}

// maybeCollect deletes entries idle longer than the max-age bound once
// the population is at or above the threshold. Caller holds c.mu.
func (c *Cache) maybeCollect() {
	if len(c.entries) < c.threshold {
		return
	}

	cutoff := c.now().Add(-c.maxAge)

	for path, e := range c.entries {
		if e.atime.Before(cutoff) {
			_ = c.sys.Close(e.fd)
			delete(c.entries, path)
		}
	}
}

// Len returns the current population.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Close closes every cached descriptor and empties the cache.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path, e := range c.entries {
		_ = c.sys.Close(e.fd)
		delete(c.entries, path)
	}

	return nil
}
