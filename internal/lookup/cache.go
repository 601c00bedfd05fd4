package lookup

import (
	"sync"
	"time"
)

// TTL is how long a fetched list is served without going back to the store.
const TTL = 5 * time.Minute

type Key struct {
	SpreadsheetID string
	List          string
}

type entry struct {
	values    []string
	fetchedAt time.Time
}

// Cache holds lookup lists per spreadsheet. An expired entry is removed when
// Get finds it; nothing sweeps in the background.
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]entry
	maxEntries int
	now        func() time.Time
}

// NewCache returns an empty cache. maxEntries <= 0 means unbounded.
func NewCache(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[Key]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *Cache) Get(key Key) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= TTL {
		delete(c.entries, key)
		return nil, false
	}
	return append([]string(nil), e.values...), true
}

// Put replaces the entry for key, evicting the oldest entry when the cache is full.
func (c *Cache) Put(key Key, values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = entry{
		values:    append([]string(nil), values...),
		fetchedAt: c.now(),
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldest() {
	var oldest Key
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.fetchedAt.Before(oldestAt) {
			oldest, oldestAt, first = k, e.fetchedAt, false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}
