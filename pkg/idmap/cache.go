package idmap

import "sync"

// Cache is a small thread-safe record collection with linear matching.
// Collections stay tiny (one entry per distinct identity seen by the
// client), so a scan under an RWMutex beats maintaining several indexes
// per key kind.
//
// Lookup and Insert are separate operations. Two goroutines missing on
// the same key may both query the backend; the second Insert overwrites
// the first, which is harmless.
type Cache[R any] struct {
	mu      sync.RWMutex
	records []R
}

func NewCache[R any]() *Cache[R] {
	return &Cache[R]{}
}

// Lookup returns a copy of the first record matching the predicate.
func (c *Cache[R]) Lookup(match func(*R) bool) (R, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.records {
		if match(&c.records[i]) {
			return c.records[i], true
		}
	}
	var zero R
	return zero, false
}

// Insert stores rec, overwriting the first record matching the
// predicate in place, or appending when none matches. Overwriting keeps
// a refreshed identity as a single entry instead of accumulating
// duplicates.
func (c *Cache[R]) Insert(match func(*R) bool, rec R) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.records {
		if match(&c.records[i]) {
			c.records[i] = rec
			return
		}
	}
	c.records = append(c.records, rec)
}

// Clear drops all records.
func (c *Cache[R]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

// Len returns the number of cached records.
func (c *Cache[R]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
