// Package filecache memoizes small, frequently-served static file
// contents by path so repeat GETs skip the stat->open->read->close chain.
//
// It is reactor-local: no internal locking, consulted and mutated only
// from the reactor's single goroutine, matching the concurrency model the
// rest of this module follows for anything the reactor owns outright.
package filecache

import "github.com/behrlich/ringd/internal/slab"

// SmallKeyMax is the longest path this cache indexes. Longer paths are
// never memoized — tryGet reports a miss and put is a no-op for them,
// rather than aborting the process the way the design this was adapted
// from does for an over-length key.
const SmallKeyMax = 32

// SmallKey is a fixed-capacity path key. Equality compares length first,
// then bytes, so two keys of different length are never mistaken equal
// even when one is a prefix of the other.
type SmallKey struct {
	len  int
	path [SmallKeyMax]byte
}

// NewSmallKey builds a SmallKey from path, or (_, false) if path is
// longer than SmallKeyMax.
func NewSmallKey(path string) (SmallKey, bool) {
	if len(path) > SmallKeyMax {
		return SmallKey{}, false
	}
	var k SmallKey
	k.len = len(path)
	copy(k.path[:], path)
	return k, true
}

func (k SmallKey) String() string {
	return string(k.path[:k.len])
}

type entry struct {
	data []byte
}

// Cache is a permanent (no-eviction, v1) path -> contents memoization
// table for paths up to SmallKeyMax bytes.
type Cache struct {
	entries map[SmallKey]entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[SmallKey]entry)}
}

// TryGet returns the cached contents for path and true, or (nil, false)
// on a miss (including a path too long to have ever been cached).
func (c *Cache) TryGet(path string) ([]byte, bool) {
	key, ok := NewSmallKey(path)
	if !ok {
		return nil, false
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Put stores data under path, taking ownership of the slice (the caller
// must not mutate or free it afterward). A path too long for SmallKey is
// silently not cached — the caller still got its data, it just won't be
// memoized for the next request. Put returns the stored slice so the
// caller can respond with the canonical (now-cached) copy.
func (c *Cache) Put(path string, data []byte) []byte {
	key, ok := NewSmallKey(path)
	if !ok {
		return data
	}
	c.entries[key] = entry{data: data}
	return data
}

// Clear frees every cached entry's bytes through alloc and empties the
// cache. Called once, at shutdown.
func (c *Cache) Clear(alloc *slab.Allocator) {
	for _, e := range c.entries {
		alloc.Free(e.data)
	}
	c.entries = make(map[SmallKey]entry)
}
