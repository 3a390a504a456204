// Package cache keeps extraction results so unchanged documents are not
// parsed and segmented again. Results live in an in-memory LRU and, when a
// content-addressed store is attached, on disk across runs.
package cache

import (
	"container/list"
	"encoding/json"
	"sync"

	"github.com/FocuswithJustin/corpuspairs/core/cas"
	"github.com/FocuswithJustin/corpuspairs/core/pairs"
)

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	// DiskHits counts memory misses served by the store.
	DiskHits int64
	Size     int
	MaxSize  int
}

// entry represents a cache entry.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a thread-safe least-recently-used cache. MaxSize 0 means unlimited.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	maxSize   int
	entries   map[K]*list.Element
	evictList *list.List
	stats     Stats
}

// NewLRU creates an LRU holding at most maxSize entries.
func NewLRU[K comparable, V any](maxSize int) *LRU[K, V] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &LRU[K, V]{
		maxSize:   maxSize,
		entries:   make(map[K]*list.Element),
		evictList: list.New(),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.evictList.MoveToFront(ent)
	c.stats.Hits++
	return ent.Value.(*entry[K, V]).value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry[K, V]).value = value
		return
	}

	c.entries[key] = c.evictList.PushFront(&entry[K, V]{key: key, value: value})
	if c.maxSize > 0 && c.evictList.Len() > c.maxSize {
		oldest := c.evictList.Back()
		c.evictList.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry[K, V]).key)
		c.stats.Evictions++
	}
}

// Len returns the number of entries in the cache.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.evictList.Len()
	s.MaxSize = c.maxSize
	return s
}

// DefaultSize is the number of documents Pairs keeps in memory.
const DefaultSize = 512

// Pairs caches the sentence pairs of documents. Keys come from Key.
type Pairs struct {
	mem   *LRU[string, []pairs.SentencePair]
	store *cas.Store

	mu       sync.Mutex
	diskHits int64
}

// NewPairs creates a pairs cache. store may be nil for a memory-only cache.
func NewPairs(store *cas.Store, maxSize int) *Pairs {
	return &Pairs{
		mem:   NewLRU[string, []pairs.SentencePair](maxSize),
		store: store,
	}
}

// Key identifies the pairs of document data extracted under pipeline, a
// string naming everything besides the bytes that shapes the result
// (schema family and segmenter backend).
func Key(data []byte, pipeline string) string {
	return cas.Key(data, []byte(pipeline))
}

// Get returns the cached pairs for key. A disk hit is promoted to memory.
// Unreadable disk entries count as misses.
func (c *Pairs) Get(key string) ([]pairs.SentencePair, bool) {
	if ps, ok := c.mem.Get(key); ok {
		return ps, true
	}
	if c.store == nil {
		return nil, false
	}

	data, err := c.store.GetKeyed(key)
	if err != nil {
		return nil, false
	}
	var ps []pairs.SentencePair
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, false
	}
	if ps == nil {
		ps = []pairs.SentencePair{}
	}

	c.mem.Put(key, ps)
	c.mu.Lock()
	c.diskHits++
	c.mu.Unlock()
	return ps, true
}

// Put caches ps under key, writing through to the store when one is
// attached.
func (c *Pairs) Put(key string, ps []pairs.SentencePair) error {
	c.mem.Put(key, ps)
	if c.store == nil {
		return nil
	}

	if ps == nil {
		ps = []pairs.SentencePair{}
	}
	data, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	_, err = c.store.PutKeyed(key, data)
	return err
}

// Stats returns cache statistics. Misses are memory misses; those found on
// disk are also counted in DiskHits.
func (c *Pairs) Stats() Stats {
	s := c.mem.Stats()
	c.mu.Lock()
	s.DiskHits = c.diskHits
	c.mu.Unlock()
	return s
}
