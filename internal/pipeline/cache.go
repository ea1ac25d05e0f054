package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/couchcryptid/emissions-impact-etl/internal/observability"
)

// CachedExtractor wraps an Extractor with an in-memory LRU cache keyed by
// path and content digest, so an unchanged file is parsed once and an edited
// one is reloaded.
type CachedExtractor struct {
	inner   Extractor
	cache   *lruCache[domain.RawTable]
	metrics *observability.Metrics
}

// NewCachedExtractor creates a cache decorator around an extractor.
func NewCachedExtractor(inner Extractor, maxEntries int, metrics *observability.Metrics) *CachedExtractor {
	return &CachedExtractor{
		inner:   inner,
		cache:   newLRUCache[domain.RawTable](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedExtractor) Extract(ctx context.Context, path string) (domain.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// The inner extractor owns error classification.
		return c.inner.Extract(ctx, path)
	}
	sum := sha256.Sum256(data)
	key := path + "|" + hex.EncodeToString(sum[:])

	if table, ok := c.cache.get(key); ok {
		c.metrics.LoadCache.WithLabelValues("hit").Inc()
		return table, nil
	}
	c.metrics.LoadCache.WithLabelValues("miss").Inc()

	table, err := c.inner.Extract(ctx, path)
	if err != nil {
		return table, err
	}
	c.cache.put(key, table)
	return table, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
