package page

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxPages is the buffer pool's default capacity (~16 MiB at the
// default page size).
const DefaultMaxPages = 1024

// Loader fetches a page from durable storage on a cache miss.
type Loader func() (*Page, error)

// Writer persists a dirty page to durable storage, used both by
// FlushAll and by the eviction callback when a dirty page is pushed out
// of the cache.
type Writer interface {
	WritePage(p *Page) error
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	CachedPages int
	MaxPages    int
	DirtyPages  int
	Hits        uint64
	Misses      uint64
}

// HitRate returns Hits / (Hits+Misses), or 0 if there have been no
// accesses yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Pool is a fixed-capacity, concurrency-safe page cache with LRU
// eviction and dirty-page tracking. Capacity eviction flushes a dirty
// page through Writer before it is dropped; explicit Invalidate*/ClearAll
// calls never trigger a flush.
type Pool struct {
	writer   Writer
	maxPages int

	mu    sync.Mutex
	dirty map[ID]bool
	cache *lru.Cache[ID, *Page]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPool builds a Pool with the given capacity (in pages) and writer.
func NewPool(maxPages int, writer Writer) *Pool {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	p := &Pool{
		writer:   writer,
		maxPages: maxPages,
		dirty:    make(map[ID]bool),
	}
	cache, err := lru.NewWithEvict[ID, *Page](maxPages, p.onEvict)
	if err != nil {
		// Only returned by golang-lru for a non-positive size, which is
		// excluded above.
		panic(err)
	}
	p.cache = cache
	return p
}

func (p *Pool) onEvict(id ID, pg *Page) {
	p.mu.Lock()
	isDirty := p.dirty[id]
	delete(p.dirty, id)
	p.mu.Unlock()

	if isDirty && p.writer != nil {
		_ = p.writer.WritePage(pg) // best effort; caller can flush explicitly to observe errors
	}
}

// GetOrLoad returns the cached page for id, loading it via loader on a
// miss. A loader error is never cached.
func (p *Pool) GetOrLoad(id ID, loader Loader) (*Page, error) {
	if pg, ok := p.cache.Get(id); ok {
		p.hits.Add(1)
		return pg, nil
	}
	p.misses.Add(1)

	pg, err := loader()
	if err != nil {
		return nil, err
	}
	p.cache.Add(id, pg)
	return pg, nil
}

// Put inserts or replaces the cached page for id and marks it dirty.
func (p *Pool) Put(id ID, pg *Page) {
	p.mu.Lock()
	p.dirty[id] = true
	p.mu.Unlock()
	p.cache.Add(id, pg)
}

// Invalidate drops the cached page for id without flushing it, even if
// dirty.
func (p *Pool) Invalidate(id ID) {
	p.mu.Lock()
	delete(p.dirty, id)
	p.mu.Unlock()
	p.cache.Remove(id)
}

// InvalidateTable drops every cached page belonging to table, without
// flushing.
func (p *Pool) InvalidateTable(table string) {
	for _, id := range p.cache.Keys() {
		if id.Table == table {
			p.Invalidate(id)
		}
	}
}

// ClearAll drops every cached page without flushing.
func (p *Pool) ClearAll() {
	p.mu.Lock()
	p.dirty = make(map[ID]bool)
	p.mu.Unlock()
	p.cache.Purge()
}

// FlushAll persists every currently dirty page through Writer, clearing
// their dirty flags on success. It returns the first error encountered,
// continuing to attempt the remaining pages.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	ids := make([]ID, 0, len(p.dirty))
	for id, d := range p.dirty {
		if d {
			ids = append(ids, id)
		}
	}
	p.mu.Unlock()

	if p.writer == nil {
		return nil
	}

	var firstErr error
	for _, id := range ids {
		pg, ok := p.cache.Peek(id)
		if !ok {
			continue
		}
		if err := p.writer.WritePage(pg); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.mu.Lock()
		delete(p.dirty, id)
		p.mu.Unlock()
	}
	return firstErr
}

// Stats returns a snapshot of the pool's current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	dirtyCount := len(p.dirty)
	p.mu.Unlock()

	return Stats{
		CachedPages: p.cache.Len(),
		MaxPages:    p.maxPages,
		DirtyPages:  dirtyCount,
		Hits:        p.hits.Load(),
		Misses:      p.misses.Load(),
	}
}
