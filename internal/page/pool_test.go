package page

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	written []ID
}

func (w *fakeWriter) WritePage(p *Page) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, p.ID)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.written)
}

func TestPoolGetOrLoadCountsHitsAndMisses(t *testing.T) {
	w := &fakeWriter{}
	pool := NewPool(4, w)

	id := ID{Table: "t", Number: 0}
	loads := 0
	loader := func() (*Page, error) {
		loads++
		return New(id), nil
	}

	_, err := pool.GetOrLoad(id, loader)
	require.NoError(t, err)
	_, err = pool.GetOrLoad(id, loader)
	require.NoError(t, err)

	require.Equal(t, 1, loads)
	stats := pool.Stats()
	require.Equal(t, uint64(1), stats.Misses)
	require.Equal(t, uint64(1), stats.Hits)
}

func TestPoolLRUEvictionKeepsMostRecent(t *testing.T) {
	w := &fakeWriter{}
	pool := NewPool(2, w)

	for i := 0; i < 3; i++ {
		id := ID{Table: "t", Number: uint64(i)}
		pool.Put(id, New(id))
	}

	// Page 0 should have been evicted (and flushed, since it was dirty).
	_, err := pool.GetOrLoad(ID{Table: "t", Number: 0}, func() (*Page, error) {
		return New(ID{Table: "t", Number: 0}), nil
	})
	require.NoError(t, err)

	stats := pool.Stats()
	require.LessOrEqual(t, stats.CachedPages, 2)
	require.GreaterOrEqual(t, w.count(), 1)
}

func TestPoolInvalidateDoesNotFlush(t *testing.T) {
	w := &fakeWriter{}
	pool := NewPool(4, w)

	id := ID{Table: "t", Number: 0}
	pool.Put(id, New(id))
	pool.Invalidate(id)

	require.Equal(t, 0, w.count())
	require.Equal(t, 0, pool.Stats().DirtyPages)
}

func TestPoolFlushAllPersistsDirtyPages(t *testing.T) {
	w := &fakeWriter{}
	pool := NewPool(4, w)

	id := ID{Table: "t", Number: 0}
	pool.Put(id, New(id))

	err := pool.FlushAll()
	require.NoError(t, err)
	require.Equal(t, 1, w.count())
	require.Equal(t, 0, pool.Stats().DirtyPages)
}

func TestPoolInvalidateTable(t *testing.T) {
	w := &fakeWriter{}
	pool := NewPool(4, w)

	pool.Put(ID{Table: "a", Number: 0}, New(ID{Table: "a", Number: 0}))
	pool.Put(ID{Table: "b", Number: 0}, New(ID{Table: "b", Number: 0}))

	pool.InvalidateTable("a")

	require.Equal(t, 1, pool.Stats().CachedPages)
	require.Equal(t, 0, w.count())
}
