package lru_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/alg/lru"
)

const (
	smallMaxEntries          = 3
	testConcurrentGoroutines = 50
	testConcurrentOps        = 100
)

func TestNew_RequiresLimit(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { lru.New[int, int]() })
	assert.Panics(t, func() { lru.New(lru.WithMaxEntries[int, int](0)) })
}

func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	c := lru.New(lru.WithMaxEntries[string, int](smallMaxEntries))
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Put("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, c.Stats().Entries)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := lru.New(lru.WithMaxEntries[int, int](smallMaxEntries))
	for i := range smallMaxEntries {
		c.Put(i, i)
	}

	// Touch 0 so 1 becomes the oldest.
	_, _ = c.Get(0)
	c.Put(99, 99)

	_, ok := c.Get(1)
	assert.False(t, ok)

	for _, k := range []int{0, 2, 99} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %d", k)
	}

	assert.Equal(t, smallMaxEntries, c.Stats().Entries)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_Stats(t *testing.T) {
	t.Parallel()

	c := lru.New(lru.WithMaxEntries[int, string](smallMaxEntries))
	assert.Zero(t, c.Stats().HitRate())

	c.Put(1, "one")
	_, _ = c.Get(1)
	_, _ = c.Get(2)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.Entries)
	assert.Equal(t, smallMaxEntries, s.MaxEntries)
	assert.InDelta(t, 0.5, s.HitRate(), 1e-9)
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := lru.New(lru.WithMaxEntries[int, int](testConcurrentOps))

	var wg sync.WaitGroup

	for g := range testConcurrentGoroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range testConcurrentOps {
				c.Put(g*testConcurrentOps+i, i)
				_, _ = c.Get(i)
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Entries, testConcurrentOps)
}
