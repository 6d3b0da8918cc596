package cache

import (
	"fmt"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_SetGet(t *testing.T) {
	c := New[int](NewRegistry(), 3)

	c.Set("/a.txt", 1)
	c.Set("/b.txt", 2)

	v, ok := c.Get("/a.txt")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("/missing.txt")
	assert.False(t, ok)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string](NewRegistry(), 3)

	c.Set("a", "A")
	c.Set("b", "B")
	c.Set("c", "C")
	_, ok := c.Get("a") // promote a
	require.True(t, ok)
	c.Set("d", "D")

	_, ok = c.Get("b")
	assert.False(t, ok, "b should be evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s should remain", k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestLRU_EvictsInsertionOrderWithoutAccess(t *testing.T) {
	c := New[int](NewRegistry(), 2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_OverwritePromotes(t *testing.T) {
	c := New[int](NewRegistry(), 2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // rewrite refreshes a
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestLRU_StoredNilIsNotAMiss(t *testing.T) {
	c := New[*int64](NewRegistry(), 4)

	c.Set("/gone.txt", nil)

	v, ok := c.Get("/gone.txt")
	assert.True(t, ok, "stored nil must be a hit")
	assert.Nil(t, v)

	_, ok = c.Get("/never.txt")
	assert.False(t, ok)
}

func TestLRU_DeleteAndClear(t *testing.T) {
	c := New[int](NewRegistry(), 4)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	c.Delete("not-there")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestLRU_NonPositiveCapacity(t *testing.T) {
	c := New[int](NewRegistry(), 0)

	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 1, c.Len())
}

func TestRegistry_InvalidateAllFansOut(t *testing.T) {
	reg := NewRegistry()
	sizes := New[int64](reg, 10)
	lines := New[string](reg, 10)

	sizes.Set("/x.go", 42)
	lines.Set("/x.go", "12 lines")
	lines.Set("/y.go", "3 lines")

	reg.InvalidateAll("/x.go")

	_, ok := sizes.Get("/x.go")
	assert.False(t, ok)
	_, ok = lines.Get("/x.go")
	assert.False(t, ok)
	_, ok = lines.Get("/y.go")
	assert.True(t, ok, "other keys are untouched")
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_InvalidateAllKeyInOneCacheOnly(t *testing.T) {
	reg := NewRegistry()
	a := New[int](reg, 10)
	b := New[int](reg, 10)
	b.Set("/only-b", 1)

	reg.InvalidateAll("/only-b")

	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, b.Len())
}

func TestRegistry_ClearAll(t *testing.T) {
	reg := NewRegistry()
	a := New[int](reg, 10)
	b := New[bool](reg, 10)
	a.Set("1", 1)
	b.Set("2", true)

	reg.ClearAll()

	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, b.Len())

	// Caches stay registered after a clear.
	a.Set("3", 3)
	reg.InvalidateAll("3")
	assert.Equal(t, 0, a.Len())
}

func TestLRU_SetIfCurrent(t *testing.T) {
	reg := NewRegistry()
	c := New[int](reg, 10)

	tok := c.Token("/a")
	assert.True(t, c.SetIfCurrent("/a", 1, tok))
	v, ok := c.Get("/a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	tok = c.Token("/a")
	reg.InvalidateAll("/a")
	assert.False(t, c.SetIfCurrent("/a", 2, tok), "invalidated while computing")
	_, ok = c.Get("/a")
	assert.False(t, ok)

	tok = c.Token("/b")
	reg.InvalidateAll("/a")
	assert.True(t, c.SetIfCurrent("/b", 3, tok), "other keys keep their token")

	tok = c.Token("/b")
	reg.ClearAll()
	assert.False(t, c.SetIfCurrent("/b", 4, tok), "ClearAll invalidates every key")
	assert.True(t, c.SetIfCurrent("/b", 5, c.Token("/b")))
}

func TestLRU_SetIfCurrentWithoutRegistry(t *testing.T) {
	c := New[int](nil, 10)
	assert.True(t, c.SetIfCurrent("/a", 1, c.Token("/a")))
	assert.Equal(t, 1, c.Len())
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	c := New[int](reg, 50)

	var wg gosync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("/f%d", (n*200+j)%80)
				c.Set(key, j)
				c.Get(key)
				if j%17 == 0 {
					reg.InvalidateAll(key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
