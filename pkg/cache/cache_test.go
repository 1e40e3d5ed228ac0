package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/graphrag/errors"
)

func TestNewLRU_InvalidSize(t *testing.T) {
	c, err := NewLRU[int](0)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, errors.IsInvalid(err))
}

func TestLRU_GetSet(t *testing.T) {
	c, err := NewLRU[string](3)
	require.NoError(t, err)

	created, err := c.Set("a", "alpha")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.Set("a", "ALPHA")
	require.NoError(t, err)
	assert.False(t, created)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "ALPHA", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, int64(1), c.Stats().Hits())
	assert.Equal(t, int64(1), c.Stats().Misses())
	assert.InDelta(t, 0.5, c.Stats().HitRatio(), 1e-9)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c, err := NewLRU[int](2, WithEvictionCallback(func(key string, _ int) {
		evicted = append(evicted, key)
	}))
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	_, _ = c.Get("a") // b becomes oldest
	_, _ = c.Set("c", 3)

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"c", "a"}, c.Keys())
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, int64(1), c.Stats().Evictions())
	assert.Equal(t, int64(2), c.Stats().MaxSize())
}

func TestLRU_DeleteAndClear(t *testing.T) {
	var removed []string
	c, err := NewLRU[int](5, WithEvictionCallback(func(key string, _ int) {
		removed = append(removed, key)
	}))
	require.NoError(t, err)

	for i, k := range []string{"a", "b", "c"} {
		_, _ = c.Set(k, i)
	}

	ok, err := c.Delete("b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Delete("b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Size())
	assert.ElementsMatch(t, []string{"a", "b", "c"}, removed)
	assert.Equal(t, int64(0), c.Stats().CurrentSize())
	assert.NoError(t, c.Close())
}

func TestLRU_EmptyKey(t *testing.T) {
	c, err := NewLRU[int](1)
	require.NoError(t, err)

	_, err = c.Set("", 1)
	assert.True(t, errors.IsInvalid(err))
	_, err = c.Delete("")
	assert.True(t, errors.IsInvalid(err))
}

func TestLRU_Concurrent(t *testing.T) {
	c, err := NewLRU[int](50)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				_, _ = c.Set(key, i)
				_, _ = c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 50)
	s := c.Stats().Summary()
	assert.Equal(t, int64(1600), s.Sets)
	assert.Equal(t, int64(1600), s.Hits+s.Misses)
}
