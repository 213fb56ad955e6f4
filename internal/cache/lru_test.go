package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLRURejectsNonPositiveSize(t *testing.T) {
	_, err := NewLRU[string, int]("bad", 0)
	assert.Error(t, err)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewLRU[string, int]("test_lru", 3)
	require.NoError(t, err)

	assert.False(t, c.Set("a", 1))
	assert.False(t, c.Set("b", 2))
	assert.False(t, c.Set("c", 3))

	assert.True(t, c.Set("d", 4), "fourth distinct key must evict")

	assert.False(t, c.Contains("a"), "oldest key should be evicted")
	for _, k := range []string{"b", "c", "d"} {
		assert.True(t, c.Contains(k), "key %s should survive", k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestLRUReadProtectsFromEviction(t *testing.T) {
	c, err := NewLRU[string, int]("test_lru", 3)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("d", 4)

	assert.True(t, c.Contains("a"), "recently read key must not be evicted")
	assert.False(t, c.Contains("b"), "b became least recently used")
}

func TestLRUNewEntryNeverEvicted(t *testing.T) {
	c, err := NewLRU[int, int]("test_lru", 1)
	require.NoError(t, err)

	c.Set(1, 1)
	c.Set(2, 2)

	v, ok := c.Get(2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.False(t, c.Contains(1))
}

func TestLRUOverwriteDoesNotEvict(t *testing.T) {
	c, err := NewLRU[string, int]("test_lru", 2)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	assert.False(t, c.Set("a", 10))

	v, _ := c.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUClear(t *testing.T) {
	c, err := NewLRU[string, int]("test_lru", 4)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRUConcurrentAccess(t *testing.T) {
	c, err := NewLRU[string, int]("test_lru", 50)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%120)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
