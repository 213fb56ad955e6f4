package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResetAll(t *testing.T) {
	ids, err := NewLRU[string, int64]("ids", 10)
	require.NoError(t, err)
	sets, err := NewTTL[int64, []int64]("sets", 10, time.Minute)
	require.NoError(t, err)

	r := NewRegistry()
	r.Register(ids)
	r.Register(sets)

	ids.Set("blue_eyes", 1)
	sets.Set(1, []int64{10, 11})

	assert.Equal(t, map[string]int{"ids": 1, "sets": 1}, r.Sizes())

	r.ResetAll()

	assert.Equal(t, 0, ids.Len())
	assert.Equal(t, 0, sets.Len())
	assert.Equal(t, []string{"ids", "sets"}, r.Names())
}

func TestRegistryReplaceByName(t *testing.T) {
	first, _ := NewLRU[string, int]("same", 2)
	second, _ := NewLRU[string, int]("same", 2)

	r := NewRegistry()
	r.Register(first)
	r.Register(second)

	assert.Len(t, r.Names(), 1)
}
