package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_FIFOEviction(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	assert.Equal(t, 3, r.Len())
	// Старейшие (1, 2) вытеснены
	assert.Equal(t, []int{3, 4, 5}, r.Snapshot())
}

func TestRing_RecentNewestFirst(t *testing.T) {
	r := NewRing[int](5)
	for i := 1; i <= 4; i++ {
		r.Push(i)
	}

	assert.Equal(t, []int{4, 3, 2}, r.Recent(3))
	// Запрос больше размера возвращает все, что есть
	assert.Equal(t, []int{4, 3, 2, 1}, r.Recent(10))
}

func TestRing_PushBatchWrapsAround(t *testing.T) {
	r := NewRing[int](3)
	r.Push(0)
	r.PushBatch([]int{1, 2, 3, 4})

	assert.Equal(t, []int{2, 3, 4}, r.Snapshot())
}

func TestRing_UpdateStopsAtFirstMatch(t *testing.T) {
	r := NewRing[string](4)
	r.Push("a")
	r.Push("b")
	r.Push("c")

	visited := 0
	found := r.Update(func(v *string) bool {
		visited++
		if *v == "b" {
			*v = "B"
			return true
		}
		return false
	})

	require.True(t, found)
	assert.Equal(t, 2, visited)
	assert.Equal(t, []string{"a", "B", "c"}, r.Snapshot())
}

func TestRing_UpdateNoMatch(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)

	found := r.Update(func(v *int) bool { return false })
	assert.False(t, found)
}

func TestRing_ZeroCapacityClamped(t *testing.T) {
	r := NewRing[int](0)
	r.Push(7)
	assert.Equal(t, []int{7}, r.Snapshot())
}
