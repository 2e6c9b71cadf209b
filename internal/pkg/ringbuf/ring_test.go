package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_PushBelowCapacity(t *testing.T) {
	r := New[int](3)
	assert.False(t, r.Push(1))
	assert.False(t, r.Push(2))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 3, r.Cap())
	assert.Equal(t, []int{1, 2}, r.All())
	assert.Equal(t, []int{2, 1}, r.Newest(0))
}

func TestRing_EvictsOldest(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	require.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.All())
	assert.Equal(t, []int{5, 4, 3}, r.Newest(10))
	assert.Equal(t, []int{5, 4}, r.Newest(2))
}

func TestRing_PushReportsEviction(t *testing.T) {
	r := New[string](1)
	assert.False(t, r.Push("a"))
	assert.True(t, r.Push("b"))
	assert.Equal(t, []string{"b"}, r.All())
}

func TestRing_NonPositiveCapacity(t *testing.T) {
	r := New[int](0)
	assert.Equal(t, 1, r.Cap())
}

func TestRing_Empty(t *testing.T) {
	r := New[int](4)
	assert.Empty(t, r.Newest(3))
	assert.Empty(t, r.All())
}
