package ringbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_PushPopOrder(t *testing.T) {
	r := New[int](3)

	require.True(t, r.Push(1))
	require.True(t, r.Push(2))
	require.True(t, r.Push(3))

	// Overflow: newest is dropped, counter increments, existing items stay.
	require.False(t, r.Push(4))
	assert.EqualValues(t, 1, r.Dropped())

	v, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = r.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = r.Pop()
	assert.False(t, ok)
}

func TestRing_PeekDoesNotRemove(t *testing.T) {
	r := New[string](2)
	r.Push("a")

	v, ok := r.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, r.Len())
}

func TestRing_NeverExceedsCapacity(t *testing.T) {
	r := New[int](5)
	for i := 0; i < 100; i++ {
		r.Push(i)
	}
	assert.LessOrEqual(t, r.Len(), r.Cap())
	assert.EqualValues(t, 95, r.Dropped())
}

func TestRing_ConcurrentPushPop(t *testing.T) {
	r := New[int](64)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Push(j)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Pop()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, r.Len(), r.Cap())
}

func TestRing_ClearPreservesDropCounter(t *testing.T) {
	r := New[int](1)
	r.Push(1)
	r.Push(2) // dropped
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.EqualValues(t, 1, r.Dropped())
}
