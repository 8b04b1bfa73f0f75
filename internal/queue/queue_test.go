package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type input struct {
	TankID int
	Kind   string
}

func TestQueue_PushPopOrder(t *testing.T) {
	q := New[input]()
	assert.True(t, q.Empty())

	q.Push(input{TankID: 1, Kind: "join"})
	q.Push(input{TankID: 1, Kind: "cmd"}, input{TankID: 1, Kind: "leave"})
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"join", "cmd", "leave"} {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got.Kind)
	}

	_, ok := q.Pop()
	assert.False(t, ok)
	assert.True(t, q.Empty())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	batch := q.GetAndEmpty()
	assert.Equal(t, []int{1, 2, 3}, batch)
	assert.Equal(t, 0, q.Len())

	q.Push(4)
	assert.Equal(t, []int{1, 2, 3}, batch, "earlier batch must not be reused")
	assert.Equal(t, []int{4}, q.GetAndEmpty())
}

func TestQueue_Clear(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	q.Clear()
	assert.True(t, q.Empty())
	assert.Empty(t, q.GetAndEmpty())
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for p := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				q.Push(p*1000 + i)
			}
		}()
	}
	wg.Wait()

	batch := q.GetAndEmpty()
	require.Len(t, batch, 800)

	// Each producer's items keep their relative order.
	last := map[int]int{}
	for _, v := range batch {
		p, i := v/1000, v%1000
		if prev, ok := last[p]; ok {
			assert.Greater(t, i, prev)
		}
		last[p] = i
	}
}
