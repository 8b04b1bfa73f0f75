package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffered_TrySendRespectsCapacity(t *testing.T) {
	c := NewBuffered[[]byte](2)

	assert.True(t, c.TrySend([]byte("a")))
	assert.True(t, c.TrySend([]byte("b")))
	assert.False(t, c.TrySend([]byte("c")))
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, []byte("a"), <-c.Receive())
	assert.True(t, c.TrySend([]byte("c")))
}

func TestBuffered_CloseEndsRange(t *testing.T) {
	c := NewBuffered[int](3)
	c.Send(1)
	c.Send(2)
	c.Close()

	var got []int
	for v := range c.Receive() {
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestUnbuffered_TrySendNeedsReceiver(t *testing.T) {
	c := NewUnbuffered[int]()
	assert.False(t, c.TrySend(1))
	assert.Equal(t, 0, c.Len())

	done := make(chan int)
	go func() { done <- <-c.Receive() }()
	c.Send(7)
	require.Equal(t, 7, <-done)
}

func TestNew_SatisfiesChannel(t *testing.T) {
	var c Channel[string] = New[string](1)
	c.Send("frame")
	assert.Equal(t, "frame", <-c.Receive())
	c.Close()
}
