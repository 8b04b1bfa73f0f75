package channel

// Buffered queues up to a fixed number of values.
type Buffered[T any] struct {
	ch chan T
}

func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send blocks while the queue is full.
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// TrySend reports false instead of blocking when the queue is full.
func (b *Buffered[T]) TrySend(v T) bool {
	select {
	case b.ch <- v:
		return true
	default:
		return false
	}
}

func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len is the number of queued values.
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Close ends a range over Receive once the queue is drained. Sending after
// Close panics.
func (b *Buffered[T]) Close() {
	close(b.ch)
}
