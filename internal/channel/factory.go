//go:build !debug

package channel

// New returns the queue behind a buffered dispatcher handler, holding up to
// size events.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
