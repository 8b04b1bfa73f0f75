// Package channel wraps Go channels behind small generic interfaces. The
// dispatcher queues come from New, which is unbuffered in debug builds.
package channel

// Receiver is the consuming side of a queue.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender is the producing side. TrySend never blocks.
type Sender[T any] interface {
	Send(T)
	TrySend(T) bool
}

// Channel is a queue with both sides and an owner that closes it.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
