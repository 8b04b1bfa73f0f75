package transport

import (
	"errors"
	"fmt"
)

// ErrClosed is the cause of a TransferError raised by a read that returned
// no bytes.
var ErrClosed = errors.New("connection closed by peer")

// ConnectionError reports a failure to listen, accept, resolve or connect.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransferError reports a read or write failure on an established connection.
type TransferError struct {
	Op   string
	Conn uint64
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s on conn %d: %v", e.Op, e.Conn, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
