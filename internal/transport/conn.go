// Package transport is the callback-driven TCP layer. It owns sockets and
// byte buffers but knows nothing about the game.
package transport

import (
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/internal/channel"
)

const (
	DefaultConnectTimeout = 3000 * time.Millisecond
	DefaultSendQueueSize  = 256
	DefaultWriteTimeout   = 5 * time.Second
	DefaultReadSize       = 4096
)

// Config tunes connections created by Listen and Connect.
type Config struct {
	Logger        *slog.Logger
	SendQueueSize int
	WriteTimeout  time.Duration
	ReadSize      int
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = DefaultSendQueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.ReadSize <= 0 {
		c.ReadSize = DefaultReadSize
	}
	return c
}

var connIDs atomic.Uint64

// Conn is one established TCP connection with an append-only receive buffer
// and an asynchronous write queue.
type Conn struct {
	id  uint64
	raw net.Conn
	cfg Config

	mu  deadlock.Mutex
	buf []byte

	out       *channel.Buffered[[]byte]
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reading   atomic.Bool
}

func newConn(raw net.Conn, cfg Config) *Conn {
	c := &Conn{
		id:   connIDs.Add(1),
		raw:  raw,
		cfg:  cfg,
		out:  channel.NewBuffered[[]byte](cfg.SendQueueSize),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// ID is a process-unique connection number.
func (c *Conn) ID() uint64 {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Receive arms one asynchronous read. onData runs on the reader goroutine
// once bytes have been appended to the buffer, or with a *TransferError if
// the read failed or returned nothing, in which case the connection is
// already closed. Calling Receive while a read is in flight does nothing.
func (c *Conn) Receive(onData func(*Conn, error)) {
	if c.Closed() || !c.reading.CompareAndSwap(false, true) {
		return
	}

	go func() {
		tmp := make([]byte, c.cfg.ReadSize)
		n, err := c.raw.Read(tmp)
		if n > 0 {
			c.mu.Lock()
			c.buf = append(c.buf, tmp[:n]...)
			c.mu.Unlock()
		}
		c.reading.Store(false)

		if n == 0 {
			if err == nil || err == io.EOF {
				err = ErrClosed
			}
			c.Close()
			onData(c, &TransferError{Op: "read", Conn: c.id, Err: err})
			return
		}
		onData(c, nil)
	}()
}

// Bytes returns a copy of the unconsumed receive buffer.
func (c *Conn) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.buf)
}

// ConsumeBytes discards the first n buffered bytes.
func (c *Conn) ConsumeBytes(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		return
	}
	if n >= len(c.buf) {
		c.buf = c.buf[:0]
		return
	}
	c.buf = append(c.buf[:0], c.buf[n:]...)
}

// Send queues data for the writer goroutine and returns immediately. It
// returns false if the connection is closed or its queue is full; a full
// queue closes the connection.
func (c *Conn) Send(data []byte) bool {
	if c.Closed() {
		return false
	}
	if !c.out.TrySend(slices.Clone(data)) {
		c.cfg.Logger.Warn("Send queue full, closing connection", "conn", c.id, "queued", c.out.Len())
		c.Close()
		return false
	}
	return true
}

// Close shuts the socket and stops the writer. It is safe to call more than
// once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.raw.Close()
	})
	return err
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out.Receive():
			if err := c.write(data); err != nil {
				if !c.Closed() {
					c.cfg.Logger.Warn("Write failed, closing connection", "conn", c.id,
						"error", &TransferError{Op: "write", Conn: c.id, Err: err})
				}
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) write(data []byte) error {
	if err := c.raw.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	_, err := c.raw.Write(data)
	return err
}
