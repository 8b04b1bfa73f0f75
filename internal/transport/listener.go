package transport

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

// Listener accepts connections on a TCP port.
type Listener struct {
	ln      net.Listener
	cfg     Config
	stopped atomic.Bool
}

// Listen binds addr and starts accepting. Every accepted connection is passed
// to onAccept. If Accept fails the error is delivered once as a
// *ConnectionError and the loop ends until Rearm is called.
func Listen(addr string, cfg Config, onAccept func(*Conn, error)) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "listen", Addr: addr, Err: err}
	}
	l := &Listener{ln: ln, cfg: cfg.withDefaults()}
	go l.acceptLoop(onAccept)
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port returns the bound TCP port.
func (l *Listener) Port() int {
	if a, ok := l.ln.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Rearm restarts accepting after an error was delivered.
func (l *Listener) Rearm(onAccept func(*Conn, error)) {
	if l.stopped.Load() {
		return
	}
	go l.acceptLoop(onAccept)
}

// Stop closes the listening socket. Pending Accept calls end without an
// error callback.
func (l *Listener) Stop() error {
	if l.stopped.Swap(true) {
		return nil
	}
	return l.ln.Close()
}

func (l *Listener) acceptLoop(onAccept func(*Conn, error)) {
	for {
		raw, err := l.ln.Accept()
		if err != nil {
			if l.stopped.Load() {
				return
			}
			onAccept(nil, &ConnectionError{Op: "accept", Addr: l.ln.Addr().String(), Err: err})
			return
		}
		onAccept(newConn(raw, l.cfg), nil)
	}
}

// Connect dials host:port in the background and calls onConnect exactly once
// with the new connection or a *ConnectionError. A non-positive timeout uses
// DefaultConnectTimeout.
func Connect(ctx context.Context, host string, port int, timeout time.Duration, cfg Config, onConnect func(*Conn, error)) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	cfg = cfg.withDefaults()
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	go func() {
		d := net.Dialer{Timeout: timeout}
		raw, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			onConnect(nil, &ConnectionError{Op: "connect", Addr: addr, Err: err})
			return
		}
		onConnect(newConn(raw, cfg), nil)
	}()
}
