// Package client is the TankWars session controller: it connects, performs
// the handshake, keeps a Mirror of the world current and turns player input
// into control commands.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	"github.com/abporter521/CS3500-TankWars/internal/transport"
	"github.com/abporter521/CS3500-TankWars/internal/vector"
)

// ErrNotStreaming is returned by input methods before the handshake has
// completed or after the session ended.
var ErrNotStreaming = errors.New("session is not streaming")

// Config tunes a Controller.
type Config struct {
	ConnectTimeout time.Duration
	Transport      transport.Config
	Logger         *slog.Logger
	Now            func() time.Time
}

// Controller drives one client session.
type Controller struct {
	cfg Config
	log *slog.Logger

	mu     deadlock.Mutex
	state  State
	conn   *transport.Conn
	mirror *Mirror
	input  inputState

	onUpdate func(*Mirror)
	onError  func(error)
}

// New returns a disconnected controller.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transport.Logger == nil {
		cfg.Transport.Logger = cfg.Logger
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		cfg:   cfg,
		log:   cfg.Logger,
		state: Disconnected,
		input: newInputState(),
	}
}

// OnUpdate sets the callback run after every processed batch of frames.
// It runs on the network goroutine.
func (c *Controller) OnUpdate(fn func(*Mirror)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// OnError sets the callback run once when the session fails.
func (c *Controller) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mirror returns the world mirror, or nil before the handshake.
func (c *Controller) Mirror() *Mirror {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mirror
}

// Connect dials the server in the background and sends name once the
// connection is up. Progress is reported through State, OnUpdate and
// OnError.
func (c *Controller) Connect(ctx context.Context, host string, port int, name string) error {
	c.mu.Lock()
	if c.state != Disconnected && c.state != Failed {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("connect while %s", st)
	}
	c.state = Connecting
	c.mirror = nil
	c.input = newInputState()
	c.mu.Unlock()

	c.log.Info("Connecting", "host", host, "port", port, "name", name)
	transport.Connect(ctx, host, port, c.cfg.ConnectTimeout, c.cfg.Transport, func(conn *transport.Conn, err error) {
		c.onConnect(conn, err, name)
	})
	return nil
}

func (c *Controller) onConnect(conn *transport.Conn, err error, name string) {
	if err != nil {
		c.fail(err)
		return
	}

	c.mu.Lock()
	if c.state != Connecting {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = AwaitingHandshake
	c.mu.Unlock()

	if !conn.Send([]byte(protocol.SanitizeName(name) + "\n")) {
		c.fail(&transport.TransferError{Op: "write", Conn: conn.ID(), Err: transport.ErrClosed})
		return
	}
	conn.Receive(c.onData)
}

func (c *Controller) onData(conn *transport.Conn, err error) {
	if err != nil {
		c.fail(err)
		return
	}

	c.mu.Lock()
	if c.state == AwaitingHandshake {
		h, consumed, ok, err := protocol.ParseHandshake(conn.Bytes())
		if err != nil {
			c.mu.Unlock()
			c.fail(err)
			return
		}
		if !ok {
			c.mu.Unlock()
			conn.Receive(c.onData)
			return
		}
		conn.ConsumeBytes(consumed)
		c.mirror = NewMirror(h.PlayerID, h.Size)
		c.state = Streaming
		c.log.Info("Handshake complete", "playerID", h.PlayerID, "size", h.Size)
	}
	if c.state != Streaming {
		c.mu.Unlock()
		return
	}
	mirror, onUpdate := c.mirror, c.onUpdate
	c.mu.Unlock()

	entities, consumed, errs := protocol.Consume(conn.Bytes())
	conn.ConsumeBytes(consumed)
	for _, err := range errs {
		c.log.Warn("Skipping malformed line", "error", err)
	}
	mirror.Apply(entities, c.cfg.Now())

	if onUpdate != nil {
		onUpdate(mirror)
	}
	conn.Receive(c.onData)
}

// fail moves the session to Failed and reports err, unless it was closed on
// purpose.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	if c.state == Closed || c.state == Failed {
		c.mu.Unlock()
		return
	}
	c.state = Failed
	conn, onError := c.conn, c.onError
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.log.Error("Session failed", "error", err)
	if onError != nil {
		onError(err)
	}
}

// KeyDown records a pressed movement key.
func (c *Controller) KeyDown(m protocol.Movement) error {
	return c.update(func(in *inputState) bool { return in.press(m) })
}

// KeyUp records a released movement key.
func (c *Controller) KeyUp(m protocol.Movement) error {
	return c.update(func(in *inputState) bool { return in.release(m) })
}

// Aim points the turret along (x, y). A zero vector is ignored.
func (c *Controller) Aim(x, y float64) error {
	return c.update(func(in *inputState) bool {
		aim := vector.New(x, y).Normalize()
		if aim.IsZero() || aim == in.aim {
			return false
		}
		in.aim = aim
		return true
	})
}

// Fire requests one shot with the given weapon.
func (c *Controller) Fire(mode protocol.FireMode) error {
	if mode != protocol.FireMain && mode != protocol.FireAlt {
		return fmt.Errorf("unknown fire mode %q", mode)
	}
	return c.update(func(in *inputState) bool {
		in.fire = mode
		return true
	})
}

// update applies change to the input state and sends a command when it
// reports a change.
func (c *Controller) update(change func(*inputState) bool) error {
	c.mu.Lock()
	if c.state != Streaming {
		c.mu.Unlock()
		return ErrNotStreaming
	}
	if !change(&c.input) {
		c.mu.Unlock()
		return nil
	}
	cmd := c.input.command()
	conn := c.conn
	c.mu.Unlock()

	line, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if !conn.Send(line) {
		err := &transport.TransferError{Op: "write", Conn: conn.ID(), Err: transport.ErrClosed}
		c.fail(err)
		return err
	}
	return nil
}

// Close ends the session without reporting an error.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.state = Closed
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
