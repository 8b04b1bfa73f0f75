// Package server accepts TankWars clients, performs the name/id handshake and
// forwards their control commands to the simulation.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/internal/engine"
	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	"github.com/abporter521/CS3500-TankWars/internal/transport"
	"github.com/abporter521/CS3500-TankWars/internal/world"
)

const (
	rearmDelay = 100 * time.Millisecond

	// A name still missing its newline is taken as it stands once this many
	// bytes are buffered or nameWait has passed since its first fragment.
	maxNameBytes = 256
	nameWait     = 250 * time.Millisecond
)

// Simulation is the part of the engine the server talks to.
type Simulation interface {
	NextTankID() int
	Submit(engine.Input)
	Size() int
	Walls() []world.Wall
}

// Config configures a Server.
type Config struct {
	Addr      string
	Transport transport.Config
	Logger    *slog.Logger
}

// Server owns the listening socket and the per-connection receive loops.
type Server struct {
	cfg Config
	sim Simulation
	hub *Hub
	log *slog.Logger

	listener *transport.Listener
	stopped  atomic.Bool
	accepted atomic.Uint64
}

// New wires a server to the simulation and the hub the simulation
// broadcasts through.
func New(sim Simulation, hub *Hub, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transport.Logger == nil {
		cfg.Transport.Logger = cfg.Logger
	}
	s := &Server{cfg: cfg, sim: sim, hub: hub, log: cfg.Logger}
	hub.onEvict = func(p *Peer) { s.leave(p) }
	return s
}

// Start binds the listening socket and begins accepting clients.
func (s *Server) Start() error {
	l, err := transport.Listen(s.cfg.Addr, s.cfg.Transport, s.onAccept)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	s.listener = l
	s.log.Info("Server listening", "addr", l.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Accepted returns how many connections have been accepted so far.
func (s *Server) Accepted() uint64 {
	return s.accepted.Load()
}

// Stop closes the listener and every client connection.
func (s *Server) Stop() error {
	if s.stopped.Swap(true) {
		return nil
	}
	var err error
	if s.listener != nil {
		err = s.listener.Stop()
	}
	for _, p := range s.hub.Peers() {
		_ = p.Conn.Close()
	}
	s.log.Info("Server stopped")
	return err
}

func (s *Server) onAccept(conn *transport.Conn, err error) {
	if err != nil {
		if s.stopped.Load() {
			return
		}
		s.log.Error("Accept failed, re-arming", "error", err)
		time.AfterFunc(rearmDelay, func() { s.listener.Rearm(s.onAccept) })
		return
	}
	if s.stopped.Load() {
		_ = conn.Close()
		return
	}
	s.accepted.Add(1)
	s.log.Debug("Connection accepted", "conn", conn.ID(), "remote", conn.RemoteAddr().String())
	c := &session{srv: s, conn: conn}
	conn.Receive(c.onData)
}

// session is the receive side of one client. Reads are handled one at a
// time under mu: first the name, then control commands.
type session struct {
	srv   *Server
	conn  *transport.Conn
	timer *time.Timer

	mu      deadlock.Mutex
	greeted bool
	peer    *Peer // nil when the greeting failed
}

func (c *session) onData(conn *transport.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.greeted {
		c.readName(err)
		return
	}
	if c.peer == nil {
		return
	}
	if err != nil {
		if !errors.Is(err, transport.ErrClosed) {
			c.srv.log.Warn("Receive failed", "conn", conn.ID(), "error", err)
		}
		if p, ok := c.srv.hub.Remove(conn.ID()); ok {
			c.srv.leave(p)
		}
		return
	}
	c.srv.handleCommands(c.peer, conn, c.onData)
}

// readName waits for the newline that ends the name, within limits.
func (c *session) readName(err error) {
	if err != nil {
		c.greeted = true
		c.stopTimer()
		c.srv.log.Debug("Client left before handshake", "conn", c.conn.ID(), "error", err)
		return
	}
	buf := c.conn.Bytes()
	if bytes.IndexByte(buf, '\n') < 0 && len(buf) < maxNameBytes {
		if c.timer == nil {
			c.timer = time.AfterFunc(nameWait, c.expire)
		}
		c.conn.Receive(c.onData)
		return
	}
	c.stopTimer()
	c.greet()
}

func (c *session) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.greeted {
		return
	}
	c.srv.log.Debug("Name not terminated, using what arrived", "conn", c.conn.ID())
	c.greet()
}

func (c *session) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
	}
}

// greet must be called with mu held.
func (c *session) greet() {
	c.greeted = true
	c.peer = c.srv.join(c.conn)
	if c.peer != nil {
		c.srv.handleCommands(c.peer, c.conn, c.onData)
	}
}

// join parses the buffered name, queues the handshake and registers the
// peer. It returns nil when the client could not be greeted.
func (s *Server) join(conn *transport.Conn) *Peer {
	name, consumed := protocol.ParsePlayerName(conn.Bytes())
	conn.ConsumeBytes(consumed)

	id := s.sim.NextTankID()
	s.sim.Submit(engine.Join{TankID: id, Name: name, Address: conn.RemoteAddr().String()})

	hs, err := protocol.EncodeHandshake(id, s.sim.Size(), s.sim.Walls())
	if err != nil {
		s.log.Error("Encoding handshake failed", "tankID", id, "error", err)
		_ = conn.Close()
		s.sim.Submit(engine.Leave{TankID: id})
		return nil
	}

	// The handshake is queued before the peer joins the hub so it precedes
	// every frame on the wire.
	if !conn.Send(hs) {
		s.sim.Submit(engine.Leave{TankID: id})
		return nil
	}
	peer := &Peer{Conn: conn, TankID: id, Name: name}
	s.hub.Add(peer)
	s.log.Info("Client connected", "tankID", id, "name", name, "remote", conn.RemoteAddr().String())
	return peer
}

// handleCommands forwards every complete command line and re-arms the
// receive with next.
func (s *Server) handleCommands(p *Peer, conn *transport.Conn, next func(*transport.Conn, error)) {
	cmds, consumed, errs := protocol.ConsumeCommands(conn.Bytes())
	conn.ConsumeBytes(consumed)
	for _, err := range errs {
		s.log.Debug("Ignoring malformed command", "tankID", p.TankID, "error", err)
	}
	for _, cmd := range cmds {
		s.sim.Submit(engine.Command{TankID: p.TankID, Command: cmd})
	}
	conn.Receive(next)
}

func (s *Server) leave(p *Peer) {
	_ = p.Conn.Close()
	s.sim.Submit(engine.Leave{TankID: p.TankID})
	s.log.Info("Client disconnected", "tankID", p.TankID, "name", p.Name)
}
