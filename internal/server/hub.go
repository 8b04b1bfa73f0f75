package server

import (
	"log/slog"

	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/internal/transport"
)

// Peer is a connection that has completed its handshake.
type Peer struct {
	Conn   *transport.Conn
	TankID int
	Name   string
}

// Hub is the table of handshaken connections that receive world frames. It
// implements engine.Broadcaster.
type Hub struct {
	mu    deadlock.RWMutex
	peers map[uint64]*Peer
	log   *slog.Logger

	// onEvict runs for peers dropped because their send queue overflowed.
	onEvict func(*Peer)
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{peers: make(map[uint64]*Peer), log: log}
}

// Add registers a peer. Frames broadcast after Add reach it.
func (h *Hub) Add(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.Conn.ID()] = p
}

// Remove unregisters the connection and returns its peer, if any.
func (h *Hub) Remove(connID uint64) (*Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.peers[connID]
	if ok {
		delete(h.peers, connID)
	}
	return p, ok
}

// Get looks up the peer on a connection.
func (h *Hub) Get(connID uint64) (*Peer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.peers[connID]
	return p, ok
}

// Len returns the number of registered peers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Peers returns a copy of the registered peers.
func (h *Hub) Peers() []Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Peer, 0, len(h.peers))
	for _, p := range h.peers {
		out = append(out, *p)
	}
	return out
}

// Broadcast queues frame on every peer. Peers whose queue is full or whose
// connection is gone are removed.
func (h *Hub) Broadcast(frame []byte) {
	var failed []uint64

	h.mu.RLock()
	for id, p := range h.peers {
		if !p.Conn.Send(frame) {
			failed = append(failed, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range failed {
		p, ok := h.Remove(id)
		if !ok {
			continue
		}
		h.log.Warn("Dropping client that cannot keep up", "tankID", p.TankID, "conn", id)
		if h.onEvict != nil {
			h.onEvict(p)
		}
	}
}
