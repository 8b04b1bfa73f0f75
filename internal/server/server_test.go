package server

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/engine"
	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	"github.com/abporter521/CS3500-TankWars/internal/vector"
	"github.com/abporter521/CS3500-TankWars/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSim struct {
	mu     sync.Mutex
	nextID int
	inputs []engine.Input
}

func (f *fakeSim) NextTankID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeSim) Submit(in engine.Input) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
}

func (f *fakeSim) Size() int { return 2000 }

func (f *fakeSim) Walls() []world.Wall {
	return []world.Wall{{ID: 0, P1: vector.New(-100, 0), P2: vector.New(100, 0)}}
}

func (f *fakeSim) snapshot() []engine.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Input(nil), f.inputs...)
}

func (f *fakeSim) has(match func(engine.Input) bool) bool {
	for _, in := range f.snapshot() {
		if match(in) {
			return true
		}
	}
	return false
}

type harness struct {
	sim *fakeSim
	hub *Hub
	srv *Server
}

func startServer(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := &fakeSim{}
	hub := NewHub(log)
	srv := New(sim, hub, Config{Addr: "127.0.0.1:0", Logger: log})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })
	return &harness{sim: sim, hub: hub, srv: srv}
}

func dial(t *testing.T, h *harness) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", h.srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn, bufio.NewReader(conn)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

// handshake sends name and reads the id, size and single wall line.
func handshake(t *testing.T, h *harness, name string) (net.Conn, *bufio.Reader, string) {
	t.Helper()
	conn, r := dial(t, h)
	_, err := conn.Write([]byte(name))
	require.NoError(t, err)

	id := readLine(t, r)
	assert.Equal(t, "2000", readLine(t, r))
	entity, err := protocol.DecodeLine([]byte(readLine(t, r)))
	require.NoError(t, err)
	assert.IsType(t, world.Wall{}, entity)
	return conn, r, id
}

func TestServer_HandshakeAssignsSequentialIDs(t *testing.T) {
	h := startServer(t)

	_, _, first := handshake(t, h, "alice\n")
	_, _, second := handshake(t, h, "bob\n")
	assert.Equal(t, "0", first)
	assert.Equal(t, "1", second)

	assert.Eventually(t, func() bool { return h.hub.Len() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.sim.has(func(in engine.Input) bool {
		j, ok := in.(engine.Join)
		return ok && j.TankID == 0 && j.Name == "alice" && j.Address != ""
	}))
	assert.Equal(t, uint64(2), h.srv.Accepted())
}

func TestServer_NameWithoutNewline(t *testing.T) {
	h := startServer(t)

	_, _, id := handshake(t, h, "carol")
	assert.Equal(t, "0", id)
	assert.Eventually(t, func() bool {
		return h.sim.has(func(in engine.Input) bool {
			j, ok := in.(engine.Join)
			return ok && j.Name == "carol"
		})
	}, time.Second, 5*time.Millisecond)
}

func TestServer_NameSplitAcrossWrites(t *testing.T) {
	h := startServer(t)
	conn, r := dial(t, h)

	_, err := conn.Write([]byte("ali"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = conn.Write([]byte("ce\n{\"moving\":\"down\",\"fire\":\"none\",\"tdir\":{\"x\":0,\"y\":1}}\n"))
	require.NoError(t, err)

	assert.Equal(t, "0", readLine(t, r))
	assert.Eventually(t, func() bool {
		return h.sim.has(func(in engine.Input) bool {
			c, ok := in.(engine.Command)
			return ok && c.TankID == 0 && c.Command.Moving == protocol.MoveDown
		})
	}, time.Second, 5*time.Millisecond)

	var names []string
	for _, in := range h.sim.snapshot() {
		if j, ok := in.(engine.Join); ok {
			names = append(names, j.Name)
		}
	}
	assert.Equal(t, []string{"alice"}, names)
}

func TestServer_LongNameWithoutNewline(t *testing.T) {
	h := startServer(t)
	conn, r := dial(t, h)

	start := time.Now()
	_, err := conn.Write([]byte(strings.Repeat("z", maxNameBytes)))
	require.NoError(t, err)

	assert.Equal(t, "0", readLine(t, r))
	assert.Less(t, time.Since(start), nameWait)
	assert.True(t, h.sim.has(func(in engine.Input) bool {
		j, ok := in.(engine.Join)
		return ok && j.Name == strings.Repeat("z", protocol.MaxNameLength)
	}))
}

func TestServer_ForwardsCommands(t *testing.T) {
	h := startServer(t)
	conn, _, _ := handshake(t, h, "alice\n")

	_, err := conn.Write([]byte("garbage\n{\"moving\":\"up\",\"fire\":\"main\",\"tdir\":{\"x\":1,\"y\":0}}\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return h.sim.has(func(in engine.Input) bool {
			c, ok := in.(engine.Command)
			return ok && c.TankID == 0 && c.Command.Moving == protocol.MoveUp && c.Command.Fire == protocol.FireMain
		})
	}, time.Second, 5*time.Millisecond)
}

func TestServer_CommandSplitAcrossWrites(t *testing.T) {
	h := startServer(t)
	conn, _, _ := handshake(t, h, "alice\n")

	_, err := conn.Write([]byte(`{"moving":"left","fire":"none",`))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = conn.Write([]byte(`"tdir":{"x":0,"y":-1}}` + "\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return h.sim.has(func(in engine.Input) bool {
			c, ok := in.(engine.Command)
			return ok && c.Command.Moving == protocol.MoveLeft
		})
	}, time.Second, 5*time.Millisecond)
}

func TestServer_DisconnectSubmitsLeave(t *testing.T) {
	h := startServer(t)
	conn, _, _ := handshake(t, h, "alice\n")
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return h.sim.has(func(in engine.Input) bool {
			l, ok := in.(engine.Leave)
			return ok && l.TankID == 0
		})
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return h.hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServer_BroadcastFollowsHandshake(t *testing.T) {
	h := startServer(t)
	_, r, _ := handshake(t, h, "alice\n")
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	h.hub.Broadcast([]byte(`{"tank":0}` + "\n"))
	assert.Equal(t, `{"tank":0}`, readLine(t, r))
}

func TestHub_EvictsClosedPeer(t *testing.T) {
	h := startServer(t)
	handshake(t, h, "alice\n")
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	peers := h.hub.Peers()
	require.Len(t, peers, 1)
	require.NoError(t, peers[0].Conn.Close())

	h.hub.Broadcast([]byte("frame\n"))

	assert.Equal(t, 0, h.hub.Len())
	assert.Eventually(t, func() bool {
		return h.sim.has(func(in engine.Input) bool {
			_, ok := in.(engine.Leave)
			return ok
		})
	}, time.Second, 5*time.Millisecond)
}

func TestServer_StopClosesClients(t *testing.T) {
	h := startServer(t)
	_, r, _ := handshake(t, h, "alice\n")
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.srv.Stop())

	_, err := r.ReadString('\n')
	assert.Error(t, err)
}
