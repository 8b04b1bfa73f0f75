package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abporter521/CS3500-TankWars/internal/storage"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
	"github.com/abporter521/CS3500-TankWars/pkg/streaming"
)

var _ storage.Backend = (*Backend)(nil)

// viewer is a fake match viewer that records envelopes and acks start and
// end messages.
type viewer struct {
	srv *httptest.Server

	mu       sync.Mutex
	messages []streaming.Envelope
	queries  []string
	conns    []*ws.Conn
	noAck    bool
}

func newViewer(t *testing.T) *viewer {
	t.Helper()
	v := &viewer{}
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	v.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		v.mu.Lock()
		v.queries = append(v.queries, r.URL.RawQuery)
		v.conns = append(v.conns, c)
		v.mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if json.Unmarshal(msg, &env) != nil {
				continue
			}
			v.mu.Lock()
			v.messages = append(v.messages, env)
			noAck := v.noAck
			v.mu.Unlock()

			if !noAck && (env.Type == streaming.TypeStartMatch || env.Type == streaming.TypeEndMatch) {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if c.WriteMessage(ws.TextMessage, data) != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(v.srv.Close)
	return v
}

func (v *viewer) url() string {
	return "ws" + strings.TrimPrefix(v.srv.URL, "http")
}

func (v *viewer) all() []streaming.Envelope {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]streaming.Envelope(nil), v.messages...)
}

func (v *viewer) types() []string {
	var out []string
	for _, env := range v.all() {
		out = append(out, env.Type)
	}
	return out
}

func (v *viewer) dropConnections() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.conns {
		_ = c.Close()
	}
	v.conns = nil
}

func newBackend(t *testing.T, v *viewer, cfg Config) *Backend {
	t.Helper()
	cfg.URL = v.url()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	b := New(cfg)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInit_SendsSecret(t *testing.T) {
	v := newViewer(t)
	newBackend(t, v, Config{Secret: "s3cret"})

	require.Eventually(t, func() bool {
		v.mu.Lock()
		defer v.mu.Unlock()
		return len(v.queries) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "secret=s3cret", v.queries[0])
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/ws", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	assert.Error(t, b.Init())
}

func TestStartMatch_WaitsForAck(t *testing.T) {
	v := newViewer(t)
	b := newBackend(t, v, Config{})

	require.NoError(t, b.StartMatch(&core.Match{UUID: "m-1", ArenaSize: 2000}))

	msgs := v.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, streaming.TypeStartMatch, msgs[0].Type)
	var payload streaming.StartMatchPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, "m-1", payload.Match.UUID)
}

func TestStartMatch_AckTimeout(t *testing.T) {
	v := newViewer(t)
	v.noAck = true
	b := newBackend(t, v, Config{AckTimeout: 50 * time.Millisecond})

	err := b.StartMatch(&core.Match{UUID: "m-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestEvents_StreamInOrder(t *testing.T) {
	v := newViewer(t)
	b := newBackend(t, v, Config{})
	require.NoError(t, b.StartMatch(&core.Match{UUID: "m-1"}))

	alice := &core.Player{TankID: 0, Name: "alice"}
	require.NoError(t, b.AddPlayer(alice))
	assert.Equal(t, uint(1), alice.ID)
	require.NoError(t, b.RecordShot(&core.ShotEvent{Tick: 1}))
	require.NoError(t, b.RecordHit(&core.HitEvent{Tick: 2}))
	require.NoError(t, b.RecordKill(&core.KillEvent{Tick: 3, KillerID: 0, VictimID: 1}))
	require.NoError(t, b.RecordBeam(&core.BeamEvent{Tick: 4}))
	require.NoError(t, b.RecordPowerUp(&core.PowerUpEvent{Tick: 5}))
	require.NoError(t, b.RecordLifecycle(&core.LifecycleEvent{Tick: 6}))
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 60}))
	require.NoError(t, b.EndMatch())

	assert.Equal(t, []string{
		streaming.TypeStartMatch,
		streaming.TypeAddPlayer,
		streaming.TypeShot,
		streaming.TypeHit,
		streaming.TypeKill,
		streaming.TypeBeam,
		streaming.TypePowerUp,
		streaming.TypeLifecycle,
		streaming.TypeTickStats,
		streaming.TypeEndMatch,
	}, v.types())

	msgs := v.all()
	var end streaming.EndMatchPayload
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &end))
	assert.Equal(t, "m-1", end.UUID)
	assert.Equal(t, map[string]int{"alice#0": 1}, end.Scores)
}

func TestReconnect_ReplaysStart(t *testing.T) {
	v := newViewer(t)
	b := newBackend(t, v, Config{Backoff: 10 * time.Millisecond, MaxBackoff: 20 * time.Millisecond})
	require.NoError(t, b.StartMatch(&core.Match{UUID: "m-1"}))

	v.dropConnections()

	assert.Eventually(t, func() bool {
		n := 0
		for _, typ := range v.types() {
			if typ == streaming.TypeStartMatch {
				n++
			}
		}
		return n == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_ = b.RecordShot(&core.ShotEvent{Tick: 9})
		types := v.types()
		return types[len(types)-1] == streaming.TypeShot
	}, 2*time.Second, 20*time.Millisecond)
}

func TestClose_Idempotent(t *testing.T) {
	v := newViewer(t)
	b := newBackend(t, v, Config{})
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	err := b.stream.sendAndWait([]byte("{}"), streaming.TypeEndMatch, time.Second)
	assert.ErrorIs(t, err, ErrStreamClosed)
}
