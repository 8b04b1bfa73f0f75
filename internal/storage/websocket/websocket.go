// Package websocket implements storage.Backend by streaming every recorded
// event to a live match viewer.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/cache"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
	"github.com/abporter521/CS3500-TankWars/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string

	AckTimeout time.Duration
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Logger     *slog.Logger
}

func (c *Config) setDefaults() {
	if c.AckTimeout <= 0 {
		c.AckTimeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Backend streams match data to the viewer. It implements storage.Backend
// but not storage.Uploadable.
type Backend struct {
	cfg    Config
	stream *stream

	matchUUID atomic.Value // string
	playerID  atomic.Uint64
	// scoreboard sent with end_match
	players *cache.PlayerCache
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	cfg.setDefaults()
	log := cfg.Logger.With("component", "websocket")
	return &Backend{
		cfg:     cfg,
		stream:  newStream(cfg, log),
		players: cache.NewPlayerCache(),
	}
}

// Init connects to the viewer.
func (b *Backend) Init() error {
	return b.stream.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the viewer.
func (b *Backend) Close() error {
	return b.stream.close()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) publish(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.stream.send(data)
	return nil
}

// StartMatch sends the match and waits for the viewer's ack. The message is
// replayed whenever the connection is re-established.
func (b *Backend) StartMatch(m *core.Match) error {
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{Match: m})
	if err != nil {
		return err
	}
	b.players.Reset()
	b.playerID.Store(0)
	b.matchUUID.Store(m.UUID)
	b.stream.setReplay(data)
	return b.stream.sendAndWait(data, streaming.TypeStartMatch, b.cfg.AckTimeout)
}

// EndMatch sends the final scoreboard and waits for the viewer's ack.
func (b *Backend) EndMatch() error {
	uuid, _ := b.matchUUID.Load().(string)
	data, err := marshalEnvelope(streaming.TypeEndMatch, streaming.EndMatchPayload{
		UUID:   uuid,
		Scores: b.players.Scores(),
	})
	if err != nil {
		return err
	}
	err = b.stream.sendAndWait(data, streaming.TypeEndMatch, b.cfg.AckTimeout)

	b.stream.setReplay(nil)
	b.players.Reset()
	return err
}

// AddPlayer assigns the next player id and sends the player.
func (b *Backend) AddPlayer(p *core.Player) error {
	p.ID = uint(b.playerID.Add(1))
	b.players.Add(*p)
	return b.publish(streaming.TypeAddPlayer, p)
}

func (b *Backend) RecordShot(e *core.ShotEvent) error {
	return b.publish(streaming.TypeShot, e)
}

func (b *Backend) RecordHit(e *core.HitEvent) error {
	return b.publish(streaming.TypeHit, e)
}

func (b *Backend) RecordKill(e *core.KillEvent) error {
	b.players.AddKill(e.KillerID)
	return b.publish(streaming.TypeKill, e)
}

func (b *Backend) RecordBeam(e *core.BeamEvent) error {
	return b.publish(streaming.TypeBeam, e)
}

func (b *Backend) RecordPowerUp(e *core.PowerUpEvent) error {
	return b.publish(streaming.TypePowerUp, e)
}

func (b *Backend) RecordLifecycle(e *core.LifecycleEvent) error {
	return b.publish(streaming.TypeLifecycle, e)
}

func (b *Backend) RecordTickStats(s *core.TickStats) error {
	return b.publish(streaming.TypeTickStats, s)
}
