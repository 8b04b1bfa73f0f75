// Package engine runs the authoritative TankWars simulation. All world
// mutation happens on the goroutine that calls Step; other goroutines only
// Submit inputs and read published Stats.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/dispatcher"
	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	"github.com/abporter521/CS3500-TankWars/internal/queue"
	"github.com/abporter521/CS3500-TankWars/internal/world"
)

const (
	// DefaultEngineForce is the distance a tank moves per tick.
	DefaultEngineForce = 3.0
	// DefaultProjectileSpeed is the distance a projectile moves per tick.
	DefaultProjectileSpeed = 25.0

	maxSpawnAttempts = 200
)

// Settings are the per-match simulation parameters.
type Settings struct {
	UniverseSize    int
	MSPerFrame      int
	FramesPerShot   int
	RespawnRate     int
	MaxPowerUps     int
	PowerUpInterval int
	EngineForce     float64
	ProjectileSpeed float64
	Walls           []world.Wall
}

// Validate reports the first setting that cannot drive a simulation.
func (s Settings) Validate() error {
	switch {
	case float64(s.UniverseSize) <= world.TankSize:
		return fmt.Errorf("universe size %d is smaller than a tank", s.UniverseSize)
	case s.MSPerFrame <= 0:
		return fmt.Errorf("msPerFrame must be positive, got %d", s.MSPerFrame)
	case s.FramesPerShot < 0:
		return fmt.Errorf("framesPerShot must not be negative, got %d", s.FramesPerShot)
	case s.RespawnRate < 1:
		return fmt.Errorf("respawnRate must be at least 1, got %d", s.RespawnRate)
	case s.MaxPowerUps < 0:
		return fmt.Errorf("maxPowerUps must not be negative, got %d", s.MaxPowerUps)
	case s.PowerUpInterval < 0:
		return fmt.Errorf("powerUpInterval must not be negative, got %d", s.PowerUpInterval)
	}
	return nil
}

func (s Settings) withDefaults() Settings {
	if s.EngineForce == 0 {
		s.EngineForce = DefaultEngineForce
	}
	if s.ProjectileSpeed == 0 {
		s.ProjectileSpeed = DefaultProjectileSpeed
	}
	return s
}

// Broadcaster fans an encoded frame out to every connected client. It must
// not block the tick.
type Broadcaster interface {
	Broadcast(frame []byte)
}

// Recorder receives match events. *dispatcher.Dispatcher satisfies it.
type Recorder interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Dependencies holds everything an Engine needs from the outside.
type Dependencies struct {
	Settings    Settings
	Broadcaster Broadcaster
	Recorder    Recorder   // optional
	Logger      *slog.Logger
	Rand        *rand.Rand // optional, seeded from the clock when nil
}

// Input is something a client asked for, applied at the next tick.
type Input interface {
	isInput()
}

// Join adds a tank for a freshly handshaken client.
type Join struct {
	TankID  int
	Name    string
	Address string
}

// Command replaces the tank's standing control command.
type Command struct {
	TankID  int
	Command protocol.ControlCommand
}

// Leave marks the tank disconnected.
type Leave struct {
	TankID int
}

func (Join) isInput()    {}
func (Command) isInput() {}
func (Leave) isInput()   {}

// Stats is a summary of the most recent tick.
type Stats struct {
	Tick         uint64
	Players      int
	Projectiles  int
	PowerUps     int
	QueueLength  int
	TickDuration time.Duration
	Scores       map[string]int
}

// Engine owns the world and advances it one tick at a time.
type Engine struct {
	cfg         Settings
	broadcaster Broadcaster
	recorder    Recorder
	log         *slog.Logger
	rng         *rand.Rand

	world *world.World
	walls []world.Wall
	inbox *queue.Queue[Input]

	latest      map[int]protocol.ControlCommand
	pendingFire map[int]protocol.FireMode

	nextTank       atomic.Int64
	nextProjectile int
	nextBeam       int
	nextPowerUp    int
	powerUpTicks   int

	tick    uint64
	now     time.Time
	stats   atomic.Pointer[Stats]
	metrics *metrics
}

// New builds an engine with the configured walls in place.
func New(deps Dependencies) (*Engine, error) {
	cfg := deps.Settings.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Broadcaster == nil {
		return nil, errors.New("engine needs a broadcaster")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:         cfg,
		broadcaster: deps.Broadcaster,
		recorder:    deps.Recorder,
		log:         deps.Logger,
		rng:         deps.Rand,
		world:       world.New(cfg.UniverseSize),
		inbox:       queue.New[Input](),
		latest:      make(map[int]protocol.ControlCommand),
		pendingFire: make(map[int]protocol.FireMode),
		metrics:     m,
	}

	for i, w := range cfg.Walls {
		w.ID = i
		wall := w
		e.world.Walls[i] = &wall
	}
	e.walls = e.world.WallList()
	e.stats.Store(&Stats{})

	return e, nil
}

// NextTankID reserves the id for a new client. Safe for concurrent use.
func (e *Engine) NextTankID() int {
	return int(e.nextTank.Add(1) - 1)
}

// Submit queues an input for the next tick. Safe for concurrent use.
func (e *Engine) Submit(in Input) {
	e.inbox.Push(in)
}

// Walls returns the immutable wall list sent in every handshake.
func (e *Engine) Walls() []world.Wall {
	return e.walls
}

// Size returns the arena side length.
func (e *Engine) Size() int {
	return e.cfg.UniverseSize
}

// Settings returns the effective simulation settings.
func (e *Engine) Settings() Settings {
	return e.cfg
}

// Stats returns the summary published by the last completed tick.
func (e *Engine) Stats() Stats {
	return *e.stats.Load()
}

// Run steps the simulation every msPerFrame until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.cfg.MSPerFrame) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.Info("Simulation started",
		"universeSize", e.cfg.UniverseSize,
		"msPerFrame", e.cfg.MSPerFrame,
		"walls", len(e.walls))

	for {
		select {
		case <-ctx.Done():
			e.log.Info("Simulation stopped", "tick", e.tick)
			return ctx.Err()
		case <-ticker.C:
			e.Step()
		}
	}
}
