// Package gormstorage implements storage.Backend on GORM. Matches and
// players are written synchronously so their ids are known at once; events
// are queued and drained into the database by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abporter521/CS3500-TankWars/internal/config"
	"github.com/abporter521/CS3500-TankWars/internal/database"
	"github.com/abporter521/CS3500-TankWars/internal/model"
	"github.com/abporter521/CS3500-TankWars/internal/model/convert"
	"github.com/abporter521/CS3500-TankWars/internal/queue"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// DefaultWriteInterval is how often queued events are written.
const DefaultWriteInterval = 2 * time.Second

// ErrNoMatch is returned by EndMatch when no match was started.
var ErrNoMatch = errors.New("no match started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB // opened from DBConfig when nil
	DBConfig      config.DBConfig
	ServerName    string
	Logger        *slog.Logger
	WriteInterval time.Duration
}

type queues struct {
	Shots     *queue.Queue[model.ShotEvent]
	Hits      *queue.Queue[model.HitEvent]
	Kills     *queue.Queue[model.KillEvent]
	Beams     *queue.Queue[model.BeamEvent]
	PowerUps  *queue.Queue[model.PowerUpEvent]
	Lifecycle *queue.Queue[model.LifecycleEvent]
	TickStats *queue.Queue[model.TickStats]
}

func newQueues() *queues {
	return &queues{
		Shots:     queue.New[model.ShotEvent](),
		Hits:      queue.New[model.HitEvent](),
		Kills:     queue.New[model.KillEvent](),
		Beams:     queue.New[model.BeamEvent](),
		PowerUps:  queue.New[model.PowerUpEvent](),
		Lifecycle: queue.New[model.LifecycleEvent](),
		TickStats: queue.New[model.TickStats](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	log    *slog.Logger
	queues *queues

	matchID   atomic.Uint64
	arenaSize atomic.Int64

	// serializes flushes between the writer goroutine and callers
	writeMu   deadlock.Mutex
	lastWrite atomic.Int64

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps:   deps,
		log:    deps.Logger.With("component", "gormstorage"),
		queues: newQueues(),
	}
}

// Init migrates the schema and starts the DB writer goroutine. Without an
// injected DB it opens Postgres from the configured DBConfig.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.DBConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.log.Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := database.Setup(b.deps.DB, b.deps.ServerName); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		<-b.done
		err = b.Flush()
	})
	return err
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// StartMatch inserts the match with its walls and assigns the DB id back to m.
func (b *Backend) StartMatch(m *core.Match) error {
	b.arenaSize.Store(int64(m.ArenaSize))
	gm := convert.CoreToMatch(*m)
	if err := b.deps.DB.Create(&gm).Error; err != nil {
		return fmt.Errorf("failed to insert new match: %w", err)
	}
	m.ID = gm.ID
	b.matchID.Store(uint64(gm.ID))
	b.log.Info("Match created", "id", gm.ID, "uuid", gm.UUID, "walls", len(gm.Walls))
	return nil
}

// SetMatchID points the writer at an existing match.
func (b *Backend) SetMatchID(id uint) {
	b.matchID.Store(uint64(id))
}

// EndMatch writes every queued event and stamps the match end time.
func (b *Backend) EndMatch() error {
	id := uint(b.matchID.Load())
	if id == 0 {
		return ErrNoMatch
	}
	if err := b.Flush(); err != nil {
		return err
	}
	err := b.deps.DB.Model(&model.Match{}).Where("id = ?", id).Update("end_time", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to close match %d: %w", id, err)
	}
	return nil
}

// AddPlayer inserts the player synchronously and assigns its DB id.
func (b *Backend) AddPlayer(p *core.Player) error {
	gp := convert.CoreToPlayer(*p)
	gp.MatchID = uint(b.matchID.Load())
	if err := b.deps.DB.Create(&gp).Error; err != nil {
		return fmt.Errorf("failed to insert player %q: %w", p.Name, err)
	}
	p.ID = gp.ID
	return nil
}

func (b *Backend) RecordShot(e *core.ShotEvent) error {
	b.queues.Shots.Push(convert.CoreToShotEvent(*e))
	return nil
}

func (b *Backend) RecordHit(e *core.HitEvent) error {
	b.queues.Hits.Push(convert.CoreToHitEvent(*e))
	return nil
}

func (b *Backend) RecordKill(e *core.KillEvent) error {
	b.queues.Kills.Push(convert.CoreToKillEvent(*e))
	return nil
}

func (b *Backend) RecordBeam(e *core.BeamEvent) error {
	b.queues.Beams.Push(convert.CoreToBeamEvent(*e, int(b.arenaSize.Load())))
	return nil
}

func (b *Backend) RecordPowerUp(e *core.PowerUpEvent) error {
	b.queues.PowerUps.Push(convert.CoreToPowerUpEvent(*e))
	return nil
}

func (b *Backend) RecordLifecycle(e *core.LifecycleEvent) error {
	b.queues.Lifecycle.Push(convert.CoreToLifecycleEvent(*e))
	return nil
}

func (b *Backend) RecordTickStats(s *core.TickStats) error {
	b.queues.TickStats.Push(convert.CoreToTickStats(*s))
	return nil
}

// Pending returns how many events wait in the write queues.
func (b *Backend) Pending() int {
	q := b.queues
	return q.Shots.Len() + q.Hits.Len() + q.Kills.Len() + q.Beams.Len() +
		q.PowerUps.Len() + q.Lifecycle.Len() + q.TickStats.Len()
}

// GetLastDBWriteDuration reports how long the last flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Flush writes every queued event, stamping each with the current match id.
// Failed batches are requeued and the first error is returned.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	id := uint(b.matchID.Load())
	q := b.queues
	errs := []error{
		writeQueue(b.deps.DB, q.Shots, "shot events", func(e *model.ShotEvent) { e.MatchID = id }),
		writeQueue(b.deps.DB, q.Hits, "hit events", func(e *model.HitEvent) { e.MatchID = id }),
		writeQueue(b.deps.DB, q.Kills, "kill events", func(e *model.KillEvent) { e.MatchID = id }),
		writeQueue(b.deps.DB, q.Beams, "beam events", func(e *model.BeamEvent) { e.MatchID = id }),
		writeQueue(b.deps.DB, q.PowerUps, "power-up events", func(e *model.PowerUpEvent) { e.MatchID = id }),
		writeQueue(b.deps.DB, q.Lifecycle, "lifecycle events", func(e *model.LifecycleEvent) { e.MatchID = id }),
		writeQueue(b.deps.DB, q.TickStats, "tick stats", func(s *model.TickStats) { s.MatchID = id }),
	}
	b.lastWrite.Store(int64(time.Since(start)))

	err := errors.Join(errs...)
	if err != nil {
		b.log.Error("DB write failed", "error", err)
	}
	return err
}

// writeQueue writes all items from a queue in one transaction. On failure
// the items go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, stamp func(*T)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	for i := range items {
		stamp(&items[i])
	}

	tx := db.Begin()
	if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("committing %s: %w", name, err)
	}
	return nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if b.matchID.Load() == 0 {
				continue
			}
			_ = b.Flush()
		}
	}
}
