// Package sqlitestorage records matches into an in-memory SQLite database
// through the GORM backend and periodically snapshots it to disk with
// VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/sasha-s/go-deadlock"
	"gorm.io/gorm"

	"github.com/abporter521/CS3500-TankWars/internal/config"
	"github.com/abporter521/CS3500-TankWars/internal/database"
	gormstorage "github.com/abporter521/CS3500-TankWars/internal/storage/gorm"
	"github.com/abporter521/CS3500-TankWars/internal/util"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg config.SQLiteConfig
	log *slog.Logger

	mu       deadlock.Mutex
	dumpPath string
	dumpMu   deadlock.Mutex

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, serverName string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         db,
			ServerName: serverName,
			Logger:     logger,
		}),
		db:  db,
		cfg: cfg,
		log: logger.With("component", "sqlitestorage"),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.dumpLoop()
	return nil
}

// Close stops the dump goroutine, flushes and writes a final snapshot.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.DumpPath() == "" {
		return nil
	}
	return b.Dump()
}

// StartMatch names the dump file after the match and records it.
func (b *Backend) StartMatch(m *core.Match) error {
	if err := b.Backend.StartMatch(m); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.db", util.SafeFileName(m.ServerName), m.StartTime.UTC().Format("20060102_150405"))
	b.mu.Lock()
	b.dumpPath = filepath.Join(b.cfg.DumpDir, name)
	b.mu.Unlock()
	return nil
}

// EndMatch closes the match and snapshots the database.
func (b *Backend) EndMatch() error {
	if err := b.Backend.EndMatch(); err != nil {
		return err
	}
	return b.Dump()
}

// DumpPath is the snapshot file of the current match, or "" before one starts.
func (b *Backend) DumpPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

// Dump writes queued events and snapshots the database to DumpPath.
func (b *Backend) Dump() error {
	path := b.DumpPath()
	if path == "" {
		return database.ErrNoDumpPath
	}
	b.dumpMu.Lock()
	defer b.dumpMu.Unlock()
	if err := b.Flush(); err != nil {
		return err
	}
	start := time.Now()
	if err := database.DumpToDisk(b.db, path); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", path, "took", time.Since(start))
	return nil
}

func (b *Backend) dumpLoop() {
	defer close(b.done)
	if b.cfg.DumpInterval <= 0 {
		<-b.stopChan
		return
	}
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if b.DumpPath() == "" {
				continue
			}
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
