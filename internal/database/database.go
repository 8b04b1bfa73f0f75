// Package database opens the SQL stores used by the gorm and sqlite
// recorders and by the export CLI.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abporter521/CS3500-TankWars/internal/config"
	"github.com/abporter521/CS3500-TankWars/internal/model"
)

// ErrNoDumpPath is returned by DumpToDisk when no target file is given.
var ErrNoDumpPath = errors.New("sqlite file path not set")

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
}

// Manager handles a database connection with a SQLite fallback.
type Manager struct {
	DB              *gorm.DB
	IsValid         bool
	ShouldSaveLocal bool
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect opens Postgres and falls back to the SQLite file at fallbackPath
// when Postgres is unreachable. An empty fallbackPath disables the fallback.
func (m *Manager) Connect(cfg config.DBConfig, fallbackPath string) error {
	db, err := OpenPostgres(cfg)
	if err == nil {
		err = ping(db)
	}
	if err == nil {
		m.DB, m.IsValid = db, true
		m.Logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to database")
		return nil
	}
	if fallbackPath == "" {
		m.IsValid = false
		return fmt.Errorf("connect postgres: %w", err)
	}

	m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
	db, err = OpenSQLite(fallbackPath)
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	m.DB, m.IsValid, m.ShouldSaveLocal = db, true, true
	m.Logger.Info().Str("path", fallbackPath).Msg("Using local SQLite DB")
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DSN builds the Postgres connection string for cfg.
func DSN(cfg config.DBConfig) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslmode)
}

// OpenPostgres opens a Postgres connection without pinging it.
func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  DSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	return db, nil
}

// OpenSQLite opens a SQLite database at path. An empty path opens a private
// in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if path == "" {
		// shared-cache memory databases lock whole tables
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// Setup migrates every table and seeds the server info row.
func Setup(db *gorm.DB, serverName string) error {
	if !db.Migrator().HasTable(&model.ServerInfo{}) {
		if err := db.AutoMigrate(&model.ServerInfo{}); err != nil {
			return fmt.Errorf("failed to auto-migrate ServerInfo: %w", err)
		}
		if err := db.Create(&model.ServerInfo{
			ServerName:  serverName,
			Description: "TankWars match recordings",
		}).Error; err != nil {
			return fmt.Errorf("failed to create server_info entry: %w", err)
		}
	}
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DumpToDisk snapshots a SQLite database into path with VACUUM INTO,
// replacing any existing file.
func DumpToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return ErrNoDumpPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating dump dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}
	escaped := strings.ReplaceAll(path, "'", "''")
	if err := db.Exec("VACUUM INTO '" + escaped + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}

// BackupPaths returns every .db file directly inside dir.
func BackupPaths(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, f := range files {
		if !f.IsDir() && filepath.Ext(f.Name()) == ".db" {
			paths = append(paths, filepath.Join(dir, f.Name()))
		}
	}
	return paths, nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Ping()
}
