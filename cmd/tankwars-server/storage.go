package main

import (
	"fmt"
	"log/slog"

	"github.com/abporter521/CS3500-TankWars/internal/config"
	"github.com/abporter521/CS3500-TankWars/internal/storage"
	gormstorage "github.com/abporter521/CS3500-TankWars/internal/storage/gorm"
	"github.com/abporter521/CS3500-TankWars/internal/storage/memory"
	sqlitestorage "github.com/abporter521/CS3500-TankWars/internal/storage/sqlite"
	wsstorage "github.com/abporter521/CS3500-TankWars/internal/storage/websocket"
	"github.com/abporter521/CS3500-TankWars/internal/util"
)

// recordPath is where the leaderboard service accepts live match streams.
const recordPath = "/ws/record"

func createStorageBackend(storageCfg config.StorageConfig, serverName string, log *slog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "gorm", "postgres":
		log.Info("Postgres storage backend initialized")
		return gormstorage.New(gormstorage.Dependencies{
			DBConfig:   config.GetDBConfig(),
			ServerName: serverName,
			Logger:     log,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, serverName, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite storage backend initialized", "dumpDir", storageCfg.SQLite.DumpDir)
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			var err error
			wsURL, err = util.WebSocketURL(config.GetAPIConfig().ServerURL, recordPath)
			if err != nil {
				return nil, fmt.Errorf("failed to derive websocket url: %w", err)
			}
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = config.GetAPIConfig().APIKey
		}
		log.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
			Logger: log,
		}), nil

	case "memory", "":
		log.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, &config.ConfigError{Key: "storage.type", Value: storageCfg.Type, Reason: "unknown storage backend"}
	}
}
