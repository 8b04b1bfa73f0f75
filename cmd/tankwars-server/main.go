// Command tankwars-server hosts a TankWars arena: it accepts clients, runs
// the simulation and records the match through the configured storage
// backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/abporter521/CS3500-TankWars/internal/api"
	"github.com/abporter521/CS3500-TankWars/internal/cache"
	"github.com/abporter521/CS3500-TankWars/internal/config"
	"github.com/abporter521/CS3500-TankWars/internal/dispatcher"
	"github.com/abporter521/CS3500-TankWars/internal/engine"
	"github.com/abporter521/CS3500-TankWars/internal/influx"
	"github.com/abporter521/CS3500-TankWars/internal/logging"
	"github.com/abporter521/CS3500-TankWars/internal/match"
	"github.com/abporter521/CS3500-TankWars/internal/monitor"
	intOtel "github.com/abporter521/CS3500-TankWars/internal/otel"
	"github.com/abporter521/CS3500-TankWars/internal/server"
	"github.com/abporter521/CS3500-TankWars/internal/storage"
	"github.com/abporter521/CS3500-TankWars/internal/storage/memory"
	"github.com/abporter521/CS3500-TankWars/internal/transport"
	"github.com/abporter521/CS3500-TankWars/internal/worker"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const (
	serviceName     = "tankwars-server"
	shutdownTimeout = 10 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	port := fs.Int("port", 0, "listen port (overrides server.port)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sessionStart := time.Now()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{Level: "info", ServiceName: serviceName})
	log := slogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		return fatal(log, err)
	}
	log.Info("Loaded config", "dir", *configDir)

	gameSettings, err := config.GetGameSettings()
	if err != nil {
		return fatal(log, err)
	}
	serverCfg, err := config.GetServerConfig()
	if err != nil {
		return fatal(log, err)
	}
	if *port != 0 {
		if *port < 1 || *port > 65535 {
			return fatal(log, &config.ConfigError{Key: "server.port", Value: *port, Reason: "must be between 1 and 65535"})
		}
		serverCfg.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := viper.GetString("logLevel")
	logsDir := viper.GetString("logsDir")

	logFilePath := logging.LogFilePath(logsDir, serviceName, sessionStart)
	logFile, err := logging.OpenLogFile(logFilePath)
	if err != nil {
		log.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	} else {
		defer logFile.Close()
	}

	otelCfg := config.GetOTelConfig()
	var fileWriter io.Writer
	if logFile != nil {
		fileWriter = logFile
	}
	otelProvider, err := intOtel.New(ctx, intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: Version,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      fileWriter,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		log.Error("Failed to initialize OTel provider", "error", err)
		otelProvider, _ = intOtel.New(ctx, intOtel.Config{})
	}

	var graylog logging.MessageWriter
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			log.Error("Failed to connect to Graylog", "error", err, "address", gl.Address)
		} else {
			graylog = w
			defer w.Close()
		}
	}

	matchCtx := match.NewContext()

	var logProvider *sdklog.LoggerProvider
	if otelProvider.Enabled() {
		logProvider = otelProvider.LoggerProvider()
	}
	slogManager.Setup(logging.Options{
		Level:       level,
		Console:     os.Stdout,
		File:        fileWriter,
		Provider:    logProvider,
		Graylog:     graylog,
		Context:     matchCtx.LogAttrs,
		ServiceName: serviceName,
	})
	log = slogManager.Logger()
	log.Info("Starting TankWars server", "version", Version, "build", BuildDate, "logFile", logFilePath)

	zlWriter := io.Writer(os.Stderr)
	if logFile != nil {
		zlWriter = logFile
	}

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(zlWriter, level, "dispatcher")))
	if err != nil {
		log.Error("Failed to create dispatcher", "error", err)
		return 1
	}

	backend, err := openStorage(config.GetStorageConfig(), serverCfg.Name, log)
	if err != nil {
		return fatal(log, err)
	}

	workerManager := worker.NewManager(worker.Dependencies{
		Players: cache.NewPlayerCache(),
		Match:   matchCtx,
		Logger:  log,
	}, backend)
	workerManager.RegisterHandlers(eventDispatcher)
	log.Debug("Worker handlers registered with dispatcher", "commands", len(eventDispatcher.Commands()))

	hub := server.NewHub(log)
	sim, err := engine.New(engine.Dependencies{
		Settings:    engineSettings(gameSettings),
		Broadcaster: hub,
		Recorder:    eventDispatcher,
		Logger:      log,
	})
	if err != nil {
		return fatal(log, &config.ConfigError{Key: "game", Value: gameSettings.UniverseSize, Reason: "invalid simulation settings", Err: err})
	}

	started, err := workerManager.StartMatch(matchSettings(serverCfg.Name, viper.GetString("defaultTag"), sim.Settings()), sessionStart)
	if err != nil {
		log.Error("Failed to start match recording", "error", err)
	} else {
		log.Info("Match started", "uuid", started.UUID, "id", started.ID, "walls", len(started.Walls))
	}

	influxManager := startInflux(ctx, logsDir, level, zlWriter, sessionStart, log)

	var monitorService *monitor.Service
	if mc := config.GetMonitorConfig(); mc.Enabled {
		deps := monitor.Dependencies{
			Engine:     sim,
			Match:      matchCtx,
			Recorder:   workerManager,
			Logger:     log,
			StatusFile: statusFilePath(logsDir, mc.StatusFile),
			Interval:   mc.Interval,
		}
		if influxManager != nil {
			deps.Influx = influxManager
		}
		monitorService = monitor.NewService(deps)
		if err := monitorService.Start(); err != nil {
			log.Error("Failed to start monitor", "error", err)
		}
	}

	srv := server.New(sim, hub, server.Config{
		Addr: fmt.Sprintf(":%d", serverCfg.Port),
		Transport: transport.Config{
			Logger:        log,
			SendQueueSize: serverCfg.SendQueueSize,
			WriteTimeout:  serverCfg.WriteTimeout,
		},
		Logger: log,
	})
	if err := srv.Start(); err != nil {
		log.Error("Failed to start server", "error", err, "port", serverCfg.Port)
		return 1
	}
	log.Info("Accepting clients", "addr", srv.Addr().String())

	simDone := make(chan error, 1)
	go func() { simDone <- sim.Run(ctx) }()

	simStopped := false
	select {
	case <-ctx.Done():
		log.Info("Shutdown requested")
	case err := <-simDone:
		log.Error("Simulation stopped unexpectedly", "error", err)
		simStopped = true
		stop()
	}

	if err := srv.Stop(); err != nil {
		log.Warn("Failed to stop server cleanly", "error", err)
	}
	if !simStopped {
		select {
		case <-simDone:
		case <-time.After(shutdownTimeout):
			log.Warn("Simulation did not stop in time")
		}
	}
	if monitorService != nil {
		monitorService.Stop()
	}

	// Drain buffered handlers so every event reaches the backend before the
	// match is closed.
	eventDispatcher.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	endMatch(shutdownCtx, workerManager, backend, log)

	if err := backend.Close(); err != nil {
		log.Error("Failed to close storage backend", "error", err)
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			log.Warn("Failed to close InfluxDB", "error", err)
		}
	}
	if err := otelProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shut down OTel provider", "error", err)
	}
	log.Info("Server stopped", "accepted", srv.Accepted())
	return 0
}

// openStorage creates and initializes the configured backend. A backend that
// fails to initialize is replaced by the in-memory one so the arena still
// runs.
func openStorage(cfg config.StorageConfig, serverName string, log *slog.Logger) (storage.Backend, error) {
	backend, err := createStorageBackend(cfg, serverName, log)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		log.Error("Failed to initialize storage backend, falling back to memory", "error", err, "type", cfg.Type)
		backend = memory.New(cfg.Memory)
		if err := backend.Init(); err != nil {
			return nil, err
		}
	}
	return backend, nil
}

func startInflux(ctx context.Context, logsDir, level string, w io.Writer, start time.Time, log *slog.Logger) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	backupPath := filepath.Join(logsDir, fmt.Sprintf("influx_backup_%s.log.gz", start.Format("20060102_150405")))
	m := influx.NewManager(logging.NewZerolog(w, level, "influx"), cfg, backupPath)
	if err := m.Connect(ctx); err != nil {
		log.Error("Failed to connect to InfluxDB", "error", err, "url", m.URL())
		return nil
	}
	if !m.Valid() {
		log.Warn("InfluxDB unreachable, writing points to backup file", "path", backupPath)
	}
	return m
}

func endMatch(ctx context.Context, wm *worker.Manager, backend storage.Backend, log *slog.Logger) {
	ended, scores, err := wm.EndMatch(time.Now())
	if err != nil {
		log.Error("Failed to end match", "error", err)
		return
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return scores[names[i]] > scores[names[j]] })
	for _, name := range names {
		log.Info("Final score", "player", name, "score", scores[name])
	}
	log.Info("Match ended", "uuid", ended.UUID, "duration", ended.Duration())

	apiCfg := config.GetAPIConfig()
	if !apiCfg.UploadOnEnd {
		return
	}
	client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		log.Warn("Leaderboard service is offline, skipping upload", "error", err)
		return
	}
	uploaded, err := client.UploadExport(ctx, backend)
	switch {
	case err != nil:
		log.Error("Failed to upload match", "error", err)
	case uploaded:
		log.Info("Uploaded match", "server", apiCfg.ServerURL)
	default:
		log.Debug("Storage backend has nothing to upload")
	}
}

func statusFilePath(logsDir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(logsDir, name)
}

func fatal(log *slog.Logger, err error) int {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		log.Error("Invalid configuration", "key", cfgErr.Key, "error", err)
	} else {
		log.Error("Startup failed", "error", err)
	}
	return 1
}
