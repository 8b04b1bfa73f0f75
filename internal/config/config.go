package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "tankwars.cfg.json"

// ConfigError reports a configuration value that cannot be used.
type ConfigError struct {
	Key    string
	Value  any
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s=%v: %s: %v", e.Key, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s=%v: %s", e.Key, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// PointConfig is an arena coordinate in the config file.
type PointConfig struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// WallConfig is one axis-aligned wall segment.
type WallConfig struct {
	P1 PointConfig `json:"p1" mapstructure:"p1"`
	P2 PointConfig `json:"p2" mapstructure:"p2"`
}

// GameSettings are the simulation parameters of a match.
type GameSettings struct {
	UniverseSize    int          `json:"universeSize" mapstructure:"universeSize"`
	MSPerFrame      int          `json:"msPerFrame" mapstructure:"msPerFrame"`
	FramesPerShot   int          `json:"framesPerShot" mapstructure:"framesPerShot"`
	RespawnRate     int          `json:"respawnRate" mapstructure:"respawnRate"`
	MaxPowerUps     int          `json:"maxPowerUps" mapstructure:"maxPowerUps"`
	PowerUpInterval int          `json:"powerUpInterval" mapstructure:"powerUpInterval"`
	EngineForce     float64      `json:"engineForce" mapstructure:"engineForce"`
	ProjectileSpeed float64      `json:"projectileSpeed" mapstructure:"projectileSpeed"`
	Walls           []WallConfig `json:"walls" mapstructure:"walls"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Name          string        `json:"name" mapstructure:"name"`
	Port          int           `json:"port" mapstructure:"port"`
	SendQueueSize int           `json:"sendQueueSize" mapstructure:"sendQueueSize"`
	WriteTimeout  time.Duration `json:"writeTimeout" mapstructure:"writeTimeout"`
}

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	Format         string `json:"format" mapstructure:"format"` // json or msgpack
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpDir      string        `json:"dumpDir" mapstructure:"dumpDir"`
}

// WebSocketConfig holds the live viewer stream settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the match recorder backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"` // memory, gorm, sqlite, websocket
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// GraylogConfig holds the GELF log sink settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// APIConfig holds the leaderboard service settings
type APIConfig struct {
	ServerURL   string
	APIKey      string
	UploadOnEnd bool
}

// MonitorConfig holds the status monitor settings
type MonitorConfig struct {
	Enabled    bool
	Interval   time.Duration
	StatusFile string
}

// Load reads configuration from the JSON file in configDir and sets default
// values. A missing or unparseable file is reported as *ConfigError.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return &ConfigError{Key: FileName, Value: configDir, Reason: "error reading config file", Err: err}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./tankwars-logs")
	viper.SetDefault("defaultTag", "FFA")

	viper.SetDefault("server.name", "TankWars")
	viper.SetDefault("server.port", 11000)
	viper.SetDefault("server.sendQueueSize", 256)
	viper.SetDefault("server.writeTimeout", "5s")

	viper.SetDefault("game.universeSize", 2000)
	viper.SetDefault("game.msPerFrame", 17)
	viper.SetDefault("game.framesPerShot", 80)
	viper.SetDefault("game.respawnRate", 300)
	viper.SetDefault("game.maxPowerUps", 2)
	viper.SetDefault("game.powerUpInterval", 1650)
	viper.SetDefault("game.engineForce", 3.0)
	viper.SetDefault("game.projectileSpeed", 25.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.memory.format", "json")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpDir", "./recordings")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/ws/record")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.uploadOnEnd", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "tankwars")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "tankwars-metrics")
	viper.SetDefault("influx.bucket", "server-performance")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "tankwars-server")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "status.txt")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetGameSettings returns the validated simulation settings. Invalid values
// are reported as *ConfigError.
func GetGameSettings() (GameSettings, error) {
	gs := GameSettings{
		UniverseSize:    viper.GetInt("game.universeSize"),
		MSPerFrame:      viper.GetInt("game.msPerFrame"),
		FramesPerShot:   viper.GetInt("game.framesPerShot"),
		RespawnRate:     viper.GetInt("game.respawnRate"),
		MaxPowerUps:     viper.GetInt("game.maxPowerUps"),
		PowerUpInterval: viper.GetInt("game.powerUpInterval"),
		EngineForce:     viper.GetFloat64("game.engineForce"),
		ProjectileSpeed: viper.GetFloat64("game.projectileSpeed"),
	}
	if err := viper.UnmarshalKey("game.walls", &gs.Walls); err != nil {
		return gs, &ConfigError{Key: "game.walls", Value: viper.Get("game.walls"), Reason: "not a list of walls", Err: err}
	}
	return gs, gs.Validate()
}

// Validate checks every game setting and the wall geometry.
func (gs GameSettings) Validate() error {
	checks := []struct {
		key    string
		value  int
		min    int
		reason string
	}{
		{"game.universeSize", gs.UniverseSize, 61, "must be larger than a tank"},
		{"game.msPerFrame", gs.MSPerFrame, 1, "must be positive"},
		{"game.framesPerShot", gs.FramesPerShot, 0, "must not be negative"},
		{"game.respawnRate", gs.RespawnRate, 1, "must be at least 1"},
		{"game.maxPowerUps", gs.MaxPowerUps, 0, "must not be negative"},
		{"game.powerUpInterval", gs.PowerUpInterval, 0, "must not be negative"},
	}
	for _, c := range checks {
		if c.value < c.min {
			return &ConfigError{Key: c.key, Value: c.value, Reason: c.reason}
		}
	}
	if gs.EngineForce <= 0 {
		return &ConfigError{Key: "game.engineForce", Value: gs.EngineForce, Reason: "must be positive"}
	}
	if gs.ProjectileSpeed <= 0 {
		return &ConfigError{Key: "game.projectileSpeed", Value: gs.ProjectileSpeed, Reason: "must be positive"}
	}

	half := float64(gs.UniverseSize) / 2
	for i, w := range gs.Walls {
		key := fmt.Sprintf("game.walls[%d]", i)
		if w.P1.X != w.P2.X && w.P1.Y != w.P2.Y {
			return &ConfigError{Key: key, Value: w, Reason: "wall must be horizontal or vertical"}
		}
		for _, p := range []PointConfig{w.P1, w.P2} {
			if p.X < -half || p.X > half || p.Y < -half || p.Y > half {
				return &ConfigError{Key: key, Value: w, Reason: "wall endpoint outside the arena"}
			}
		}
	}
	return nil
}

// GetServerConfig returns the listener settings.
func GetServerConfig() (ServerConfig, error) {
	sc := ServerConfig{
		Name:          viper.GetString("server.name"),
		Port:          viper.GetInt("server.port"),
		SendQueueSize: viper.GetInt("server.sendQueueSize"),
		WriteTimeout:  viper.GetDuration("server.writeTimeout"),
	}
	if sc.Port < 0 || sc.Port > 65535 {
		return sc, &ConfigError{Key: "server.port", Value: sc.Port, Reason: "not a TCP port"}
	}
	if sc.SendQueueSize < 1 {
		return sc, &ConfigError{Key: "server.sendQueueSize", Value: sc.SendQueueSize, Reason: "must be positive"}
	}
	return sc, nil
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
			Format:         viper.GetString("storage.memory.format"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpDir:      viper.GetString("storage.sqlite.dumpDir"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
		SSLMode:  viper.GetString("db.sslmode"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF sink configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetAPIConfig returns the leaderboard service configuration.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL:   viper.GetString("api.serverUrl"),
		APIKey:      viper.GetString("api.apiKey"),
		UploadOnEnd: viper.GetBool("api.uploadOnEnd"),
	}
}

// GetMonitorConfig returns the status monitor configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}
