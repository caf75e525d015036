// File: internal/config/config.go
// Configuration management for the hex territory server.

package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all process-wide configuration.
type Config struct {
	// Server settings
	ServerName    string
	ServerVersion string
	ServerHost    string // empty = bind to all interfaces
	ServerPort    int
	Production    bool

	// Redis (KV facade) settings
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	KVPoolSize           int64 // weighted-semaphore capacity for the KV facade
	KVCommandTimeoutSecs int
	KVConnectTimeoutSecs int
	KVHealthIntervalSecs int

	// Identity & Auth
	AuthSecret string // HMAC secret; rotating it invalidates all tokens

	// Server behavior
	ShutdownTimeoutSecs int
	SessionTTLSecs      int // loaded from SESSION_TTL_SECS; no component reads it, and presence sessions carry no TTL
	MinReadyPlayers     int // MIN_READY

	// Room lifecycle timers (ms unless noted)
	StartDelayMillis         int64
	EconomyTickMillis        int64
	AutoExpandIntervalMillis int64
	AutoCaptureThreshold     int
	DrainTimeoutSecs         int // post-empty cleanup window, default 60s
	LobbyCountdownSecs       int // default 5

	// Cost model
	HexValue          float64
	ExpGrowth         float64
	OccupiedBase      float64
	AttackMult        float64
	RiverDiscount     float64 // 0.7
	BaseIncome        int
	StartingPoints    int
	StartingMaxPoints int
	UpgradeBankCost   int
	UpgradeFortCost   int
	UpgradeCityCost   int

	// Terrain generation
	MountainChainsMin    int
	MountainChainsMax    int
	MountainChainLength  int
	MountainChainSpacing int
	MountainAreaSize     int
	MountainDensity      float64
	MountainZigzagChance float64
	RiverCount           int
	RiverLength          int
	RiverMinSpacing      int
	RiverForkChance      float64
	RiverForkLength      int

	PlayerColors []string

	EventLogCap int // loaded from EVENT_LOG_CAP; not read: data.Events trims each game's log at its own fixed 10000
}

var defaultConfig = Config{
	ServerName:    "Hex Territory Server",
	ServerVersion: "1.0.0",
	ServerHost:    "",
	ServerPort:    8080,
	Production:    false,

	RedisAddr:            "localhost:6379",
	RedisPassword:        "",
	RedisDB:              0,
	KVPoolSize:           10,
	KVCommandTimeoutSecs: 5,
	KVConnectTimeoutSecs: 10,
	KVHealthIntervalSecs: 2,

	AuthSecret: "change-me-in-production",

	ShutdownTimeoutSecs: 30,
	SessionTTLSecs:      3600,
	MinReadyPlayers:     2,

	StartDelayMillis:         5000,
	EconomyTickMillis:        1000,
	AutoExpandIntervalMillis: 10000,
	AutoCaptureThreshold:     3,
	DrainTimeoutSecs:         60,
	LobbyCountdownSecs:       5,

	HexValue:          10,
	ExpGrowth:         5,
	OccupiedBase:      5,
	AttackMult:        2.5,
	RiverDiscount:     0.7,
	BaseIncome:        2,
	StartingPoints:    200,
	StartingMaxPoints: 200,
	UpgradeBankCost:   100,
	UpgradeFortCost:   300,
	UpgradeCityCost:   200,

	MountainChainsMin:    3,
	MountainChainsMax:    10,
	MountainChainLength:  9,
	MountainChainSpacing: 12,
	MountainAreaSize:     120,
	MountainDensity:      0.15,
	MountainZigzagChance: 0.2,
	RiverCount:           4,
	RiverLength:          20,
	RiverMinSpacing:      15,
	RiverForkChance:      0.35,
	RiverForkLength:      8,

	PlayerColors: []string{
		"#e74c3c", "#3498db", "#2ecc71", "#f1c40f",
		"#9b59b6", "#e67e22", "#1abc9c", "#34495e",
	},

	EventLogCap: 10000,
}

// Load loads configuration from an .env file (via godotenv) layered under
// process environment variables, falling back to defaults for anything unset.
// The -env flag picks a custom file path.
func Load() (*Config, error) {
	envFile := flag.String("env", ".env", "Path to environment configuration file")
	if !flag.Parsed() {
		flag.Parse()
	}

	if err := godotenv.Load(*envFile); err != nil {
		if os.IsNotExist(err) {
			log.Printf("configuration file %s not found, using defaults and process environment", *envFile)
		} else {
			return nil, fmt.Errorf("failed to load %s: %w", *envFile, err)
		}
	}

	cfg := defaultConfig
	applyEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	str(&cfg.ServerName, "SERVER_NAME")
	str(&cfg.ServerVersion, "SERVER_VERSION")
	str(&cfg.ServerHost, "SERVER_HOST")
	intv(&cfg.ServerPort, "SERVER_PORT")
	boolv(&cfg.Production, "PRODUCTION")

	str(&cfg.RedisAddr, "REDIS_ADDR")
	str(&cfg.RedisPassword, "REDIS_PASSWORD")
	intv(&cfg.RedisDB, "REDIS_DB")
	int64v(&cfg.KVPoolSize, "KV_POOL_SIZE")
	intv(&cfg.KVCommandTimeoutSecs, "KV_COMMAND_TIMEOUT_SECS")
	intv(&cfg.KVConnectTimeoutSecs, "KV_CONNECT_TIMEOUT_SECS")
	intv(&cfg.KVHealthIntervalSecs, "KV_HEALTH_INTERVAL_SECS")

	str(&cfg.AuthSecret, "AUTH_SECRET")

	intv(&cfg.ShutdownTimeoutSecs, "SHUTDOWN_TIMEOUT_SECS")
	intv(&cfg.SessionTTLSecs, "SESSION_TTL_SECS")
	intv(&cfg.MinReadyPlayers, "MIN_READY")

	int64v(&cfg.StartDelayMillis, "START_DELAY_MS")
	int64v(&cfg.EconomyTickMillis, "ECONOMY_TICK_MS")
	int64v(&cfg.AutoExpandIntervalMillis, "AUTO_EXPAND_INTERVAL_MS")
	intv(&cfg.AutoCaptureThreshold, "AUTO_CAPTURE_THRESHOLD")
	intv(&cfg.DrainTimeoutSecs, "DRAIN_TIMEOUT_SECS")
	intv(&cfg.LobbyCountdownSecs, "LOBBY_COUNTDOWN_SECS")

	floatv(&cfg.HexValue, "HEX_VALUE")
	floatv(&cfg.ExpGrowth, "EXP_GROWTH")
	floatv(&cfg.OccupiedBase, "OCCUPIED_BASE")
	floatv(&cfg.AttackMult, "ATTACK_MULT")
	floatv(&cfg.RiverDiscount, "RIVER_DISCOUNT")
	intv(&cfg.BaseIncome, "BASE_INCOME")
	intv(&cfg.StartingPoints, "STARTING_POINTS")
	intv(&cfg.StartingMaxPoints, "STARTING_MAX_POINTS")
	intv(&cfg.UpgradeBankCost, "UPGRADE_BANK_COST")
	intv(&cfg.UpgradeFortCost, "UPGRADE_FORT_COST")
	intv(&cfg.UpgradeCityCost, "UPGRADE_CITY_COST")

	if v := os.Getenv("PLAYER_COLORS"); v != "" {
		cfg.PlayerColors = strings.Split(v, ",")
	}

	intv(&cfg.EventLogCap, "EVENT_LOG_CAP")
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intv(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			log.Printf("warning: invalid int for %s=%q: %v", key, v, err)
		}
	}
}

func int64v(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		} else {
			log.Printf("warning: invalid int64 for %s=%q: %v", key, v, err)
		}
	}
}

func floatv(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		} else {
			log.Printf("warning: invalid float for %s=%q: %v", key, v, err)
		}
	}
}

func boolv(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func validate(cfg *Config) error {
	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: must be between 1 and 65535")
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty")
	}
	if cfg.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET cannot be empty")
	}
	if cfg.KVPoolSize < 1 {
		return fmt.Errorf("KV_POOL_SIZE must be at least 1")
	}
	if cfg.MinReadyPlayers < 1 {
		return fmt.Errorf("MIN_READY must be at least 1")
	}
	if len(cfg.PlayerColors) == 0 {
		return fmt.Errorf("PLAYER_COLORS cannot be empty")
	}
	return nil
}

// GetBindAddress returns the address to bind the HTTP server to.
func (c *Config) GetBindAddress() string {
	if c.ServerHost == "" {
		return "0.0.0.0"
	}
	return c.ServerHost
}

// GetListenAddress returns the full host:port listen address.
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.GetBindAddress(), c.ServerPort)
}
