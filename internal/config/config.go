// Package config loads runtime configuration for the zpico-demo binary
// and the session it opens: env-var struct tags with defaults, an
// optional .env file, and a validation pass before anything else
// starts.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// Config holds all process configuration.
//
// Tags:
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	// Link endpoint. Mode selects which internal/link implementation
	// pkg/zenoh's dialLink builds; Addr is interpreted per mode.
	LinkMode string `env:"ZPICO_LINK_MODE" envDefault:"tcp"` // tcp | ws | nats
	LinkAddr string `env:"ZPICO_LINK_ADDR" envDefault:":7447"`

	// Identity. Empty means "generate a random ZID at startup".
	ZIDHex string `env:"ZPICO_ZID" envDefault:""`

	// Session/transport knobs.
	Version               int    `env:"ZPICO_VERSION" envDefault:"1"`
	SNResolutionBits       int    `env:"ZPICO_SN_RESOLUTION_BITS" envDefault:"28"`
	BatchSize             int    `env:"ZPICO_BATCH_SIZE" envDefault:"2048"`
	LeaseMs               int64  `env:"ZPICO_LEASE_MS" envDefault:"10000"`
	MTU                   int    `env:"ZPICO_MTU" envDefault:"65000"`
	MaxReassembly         int    `env:"ZPICO_MAX_REASSEMBLY" envDefault:"16"`
	DefaultQueryTimeoutMs uint64 `env:"ZPICO_QUERY_TIMEOUT_MS" envDefault:"2500"`

	// Callback pool sizing.
	CallbackWorkers int `env:"ZPICO_CALLBACK_WORKERS" envDefault:"8"`
	CallbackQueue   int `env:"ZPICO_CALLBACK_QUEUE" envDefault:"1024"`

	// Rate limiting against internal/transport's golang.org/x/time/rate
	// limiter.
	FramesPerSec float64 `env:"ZPICO_FRAMES_PER_SEC" envDefault:"0"` // used only when BurstFrames > 0
	BurstFrames  int     `env:"ZPICO_BURST_FRAMES" envDefault:"0"`   // 0 = unlimited

	// Payload compression threshold. No package reads this field:
	// session/compress.go compresses whenever PutOptions.Compress is set,
	// regardless of size.
	CompressThresholdBytes int `env:"ZPICO_COMPRESS_THRESHOLD_BYTES" envDefault:"8192"`

	// Kafka bridge.
	KafkaBrokers  string `env:"ZPICO_KAFKA_BROKERS" envDefault:""`
	KafkaTopic    string `env:"ZPICO_KAFKA_TOPIC" envDefault:""`
	ConsumerGroup string `env:"ZPICO_KAFKA_CONSUMER_GROUP" envDefault:"zpico-bridge"`
	BridgeKeyExpr string `env:"ZPICO_BRIDGE_KEY" envDefault:"kafka/**"`

	// Monitoring.
	MetricsAddr     string        `env:"ZPICO_METRICS_ADDR" envDefault:":9102"`
	MetricsInterval time.Duration `env:"ZPICO_METRICS_INTERVAL" envDefault:"15s"`

	// Logging.
	LogLevel  string `env:"ZPICO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ZPICO_LOG_FORMAT" envDefault:"json"`

	Environment string `env:"ZPICO_ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from a .env file (if present) and environment
// variables. Priority: ENV vars > .env file > defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Info: no .env file found (using environment variables only)")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	switch c.LinkMode {
	case "tcp", "ws", "nats":
	default:
		return fmt.Errorf("ZPICO_LINK_MODE must be one of: tcp, ws, nats (got: %s)", c.LinkMode)
	}
	if c.SNResolutionBits < 1 || c.SNResolutionBits > 62 {
		return fmt.Errorf("ZPICO_SN_RESOLUTION_BITS must be 1-62, got %d", c.SNResolutionBits)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("ZPICO_BATCH_SIZE must be > 0, got %d", c.BatchSize)
	}
	if c.CallbackWorkers < 1 {
		return fmt.Errorf("ZPICO_CALLBACK_WORKERS must be > 0, got %d", c.CallbackWorkers)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("ZPICO_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("ZPICO_LOG_FORMAT must be one of: json, console (got: %s)", c.LogFormat)
	}
	return nil
}

// ZID resolves the configured identity, generating a random one (keeping
// it for the process lifetime only) when ZIDHex is empty.
func (c *Config) ZID() (wire.ZID, error) {
	if c.ZIDHex == "" {
		b := make([]byte, 4)
		if _, err := rand.Read(b); err != nil {
			return wire.ZID{}, fmt.Errorf("generate random ZID: %w", err)
		}
		return wire.NewZID(b)
	}
	b, err := hex.DecodeString(c.ZIDHex)
	if err != nil {
		return wire.ZID{}, fmt.Errorf("ZPICO_ZID is not valid hex: %w", err)
	}
	return wire.NewZID(b)
}

// LogConfig logs the non-secret parts of configuration at startup.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("environment", c.Environment).
		Str("link_mode", c.LinkMode).
		Str("link_addr", c.LinkAddr).
		Int("batch_size", c.BatchSize).
		Int64("lease_ms", c.LeaseMs).
		Int("mtu", c.MTU).
		Int("callback_workers", c.CallbackWorkers).
		Int("callback_queue", c.CallbackQueue).
		Float64("frames_per_sec", c.FramesPerSec).
		Str("kafka_brokers", c.KafkaBrokers).
		Str("kafka_topic", c.KafkaTopic).
		Str("metrics_addr", c.MetricsAddr).
		Dur("metrics_interval", c.MetricsInterval).
		Str("log_level", c.LogLevel).
		Msg("configuration loaded")
}
