package internal

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"

	"streamroom/errors"
)

const (
	DefaultPort          = 3000
	DefaultRTMPPort      = 1935
	DefaultHistorySize   = 25
	DefaultSessionBuffer = 32
	DefaultGateTTL       = 24 * time.Hour
)

// Config is loaded from an optional TOML file, then overridden by
// environment variables, then validated. Only StreamKey is mandatory.
type Config struct {
	Port          int    `toml:"port" env:"PORT" validate:"gt=0,lte=65535"`
	RTMPPort      int    `toml:"rtmp_port" env:"RTMP_PORT" validate:"gt=0,lte=65535"`
	KeyHash       string `toml:"key_hash" env:"KEY_HASH"` // argon2id hash; empty disables the gate
	StreamKey     string `toml:"stream_key" env:"STREAM_KEY" validate:"required"`
	Title         string `toml:"title" env:"TITLE"`
	HistorySize   int    `toml:"history_size" env:"HISTORY_SIZE" validate:"gt=0"`
	SessionBuffer int    `toml:"session_buffer" env:"SESSION_BUFFER" validate:"gt=0"`
	LogLevel      string `toml:"log_level" env:"LOG_LEVEL"`
	TLSCert       string `toml:"tls_cert" env:"TLS_CERT"`
	TLSKey        string `toml:"tls_key" env:"TLS_KEY"`

	// Env-only: TOML has no native duration syntax.
	GateSessionTTL time.Duration `toml:"-" env:"GATE_SESSION_TTL"`
}

func defaultConfig() Config {
	return Config{
		Port:           DefaultPort,
		RTMPPort:       DefaultRTMPPort,
		HistorySize:    DefaultHistorySize,
		SessionBuffer:  DefaultSessionBuffer,
		LogLevel:       "INFO",
		GateSessionTTL: DefaultGateTTL,
	}
}

// LoadConfig builds the configuration: defaults, then the TOML file when
// path is non-empty, then environment overrides, then validation.
func LoadConfig(path string) (Config, error) {
	config := defaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}

	// The HTTP server and the RTMP listener cannot share a port.
	if config.Port == config.RTMPPort {
		return Config{}, errors.ErrPortsCollide
	}

	return config, nil
}

// TLSEnabled reports whether both certificate and key paths are set.
func (c Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}
