// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings. Every field has a default so the service
// starts with an empty environment.
type Config struct {
	Port               string        `envconfig:"PORT" default:"3000" validate:"required,numeric"`
	CORSAllowedOrigins string        `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"change-me-in-production" validate:"required"`
	JWTIssuer string `envconfig:"JWT_ISSUER" default:"course-chat"`

	SendBuffer       int           `envconfig:"CHAT_SEND_BUFFER" default:"256" validate:"gt=0"`
	MaxMessageLength int           `envconfig:"CHAT_MAX_MESSAGE_LENGTH" default:"4096" validate:"gt=0"`
	MaxFrameBytes    int64         `envconfig:"CHAT_MAX_FRAME_BYTES" default:"16384" validate:"gt=0"`
	RateBurst        int           `envconfig:"CHAT_RATE_BURST" default:"20" validate:"gt=0"`
	RatePerSecond    int           `envconfig:"CHAT_RATE_PER_SECOND" default:"10" validate:"gt=0"`
	PingPeriod       time.Duration `envconfig:"CHAT_PING_PERIOD" default:"54s" validate:"gt=0"`
	PongWait         time.Duration `envconfig:"CHAT_PONG_WAIT" default:"60s" validate:"gtfield=PingPeriod"`
	WriteWait        time.Duration `envconfig:"CHAT_WRITE_WAIT" default:"10s" validate:"gt=0"`
	CloseOnMalformed bool          `envconfig:"CHAT_CLOSE_ON_MALFORMED" default:"false"`
	RequireAuth      bool          `envconfig:"CHAT_REQUIRE_AUTH" default:"false"`
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// AllowedOrigins returns the CORS origins in the form Fiber expects.
func (c Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, ",")
}
