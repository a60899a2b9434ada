// Package config loads daemon settings from the environment.
//
// An optional .env file in the working directory is read first (godotenv),
// then variables are mapped onto Config via go-simpler/env struct tags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/sweeney/camwatch/internal/ingest"
	"github.com/sweeney/camwatch/internal/logic"
)

type Config struct {
	SignalAddr   string        `env:"CAMWATCH_SIGNAL_ADDR" default:"127.0.0.1:8085"`
	Enabled      bool          `env:"CAMWATCH_ENABLED" default:"false"`
	Revert       time.Duration `env:"CAMWATCH_REVERT" default:"2s"`
	GaugeTick    time.Duration `env:"CAMWATCH_GAUGE_TICK" default:"5s"`
	GaugeInitial int           `env:"CAMWATCH_GAUGE_INITIAL" default:"60"`
	Buttons      int           `env:"CAMWATCH_BUTTONS" default:"1"`

	HTTPAddr  string        `env:"CAMWATCH_HTTP"`
	Broker    string        `env:"CAMWATCH_BROKER"`
	Heartbeat time.Duration `env:"CAMWATCH_HEARTBEAT" default:"15m"`
	Console   bool          `env:"CAMWATCH_CONSOLE" default:"true"`

	GPIO          bool          `env:"CAMWATCH_GPIO" default:"false"`
	PinToggle     int           `env:"CAMWATCH_PIN_TOGGLE" default:"26"`
	PinReset      int           `env:"CAMWATCH_PIN_RESET" default:"16"`
	Poll          time.Duration `env:"CAMWATCH_POLL" default:"50ms"`
	PressDebounce time.Duration `env:"CAMWATCH_PRESS_DEBOUNCE" default:"30ms"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// Load reads .env if present, then the environment. It does not validate:
// flags may still override the result, so call Validate once they are applied.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return &cfg, nil
}

// Validate checks value ranges. It is exported so flag overrides can be
// checked after parsing.
func (c *Config) Validate() error {
	if err := ingest.CheckLoopback(c.SignalAddr); err != nil {
		return fmt.Errorf("CAMWATCH_SIGNAL_ADDR: %w", err)
	}
	if c.Buttons < 1 {
		return errors.New("CAMWATCH_BUTTONS must be at least 1")
	}
	if c.GaugeInitial < 0 || c.GaugeInitial > logic.GaugeMax {
		return fmt.Errorf("CAMWATCH_GAUGE_INITIAL must be between 0 and %d, got %d",
			logic.GaugeMax, c.GaugeInitial)
	}
	if c.Revert <= 0 {
		return errors.New("CAMWATCH_REVERT must be positive")
	}
	if c.GaugeTick <= 0 {
		return errors.New("CAMWATCH_GAUGE_TICK must be positive")
	}
	if c.Heartbeat < 0 {
		return errors.New("CAMWATCH_HEARTBEAT must not be negative")
	}
	if c.GPIO && c.Poll <= 0 {
		return errors.New("CAMWATCH_POLL must be positive when GPIO is enabled")
	}
	return nil
}
