package app

import (
	"errors"
	"time"
)

const (
	DefaultBacklogSize    = 1000
	DefaultPendingTimeout = 5 * time.Second
	DefaultReloadDebounce = 100 * time.Millisecond
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // hcl file or directory
	// InputPath is read instead of the App's input stream when set.
	InputPath string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// DrainTimeout bounds the wait for in-flight readers on every
	// reconfiguration. Negative waits forever.
	DrainTimeout time.Duration
	// PendingTimeout bounds how long ingestion waits for a pending
	// configuration before it keeps reading.
	PendingTimeout time.Duration
	// BacklogSize bounds the entries held while a configuration is pending.
	BacklogSize int

	Watch          bool
	ReloadDebounce time.Duration
}

// NewConfig validates cfg and fills zero values with defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.BacklogSize < 0 {
		return nil, errors.New("BacklogSize cannot be negative")
	}
	if cfg.PendingTimeout < 0 || cfg.ReloadDebounce < 0 {
		return nil, errors.New("PendingTimeout and ReloadDebounce cannot be negative")
	}

	if cfg.BacklogSize == 0 {
		cfg.BacklogSize = DefaultBacklogSize
	}
	if cfg.PendingTimeout == 0 {
		cfg.PendingTimeout = DefaultPendingTimeout
	}
	if cfg.ReloadDebounce == 0 {
		cfg.ReloadDebounce = DefaultReloadDebounce
	}
	return &cfg, nil
}
