// Package server wires the frame codec, room registry, admission service
// and relay service into one process: configuration, metrics, logging and
// graceful shutdown. None of it changes the wire protocol in package frame.
package server

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the server's YAML configuration, loaded in four steps: read
// file, unmarshal, apply defaults, then validate.
type Config struct {
	AdmissionAddr    string        `yaml:"admission_addr"`
	RelayAddr        string        `yaml:"relay_addr"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	AdmissionTimeout time.Duration `yaml:"admission_timeout"`
	MaxFrameSize     int           `yaml:"max_frame_size"`
	RelayBufferSize  int           `yaml:"relay_buffer_size"`
	ShutdownGrace    time.Duration `yaml:"shutdown_grace"`
	LogLevel         string        `yaml:"log_level"`
}

// DefaultConfig returns the minimum wire contract's defaults: admission on
// TCP 9001, relay on UDP 9002, both bound to all interfaces, metrics
// disabled unless the config file sets metrics_addr.
func DefaultConfig() Config {
	return Config{
		AdmissionAddr:    ":9001",
		RelayAddr:        ":9002",
		MetricsAddr:      "",
		AdmissionTimeout: 5 * time.Second,
		MaxFrameSize:     4096,
		RelayBufferSize:  4096,
		ShutdownGrace:    5 * time.Second,
		LogLevel:         "info",
	}
}

// LoadConfig reads a YAML config file at path, applies DefaultConfig for
// any zero-valued field, and validates the result. An empty path returns
// DefaultConfig unchanged; the wire protocol itself needs no file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Unmarshal onto the already-defaulted struct so a partial file only
	// overrides the fields it sets.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.AdmissionAddr == "" {
		c.AdmissionAddr = ":9001"
	}
	if c.RelayAddr == "" {
		c.RelayAddr = ":9002"
	}
	if c.AdmissionTimeout == 0 {
		c.AdmissionTimeout = 5 * time.Second
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = 4096
	}
	if c.RelayBufferSize == 0 {
		c.RelayBufferSize = 4096
	}
	if c.ShutdownGrace == 0 {
		c.ShutdownGrace = 5 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.MaxFrameSize < 3 {
		return fmt.Errorf("max_frame_size must be at least 3, got %d", c.MaxFrameSize)
	}
	if c.RelayBufferSize < 4096 {
		return fmt.Errorf("relay_buffer_size must be at least 4096 per the chat frame contract, got %d", c.RelayBufferSize)
	}
	return nil
}
