package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel        string        `yaml:"log_level" default:"info"`
	ScanTimeout     time.Duration `yaml:"scan_timeout" default:"5s"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"10s"`
	PollInterval    time.Duration `yaml:"poll_interval" default:"1s"`
	SampleInterval  time.Duration `yaml:"sample_interval" default:"1s"`
	FlushInterval   time.Duration `yaml:"flush_interval" default:"5s"`
	RestingDuration time.Duration `yaml:"resting_duration" default:"3m"`
	DataDir         string        `yaml:"data_dir" default:"data"`
	Decoder         string        `yaml:"decoder" default:"legacy"` // legacy, full
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file on top of the defaults.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the monitor cannot run with
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Decoder {
	case "", "legacy", "full":
	default:
		return fmt.Errorf("unknown decoder %q (must be legacy or full)", c.Decoder)
	}
	if c.PollInterval <= 0 || c.SampleInterval <= 0 || c.FlushInterval <= 0 {
		return errors.New("poll_interval, sample_interval and flush_interval must be positive")
	}
	if c.ScanTimeout < 0 || c.ConnectTimeout < 0 || c.RestingDuration < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// Level returns the configured log level, falling back to info
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
