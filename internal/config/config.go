package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to the env tag of every Config field.
const EnvPrefix = "PEDAL_"

const (
	DefaultRegionName               = "pedal_telemetry"
	DefaultPollIntervalMs           = 20
	DefaultHistoryWindowSeconds     = 2
	DefaultStaleTimeoutMs           = 1500
	DefaultStaleReattachMs          = 6000
	DefaultDecodeFailureThreshold   = 10
	DefaultReconnectBackoffCapMs    = 2000
	DefaultPaceNoteLookaheadSeconds = 3
	DefaultLogLevel                 = "info"

	// MinHistoryCapacity keeps enough records for a derivative.
	MinHistoryCapacity = 2
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	RegionName           string  `json:"region_name" yaml:"region_name" env:"REGION_NAME"`
	PollIntervalMs       int     `json:"poll_interval_ms" yaml:"poll_interval_ms" env:"POLL_INTERVAL_MS"`
	HistoryWindowSeconds float64 `json:"history_window_seconds" yaml:"history_window_seconds" env:"HISTORY_WINDOW_SECONDS"`
	StaleTimeoutMs       int     `json:"stale_timeout_ms" yaml:"stale_timeout_ms" env:"STALE_TIMEOUT_MS"`

	// StaleReattachMs is how long a source may stay Stale before the region
	// is reopened to check that the simulator still exists. 0 disables it.
	StaleReattachMs int `json:"stale_reattach_ms" yaml:"stale_reattach_ms" env:"STALE_REATTACH_MS"`

	// CalculatorRefreshDivisors maps a metric name to the number of base ticks
	// between evaluations. Metrics not listed run every tick.
	CalculatorRefreshDivisors map[string]int `json:"calculator_refresh_divisors" yaml:"calculator_refresh_divisors" env:"CALCULATOR_REFRESH_DIVISORS"`

	DecodeFailureThreshold   int     `json:"decode_failure_threshold" yaml:"decode_failure_threshold" env:"DECODE_FAILURE_THRESHOLD"`
	ReconnectBackoffCapMs    int     `json:"reconnect_backoff_cap_ms" yaml:"reconnect_backoff_cap_ms" env:"RECONNECT_BACKOFF_CAP_MS"`
	PaceNoteLookaheadSeconds float64 `json:"pace_note_lookahead_seconds" yaml:"pace_note_lookahead_seconds" env:"PACE_NOTE_LOOKAHEAD_SECONDS"`

	LogLevel    string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
	HTTPAddress string `json:"http_address" yaml:"http_address" env:"HTTP_ADDRESS"`
}

func Default() *Config {
	return &Config{
		RegionName:                DefaultRegionName,
		PollIntervalMs:            DefaultPollIntervalMs,
		HistoryWindowSeconds:      DefaultHistoryWindowSeconds,
		StaleTimeoutMs:            DefaultStaleTimeoutMs,
		StaleReattachMs:           DefaultStaleReattachMs,
		CalculatorRefreshDivisors: make(map[string]int),
		DecodeFailureThreshold:    DefaultDecodeFailureThreshold,
		ReconnectBackoffCapMs:     DefaultReconnectBackoffCapMs,
		PaceNoteLookaheadSeconds:  DefaultPaceNoteLookaheadSeconds,
		LogLevel:                  DefaultLogLevel,
	}
}

// Load reads the YAML file at path over the defaults, then applies PEDAL_*
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	conf := Default()

	if path != "" {
		f, err := os.Open(path)

		if err != nil {
			return nil, errors.Wrap(err, "config: could not open config file")
		}

		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(conf); err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "config: could not decode %s", path)
		}
	}

	if err := env.ParseWithOptions(conf, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "config: could not apply environment")
	}

	if conf.CalculatorRefreshDivisors == nil {
		conf.CalculatorRefreshDivisors = make(map[string]int)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *Config) Validate() error {
	switch {
	case c.RegionName == "":
		return errors.Wrap(ErrInvalidConfig, "region_name must be set")
	case c.PollIntervalMs <= 0:
		return errors.Wrapf(ErrInvalidConfig, "poll_interval_ms must be positive, got %d", c.PollIntervalMs)
	case c.HistoryWindowSeconds <= 0 || math.IsNaN(c.HistoryWindowSeconds) || math.IsInf(c.HistoryWindowSeconds, 0):
		return errors.Wrapf(ErrInvalidConfig, "history_window_seconds must be positive, got %v", c.HistoryWindowSeconds)
	case c.StaleTimeoutMs <= 0:
		return errors.Wrapf(ErrInvalidConfig, "stale_timeout_ms must be positive, got %d", c.StaleTimeoutMs)
	case c.StaleReattachMs < 0:
		return errors.Wrapf(ErrInvalidConfig, "stale_reattach_ms must not be negative, got %d", c.StaleReattachMs)
	case c.DecodeFailureThreshold <= 0:
		return errors.Wrapf(ErrInvalidConfig, "decode_failure_threshold must be positive, got %d", c.DecodeFailureThreshold)
	case c.ReconnectBackoffCapMs < c.PollIntervalMs:
		return errors.Wrapf(ErrInvalidConfig, "reconnect_backoff_cap_ms (%d) must not be below poll_interval_ms (%d)", c.ReconnectBackoffCapMs, c.PollIntervalMs)
	case c.PaceNoteLookaheadSeconds < 0:
		return errors.Wrapf(ErrInvalidConfig, "pace_note_lookahead_seconds must not be negative, got %v", c.PaceNoteLookaheadSeconds)
	}

	for name, divisor := range c.CalculatorRefreshDivisors {
		if divisor <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "calculator_refresh_divisors[%s] must be positive, got %d", name, divisor)
		}
	}

	if _, err := c.Level(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}

	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutMs) * time.Millisecond
}

func (c *Config) StaleReattach() time.Duration {
	return time.Duration(c.StaleReattachMs) * time.Millisecond
}

func (c *Config) ReconnectBackoffCap() time.Duration {
	return time.Duration(c.ReconnectBackoffCapMs) * time.Millisecond
}

func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.HistoryWindowSeconds * float64(time.Second))
}

func (c *Config) PaceNoteLookahead() time.Duration {
	return time.Duration(c.PaceNoteLookaheadSeconds * float64(time.Second))
}

// HistoryCapacity is the number of records the history window holds at the
// configured poll rate.
func (c *Config) HistoryCapacity() int {
	if c.PollIntervalMs <= 0 {
		return MinHistoryCapacity
	}

	capacity := int(c.HistoryWindowSeconds * 1000 / float64(c.PollIntervalMs))

	if capacity < MinHistoryCapacity {
		return MinHistoryCapacity
	}

	return capacity
}

// Divisor returns the refresh divisor for a metric, 1 if none is configured.
func (c *Config) Divisor(name string) int {
	if divisor, ok := c.CalculatorRefreshDivisors[name]; ok && divisor > 0 {
		return divisor
	}

	return 1
}

func (c *Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)

	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	return level, nil
}
