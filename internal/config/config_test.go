package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")

	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("")

	if err != nil {
		t.Fatal(err)
	}

	if conf.PollInterval() != 20*time.Millisecond {
		t.Errorf("Expected 20ms poll interval, got %s", conf.PollInterval())
	}

	if conf.StaleTimeout() != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s stale timeout, got %s", conf.StaleTimeout())
	}

	if conf.StaleReattach() != 6*time.Second {
		t.Errorf("Expected 6s stale reattach, got %s", conf.StaleReattach())
	}

	if conf.HistoryCapacity() != 100 {
		t.Errorf("Expected history capacity of 100, got %d", conf.HistoryCapacity())
	}

	if conf.Divisor("fuel_rate") != 1 {
		t.Errorf("Expected a default divisor of 1, got %d", conf.Divisor("fuel_rate"))
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
region_name: rf2_telemetry
poll_interval_ms: 50
history_window_seconds: 3
calculator_refresh_divisors:
  tyre_temp_fl: 5
  pace_note: 2
log_level: debug
`)

	conf, err := Load(path)

	if err != nil {
		t.Fatal(err)
	}

	if conf.RegionName != "rf2_telemetry" {
		t.Errorf("Expected region name from file, got %s", conf.RegionName)
	}

	if conf.HistoryCapacity() != 60 {
		t.Errorf("Expected history capacity of 60, got %d", conf.HistoryCapacity())
	}

	if conf.StaleTimeoutMs != DefaultStaleTimeoutMs {
		t.Errorf("Expected unset fields to keep their defaults, got stale timeout %d", conf.StaleTimeoutMs)
	}

	if conf.Divisor("tyre_temp_fl") != 5 || conf.Divisor("pace_note") != 2 || conf.Divisor("fuel_rate") != 1 {
		t.Errorf("Unexpected divisors: %v", conf.CalculatorRefreshDivisors)
	}

	if level, _ := conf.Level(); level != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", level)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	conf, err := Load(writeConfig(t, ""))

	if err != nil {
		t.Fatal(err)
	}

	if conf.PollIntervalMs != DefaultPollIntervalMs {
		t.Errorf("Expected defaults from an empty file, got poll interval %d", conf.PollIntervalMs)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "poll_interval_ms: 50\n")

	t.Setenv("PEDAL_POLL_INTERVAL_MS", "10")
	t.Setenv("PEDAL_HTTP_ADDRESS", "127.0.0.1:8788")
	t.Setenv("PEDAL_CALCULATOR_REFRESH_DIVISORS", "fuel_rate:4")

	conf, err := Load(path)

	if err != nil {
		t.Fatal(err)
	}

	if conf.PollIntervalMs != 10 {
		t.Errorf("Expected the environment to win over the file, got %d", conf.PollIntervalMs)
	}

	if conf.HTTPAddress != "127.0.0.1:8788" {
		t.Errorf("Expected http address from the environment, got %q", conf.HTTPAddress)
	}

	if conf.Divisor("fuel_rate") != 4 {
		t.Errorf("Expected fuel_rate divisor 4, got %d", conf.Divisor("fuel_rate"))
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Errorf("Expected an error for a missing file")
	}

	if _, err := Load(writeConfig(t, "poll_interval_ms: [")); err == nil {
		t.Errorf("Expected an error for malformed yaml")
	}

	if _, err := Load(writeConfig(t, "poll_interval_ms: 0\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"no region", func(c *Config) { c.RegionName = "" }, false},
		{"negative poll interval", func(c *Config) { c.PollIntervalMs = -1 }, false},
		{"zero history", func(c *Config) { c.HistoryWindowSeconds = 0 }, false},
		{"zero stale timeout", func(c *Config) { c.StaleTimeoutMs = 0 }, false},
		{"negative stale reattach", func(c *Config) { c.StaleReattachMs = -1 }, false},
		{"stale reattach disabled", func(c *Config) { c.StaleReattachMs = 0 }, true},
		{"zero failure threshold", func(c *Config) { c.DecodeFailureThreshold = 0 }, false},
		{"backoff cap below poll", func(c *Config) { c.ReconnectBackoffCapMs = 5 }, false},
		{"negative lookahead", func(c *Config) { c.PaceNoteLookaheadSeconds = -1 }, false},
		{"zero divisor", func(c *Config) { c.CalculatorRefreshDivisors["fuel_rate"] = 0 }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"tiny history", func(c *Config) { c.HistoryWindowSeconds = 0.001 }, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := Default()
			test.modify(conf)

			err := conf.Validate()

			if test.valid && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}

			if !test.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestHistoryCapacityMinimum(t *testing.T) {
	conf := Default()
	conf.HistoryWindowSeconds = 0.001

	if conf.HistoryCapacity() != MinHistoryCapacity {
		t.Errorf("Expected the minimum capacity, got %d", conf.HistoryCapacity())
	}
}
