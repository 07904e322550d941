package config

import (
	"path/filepath"
	"time"
)

const (
	DefaultServiceName = "otel-recorder"
	DefaultAddr        = ":3000"
	DefaultSchedule    = "@every 1m"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeoutMs == 0 {
		c.Server.ShutdownTimeoutMs = 10000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	c.Traces.applyDefaults(c.DataDir, "traces-storage.json", 50)
	c.Logs.applyDefaults(c.DataDir, "logs-storage.json", 10)

	if c.Retention.MaxAgeDays == 0 {
		c.Retention.MaxAgeDays = 7
	}

	c.Generators.Traces.applyDefaults(c.DataDir, "trace-generator.json", false, 3000, 0.1)
	c.Generators.Logs.applyDefaults(c.DataDir, "log-generator.json", true, 2000, 0)

	if c.Maintenance.Schedule == "" {
		c.Maintenance.Schedule = DefaultSchedule
	}
}

func (s *StoreConf) applyDefaults(dir, file string, flushEvery int) {
	if s.Path == "" {
		s.Path = filepath.Join(dir, file)
	}
	if s.MaxHistory == 0 {
		s.MaxHistory = 1000
	}
	if s.FlushEvery == 0 {
		s.FlushEvery = flushEvery
	}
	if s.PruneEvery == 0 {
		s.PruneEvery = 100
	}
}

func (g *GeneratorConf) applyDefaults(dir, file string, enabled bool, intervalMs int, errorRate float64) {
	if g.Enabled == nil {
		g.Enabled = &enabled
	}
	if g.IntervalMs == 0 {
		g.IntervalMs = intervalMs
	}
	if g.ErrorRate == nil {
		g.ErrorRate = &errorRate
	}
	if g.StatePath == "" {
		g.StatePath = filepath.Join(dir, file)
	}
}

// MaxAge is the retention window as a duration.
func (r RetentionConf) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeDays) * 24 * time.Hour
}

// Interval is the generator interval as a duration.
func (g GeneratorConf) Interval() time.Duration {
	return time.Duration(g.IntervalMs) * time.Millisecond
}

// IsEnabled reports the configured initial state.
func (g GeneratorConf) IsEnabled() bool {
	return g.Enabled != nil && *g.Enabled
}

// Rate returns the configured error rate.
func (g GeneratorConf) Rate() float64 {
	if g.ErrorRate == nil {
		return 0
	}
	return *g.ErrorRate
}

// ShutdownTimeout is the graceful shutdown budget.
func (s ServerConf) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMs) * time.Millisecond
}
