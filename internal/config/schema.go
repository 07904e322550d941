package config

// Config is the top-level YAML structure. Fields tagged env may be
// overridden from the environment after the file is read.
type Config struct {
	ServiceName string          `yaml:"service_name" env:"RECORDER_SERVICE_NAME"`
	DataDir     string          `yaml:"data_dir"     env:"RECORDER_DATA_DIR"`
	Server      ServerConf      `yaml:"server"`
	Log         LogConf         `yaml:"log"`
	Traces      StoreConf       `yaml:"traces"       envPrefix:"TRACE_"`
	Logs        StoreConf       `yaml:"logs"         envPrefix:"LOG_"`
	Retention   RetentionConf   `yaml:"retention"`
	Generators  GeneratorsConf  `yaml:"generators"`
	Maintenance MaintenanceConf `yaml:"maintenance"`
}

// ServerConf configures the HTTP listener.
type ServerConf struct {
	Addr              string `yaml:"addr"                env:"RECORDER_ADDR"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
}

// LogConf configures the process logger.
type LogConf struct {
	Level  string `yaml:"level"  env:"RECORDER_LOG_LEVEL"`
	Format string `yaml:"format" env:"RECORDER_LOG_FORMAT"` // text | json
}

// StoreConf holds per-kind storage settings.
type StoreConf struct {
	Path       string `yaml:"path" env:"STORAGE_PATH"`
	MaxHistory int    `yaml:"max_history"`
	FlushEvery int    `yaml:"flush_every"`
	PruneEvery int    `yaml:"prune_every"`
}

// RetentionConf controls age-based pruning. An empty ArchiveDir disables
// archiving of pruned events.
type RetentionConf struct {
	MaxAgeDays int    `yaml:"max_age_days"`
	ArchiveDir string `yaml:"archive_dir"`
}

// GeneratorConf is the initial state of one synthetic generator. A persisted
// generator state file takes precedence over it.
type GeneratorConf struct {
	Enabled    *bool    `yaml:"enabled"`
	IntervalMs int      `yaml:"interval_ms"`
	ErrorRate  *float64 `yaml:"error_rate"`
	StatePath  string   `yaml:"state_path"`
}

type GeneratorsConf struct {
	Traces GeneratorConf `yaml:"traces"`
	Logs   GeneratorConf `yaml:"logs"`
}

// MaintenanceConf schedules periodic flush and prune.
type MaintenanceConf struct {
	Schedule string `yaml:"schedule"`
}
