package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the config for:
//   - Positive store capacities and cadences
//   - Generator intervals and error rates in range
//   - Known log level and format
//   - A parseable maintenance schedule
func Validate(cfg *Config) error {
	var errs []string

	if cfg.ServiceName == "" {
		errs = append(errs, "service_name is required")
	}
	if cfg.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if cfg.Server.ShutdownTimeoutMs < 0 {
		errs = append(errs, "server.shutdown_timeout_ms must not be negative")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be one of debug, info, warn, error", cfg.Log.Level))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", cfg.Log.Format))
	}

	validateStore("traces", cfg.Traces, &errs)
	validateStore("logs", cfg.Logs, &errs)

	if cfg.Retention.MaxAgeDays < 0 {
		errs = append(errs, "retention.max_age_days must not be negative")
	}

	validateGenerator("generators.traces", cfg.Generators.Traces, &errs)
	validateGenerator("generators.logs", cfg.Generators.Logs, &errs)

	if _, err := cron.ParseStandard(cfg.Maintenance.Schedule); err != nil {
		errs = append(errs, fmt.Sprintf("maintenance.schedule %q: %v", cfg.Maintenance.Schedule, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateStore(name string, s StoreConf, errs *[]string) {
	if s.Path == "" {
		*errs = append(*errs, fmt.Sprintf("%s.path is required", name))
	}
	if s.MaxHistory < 0 {
		*errs = append(*errs, fmt.Sprintf("%s.max_history must not be negative", name))
	}
	if s.FlushEvery < 0 {
		*errs = append(*errs, fmt.Sprintf("%s.flush_every must not be negative", name))
	}
	if s.PruneEvery < 0 {
		*errs = append(*errs, fmt.Sprintf("%s.prune_every must not be negative", name))
	}
}

func validateGenerator(name string, g GeneratorConf, errs *[]string) {
	if g.IntervalMs < 0 {
		*errs = append(*errs, fmt.Sprintf("%s.interval_ms must not be negative", name))
	}
	if r := g.Rate(); math.IsNaN(r) || r < 0 || r > 1 {
		*errs = append(*errs, fmt.Sprintf("%s.error_rate %v must be between 0 and 1", name, r))
	}
}
