package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "otelrecorder",
	Short: "Record, query and synthesize telemetry traces and logs",
	Long: `otelrecorder keeps a bounded, persisted history of traces and logs,
aggregates statistics over them and can generate synthetic telemetry
on a timer for demos and load tests.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "configs/recorder.yaml", "path to the YAML config")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
}

// newLogger builds the process logger from the log section of the config.
func newLogger(c config.LogConf) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
}
