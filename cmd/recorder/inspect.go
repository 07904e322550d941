package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/config"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/recorder"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/stats"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/store"
)

var inspectSince string

var inspectCmd = &cobra.Command{
	Use:   "inspect <traces|logs>",
	Short: "Print persisted statistics without starting the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := recorder.ParseKind(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		var since *time.Time
		if inspectSince != "" {
			t, ok := event.ParseTimestamp(inspectSince)
			if !ok {
				return fmt.Errorf("invalid --since %q", inspectSince)
			}
			since = &t
		}

		var snap stats.Snapshot
		if kind == recorder.KindTraces {
			snap, err = readSnapshot[event.Trace](cfg.Traces.Path, stats.FieldOperation, since)
		} else {
			snap, err = readSnapshot[event.Log](cfg.Logs.Path, stats.FieldLevel, since)
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSince, "since", "", "only count days from this date (YYYY-MM-DD or RFC 3339)")
}

// readSnapshot reads a storage file and its stats file read-only. Missing
// files read as empty.
func readSnapshot[T stats.Keyed](path string, field stats.Field, since *time.Time) (stats.Snapshot, error) {
	var items []json.RawMessage
	if err := readOptional(path, &items); err != nil {
		return stats.Snapshot{}, err
	}
	agg := stats.New[T](field, time.Now)
	if err := readOptional(store.StatsPath(path), agg); err != nil {
		return stats.Snapshot{}, err
	}
	return agg.Snapshot(len(items), since), nil
}

func readOptional(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
