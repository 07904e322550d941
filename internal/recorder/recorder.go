// Package recorder wires stores, generators and queries into the operations
// exposed to adapters. Every operation returns a structured outcome; none of
// them fail by panicking for expected conditions.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/config"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/generator"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/idgen"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/stats"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/store"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/weighted"
)

// Kind selects the trace or log side of the recorder.
type Kind string

const (
	KindTraces Kind = "traces"
	KindLogs   Kind = "logs"
)

// ErrUnknownKind is reported for anything other than traces or logs.
var ErrUnknownKind = errors.New("recorder: unknown kind")

// ParseKind accepts singular and plural forms, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "traces", "trace":
		return KindTraces, nil
	case "logs", "log":
		return KindLogs, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

type options struct {
	now      func() time.Time
	rnd      weighted.Rand
	ids      *idgen.Generator
	schedule generator.Scheduler
}

// Option customizes a Recorder, mostly for tests.
type Option func(*options)

// WithClock sets the time source for timestamps and retention.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRand seeds synthetic data. It is wrapped for concurrent use.
func WithRand(r weighted.Rand) Option {
	return func(o *options) { o.rnd = r }
}

func WithIDs(g *idgen.Generator) Option {
	return func(o *options) { o.ids = g }
}

// WithScheduler replaces the generator timer, e.g. with a manual one.
func WithScheduler(s generator.Scheduler) Option {
	return func(o *options) { o.schedule = s }
}

// Recorder is the composition root for one process. It is safe for
// concurrent use.
type Recorder struct {
	logger *slog.Logger

	traces *store.Store[event.Trace]
	logs   *store.Store[event.Log]

	traceSynth *generator.TraceSynth
	logSynth   *generator.LogSynth
	traceGen   *generator.Runner
	logGen     *generator.Runner

	mu      sync.Mutex
	genConf config.GeneratorsConf
}

// New opens both stores and builds stopped generators. Call
// ResumeGenerators to restart generators that were enabled.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Recorder, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if o.rnd == nil {
		o.rnd = weighted.NewRand(uint64(time.Now().UnixNano()))
	}
	// Synthesizers are shared by request handlers and generator ticks.
	o.rnd = weighted.Locked(o.rnd)
	if o.ids == nil {
		o.ids = idgen.New()
	}

	var archiver store.Archiver
	if cfg.Retention.ArchiveDir != "" {
		a, err := store.NewZstdArchiver(cfg.Retention.ArchiveDir)
		if err != nil {
			return nil, err
		}
		a.Now = o.now
		archiver = a
	}
	retention := store.Retention{MaxAge: cfg.Retention.MaxAge(), Now: o.now}

	r := &Recorder{logger: logger.With("component", "recorder"), genConf: cfg.Generators}
	r.traces = store.Open[event.Trace](store.Options{
		Name:       string(KindTraces),
		Path:       cfg.Traces.Path,
		MaxSize:    cfg.Traces.MaxHistory,
		FlushEvery: cfg.Traces.FlushEvery,
		PruneEvery: cfg.Traces.PruneEvery,
		Field:      stats.FieldOperation,
		Retention:  retention,
		Archiver:   archiver,
		Now:        o.now,
	}, logger)
	r.logs = store.Open[event.Log](store.Options{
		Name:       string(KindLogs),
		Path:       cfg.Logs.Path,
		MaxSize:    cfg.Logs.MaxHistory,
		FlushEvery: cfg.Logs.FlushEvery,
		PruneEvery: cfg.Logs.PruneEvery,
		Field:      stats.FieldLevel,
		Retention:  retention,
		Archiver:   archiver,
		Now:        o.now,
	}, logger)

	r.traceSynth = generator.NewTraceSynth(o.ids, o.rnd, o.now, cfg.ServiceName)
	r.logSynth = generator.NewLogSynth(o.ids, o.rnd, o.now, cfg.ServiceName)

	tg, lg := cfg.Generators.Traces, cfg.Generators.Logs
	r.traceGen = generator.NewRunner(generator.Config{
		Kind:      string(KindTraces),
		Interval:  tg.Interval(),
		Floor:     generator.TraceFloor,
		ErrorRate: tg.Rate(),
		Enabled:   tg.IsEnabled(),
		StatePath: tg.StatePath,
		Schedule:  o.schedule,
	}, func(rate float64) { r.appendTrace(r.traceSynth.Next(rate)) }, logger)
	r.logGen = generator.NewRunner(generator.Config{
		Kind:      string(KindLogs),
		Interval:  lg.Interval(),
		Floor:     generator.LogFloor,
		ErrorRate: lg.Rate(),
		Enabled:   lg.IsEnabled(),
		StatePath: lg.StatePath,
		Schedule:  o.schedule,
	}, func(rate float64) { r.appendLog(r.logSynth.Next(rate)) }, logger)

	return r, nil
}

func (r *Recorder) appendTrace(tr event.Trace) (event.Trace, error) {
	stored, err := r.traces.Append(tr)
	if err != nil {
		r.logger.Error("trace not stored", "id", tr.ID, "err", err)
	}
	return stored, err
}

func (r *Recorder) appendLog(l event.Log) (event.Log, error) {
	stored, err := r.logs.Append(l)
	if err != nil {
		r.logger.Error("log not stored", "id", l.ID, "err", err)
	}
	return stored, err
}

func (r *Recorder) runner(kind string) (*generator.Runner, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if k == KindTraces {
		return r.traceGen, nil
	}
	return r.logGen, nil
}

// ResumeGenerators restarts generators whose saved or configured state is
// enabled.
func (r *Recorder) ResumeGenerators() {
	r.traceGen.Resume()
	r.logGen.Resume()
}

// ApplyConfig applies generator settings that changed since the last
// config. Settings that did not change are left alone so runtime changes
// made through the API survive unrelated reloads.
func (r *Recorder) ApplyConfig(cfg *config.Config) {
	r.mu.Lock()
	prev := r.genConf
	r.genConf = cfg.Generators
	r.mu.Unlock()

	apply := func(k Kind, run *generator.Runner, old, cur config.GeneratorConf) {
		if cur.IntervalMs != old.IntervalMs {
			if err := run.SetInterval(cur.Interval()); err != nil {
				r.logger.Warn("ignoring generator interval from config", "kind", k, "err", err)
			}
		}
		if cur.Rate() != old.Rate() {
			if err := run.SetErrorRate(cur.Rate()); err != nil {
				r.logger.Warn("ignoring generator error rate from config", "kind", k, "err", err)
			}
		}
		if cur.IsEnabled() != old.IsEnabled() {
			if cur.IsEnabled() {
				_ = run.Start(0)
			} else {
				run.Stop()
			}
		}
	}
	apply(KindTraces, r.traceGen, prev.Traces, cfg.Generators.Traces)
	apply(KindLogs, r.logGen, prev.Logs, cfg.Generators.Logs)
}

// Maintain prunes expired events and flushes both stores.
func (r *Recorder) Maintain() error {
	pruned := r.traces.Prune() + r.logs.Prune()
	err := errors.Join(r.traces.Flush(), r.logs.Flush())
	if pruned > 0 {
		r.logger.Info("maintenance pruned events", "removed", pruned)
	}
	return err
}

// Close halts the generators, keeping their saved state, and flushes both
// stores.
func (r *Recorder) Close() error {
	r.traceGen.Shutdown()
	r.logGen.Shutdown()
	return errors.Join(r.traces.Close(), r.logs.Close())
}

// validInterval converts a millisecond count from a caller.
func validInterval(ms float64) (time.Duration, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return 0, fmt.Errorf("%w: %v", generator.ErrInvalidInterval, ms)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}
