package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/metrics"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/store"
)

var (
	ErrInvalidInterval  = errors.New("generator: interval must be a non-negative number")
	ErrInvalidErrorRate = errors.New("generator: error rate must be between 0 and 1")
)

// Floors and defaults per kind.
const (
	LogFloor   = 10 * time.Millisecond
	TraceFloor = 100 * time.Millisecond

	DefaultLogInterval   = 2000 * time.Millisecond
	DefaultTraceInterval = 3000 * time.Millisecond

	DefaultTraceErrorRate = 0.1
)

// Config describes a runner before any persisted state is applied.
type Config struct {
	Kind      string
	Interval  time.Duration
	Floor     time.Duration
	ErrorRate float64
	// Enabled is the initial desired state when no state file exists.
	Enabled bool
	// StatePath persists {enabled, timeoutMs, errorRate}. Empty disables it.
	StatePath string
	Schedule  Scheduler
}

// State is the externally visible state of a runner.
type State struct {
	Kind       string  `json:"kind"`
	Running    bool    `json:"running"`
	IntervalMs int64   `json:"intervalMs"`
	ErrorRate  float64 `json:"errorRate"`
}

type stateFile struct {
	Enabled   bool    `json:"enabled"`
	TimeoutMs int64   `json:"timeoutMs"`
	ErrorRate float64 `json:"errorRate"`
}

// Runner drives a tick function on a self-rescheduling timer. It moves
// between stopped and running and holds at most one pending timer.
type Runner struct {
	kind      string
	floor     time.Duration
	statePath string
	schedule  Scheduler
	tick      func(errorRate float64)
	logger    *slog.Logger

	mu         sync.Mutex
	running    bool
	interval   time.Duration
	errorRate  float64
	wantResume bool
	handle     CancelHandle
	generation uint64
}

// NewRunner builds a stopped runner, restoring any persisted state. Call
// Resume to restart a runner that was enabled when its state was saved.
func NewRunner(cfg Config, tick func(errorRate float64), logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Schedule == nil {
		cfg.Schedule = Schedule
	}
	r := &Runner{
		kind:       cfg.Kind,
		floor:      cfg.Floor,
		statePath:  cfg.StatePath,
		schedule:   cfg.Schedule,
		tick:       tick,
		logger:     logger.With("component", "generator", "kind", cfg.Kind),
		interval:   cfg.Interval,
		errorRate:  clampRate(cfg.ErrorRate),
		wantResume: cfg.Enabled,
	}
	r.interval = r.clamp(r.interval)
	r.load()
	return r
}

func (r *Runner) clamp(d time.Duration) time.Duration {
	if d < r.floor {
		return r.floor
	}
	return d
}

func clampRate(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 1)
}

func (r *Runner) load() {
	if r.statePath == "" {
		return
	}
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("generator state unreadable, using defaults", "path", r.statePath, "err", err)
		}
		return
	}
	var st stateFile
	if err := json.Unmarshal(data, &st); err != nil {
		r.logger.Warn("generator state corrupt, using defaults", "path", r.statePath, "err", err)
		return
	}
	if st.TimeoutMs > 0 {
		r.interval = r.clamp(time.Duration(st.TimeoutMs) * time.Millisecond)
	}
	r.errorRate = clampRate(st.ErrorRate)
	r.wantResume = st.Enabled
	r.logger.Info("generator state restored", "enabled", st.Enabled, "intervalMs", r.interval.Milliseconds(), "errorRate", r.errorRate)
}

// save writes the state file. Callers hold r.mu.
func (r *Runner) save() {
	if r.statePath == "" {
		return
	}
	data, err := json.Marshal(stateFile{
		Enabled:   r.running,
		TimeoutMs: r.interval.Milliseconds(),
		ErrorRate: r.errorRate,
	})
	if err == nil {
		err = store.WriteFileAtomic(r.statePath, data)
	}
	if err != nil {
		r.logger.Error("failed to save generator state", "path", r.statePath, "err", err)
	}
}

// Resume starts the runner if its restored (or configured) state says it
// should be running.
func (r *Runner) Resume() {
	r.mu.Lock()
	want := r.wantResume
	r.mu.Unlock()
	if want {
		_ = r.Start(0)
	}
}

// Start begins generation. A zero interval keeps the current one; anything
// below the floor is raised to it. Starting a running runner restarts it
// with the new interval. A negative interval is rejected and nothing changes.
func (r *Runner) Start(interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startLocked(interval)
	return nil
}

func (r *Runner) startLocked(interval time.Duration) {
	if interval > 0 {
		r.interval = r.clamp(interval)
	}
	r.cancelLocked()
	r.running = true
	r.generation++
	r.armLocked(r.generation)
	r.save()

	metrics.GeneratorRunning.WithLabelValues(r.kind).Set(1)
	r.logger.Info("generator started", "intervalMs", r.interval.Milliseconds())
}

// Stop halts generation. Stopping a stopped runner does nothing.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.cancelLocked()
	r.running = false
	r.generation++
	r.save()

	metrics.GeneratorRunning.WithLabelValues(r.kind).Set(0)
	r.logger.Info("generator stopped")
}

// Shutdown halts generation without recording it in the state file, so a
// runner that was enabled resumes after a restart.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.cancelLocked()
	r.running = false
	r.generation++
	metrics.GeneratorRunning.WithLabelValues(r.kind).Set(0)
}

// SetInterval changes the interval, restarting the timer if running.
func (r *Runner) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.startLocked(interval)
		return nil
	}
	r.interval = r.clamp(interval)
	r.save()
	return nil
}

// SetErrorRate sets the probability that a synthetic event is an error.
func (r *Runner) SetErrorRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidErrorRate, rate)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorRate = rate
	r.save()
	return nil
}

// State reports whether the runner is running and with what settings.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Kind:       r.kind,
		Running:    r.running,
		IntervalMs: r.interval.Milliseconds(),
		ErrorRate:  r.errorRate,
	}
}

func (r *Runner) cancelLocked() {
	if r.handle != nil {
		r.handle.Cancel()
		r.handle = nil
	}
}

func (r *Runner) armLocked(gen uint64) {
	r.handle = r.schedule(r.interval, func() { r.fire(gen) })
}

// fire runs one tick and re-arms the timer once the tick returns, so slow
// ticks never pile up. Ticks from a superseded schedule are discarded.
func (r *Runner) fire(gen uint64) {
	r.mu.Lock()
	if !r.running || gen != r.generation {
		r.mu.Unlock()
		return
	}
	rate := r.errorRate
	r.mu.Unlock()

	r.runTick(rate)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && gen == r.generation {
		r.armLocked(gen)
	}
}

func (r *Runner) runTick(rate float64) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("generator tick panicked", "panic", p)
		}
	}()
	r.tick(rate)
	metrics.GeneratorTicks.WithLabelValues(r.kind).Inc()
}
