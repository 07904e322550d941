// Package store holds a bounded, newest-first history of events, keeps its
// statistics current and persists both to JSON files.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/metrics"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/stats"
)

// Record is an event the store can index, age out and count.
type Record interface {
	stats.Keyed
	EventID() string
}

// ErrDuplicateID is returned by Append when an event with the same id is
// already stored.
var ErrDuplicateID = errors.New("store: duplicate event id")

const (
	DefaultMaxSize    = 1000
	DefaultFlushEvery = 50
	DefaultPruneEvery = 100
)

// Options configures a Store. Zero values take the defaults above.
type Options struct {
	// Name labels logs and metrics ("traces", "logs").
	Name string
	// Path is the history file. Empty keeps the store in memory only.
	Path       string
	MaxSize    int
	FlushEvery int
	PruneEvery int
	Field      stats.Field
	Retention  Retention
	Archiver   Archiver
	Now        func() time.Time
}

func (o *Options) applyDefaults() {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.FlushEvery <= 0 {
		o.FlushEvery = DefaultFlushEvery
	}
	if o.PruneEvery <= 0 {
		o.PruneEvery = DefaultPruneEvery
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Retention.Now == nil {
		o.Retention.Now = o.Now
	}
}

// StatsPath derives the statistics file from a history file:
// traces.json becomes traces-stats.json.
func StatsPath(path string) string {
	return strings.TrimSuffix(path, ".json") + "-stats.json"
}

// Store is safe for concurrent use.
type Store[T Record] struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	items   []T // newest first
	ids     map[string]struct{}
	agg     *stats.Aggregator[T]
	appends int
	closed  bool

	// writeMu orders snapshot-and-write so an older snapshot never lands
	// after a newer one.
	writeMu sync.Mutex
	flusher *workQueue[struct{}]
}

// Open loads any persisted history and statistics and returns a ready store.
// Unreadable files are logged and the store starts empty.
func Open[T Record](opts Options, logger *slog.Logger) *Store[T] {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store[T]{
		opts:   opts,
		logger: logger.With("component", "store", "kind", opts.Name),
		ids:    map[string]struct{}{},
		agg:    stats.New[T](opts.Field, opts.Now),
	}
	s.load()
	s.flusher = newWorkQueue(1, 1, func(struct{}) { _ = s.Flush() })
	s.Prune()
	return s
}

func (s *Store[T]) load() {
	if s.opts.Path == "" {
		return
	}
	var items []T
	if err := readJSON(s.opts.Path, &items); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("history unreadable, starting empty", "path", s.opts.Path, "err", err)
		}
		items = nil
	}
	if len(items) > s.opts.MaxSize {
		items = items[:s.opts.MaxSize]
	}
	for _, it := range items {
		id := it.EventID()
		if _, dup := s.ids[id]; dup {
			continue
		}
		s.ids[id] = struct{}{}
		s.items = append(s.items, it)
	}

	statsPath := StatsPath(s.opts.Path)
	err := readJSON(statsPath, s.agg)
	switch {
	case err != nil:
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("statistics unreadable, rebuilding", "path", statsPath, "err", err)
		}
		s.agg.Reset(s.items)
	case s.agg.Total() < int64(len(s.items)):
		s.logger.Warn("statistics behind history, rebuilding", "total", s.agg.Total(), "stored", len(s.items))
		s.agg.Reset(s.items)
	}
	metrics.StoredEvents.WithLabelValues(s.opts.Name).Set(float64(len(s.items)))
	s.logger.Info("store loaded", "stored", len(s.items), "total", s.agg.Total())
}

// Append stores ev as the newest event. It fails only with ErrDuplicateID.
func (s *Store[T]) Append(ev T) (T, error) {
	s.mu.Lock()
	id := ev.EventID()
	if _, dup := s.ids[id]; dup {
		s.mu.Unlock()
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	s.items = append(s.items, ev)
	copy(s.items[1:], s.items)
	s.items[0] = ev
	s.ids[id] = struct{}{}
	s.agg.Update(ev)

	evicted := 0
	for len(s.items) > s.opts.MaxSize {
		last := len(s.items) - 1
		delete(s.ids, s.items[last].EventID())
		var zero T
		s.items[last] = zero
		s.items = s.items[:last]
		evicted++
	}

	s.appends++
	wantFlush := s.appends%s.opts.FlushEvery == 0
	var removed []T
	if s.appends%s.opts.PruneEvery == 0 {
		removed = s.pruneLocked()
		wantFlush = wantFlush || len(removed) > 0
	}
	if wantFlush && !s.closed {
		s.requestFlush()
	}
	stored := len(s.items)
	s.mu.Unlock()

	metrics.EventsAppended.WithLabelValues(s.opts.Name).Inc()
	if evicted > 0 {
		metrics.EventsEvicted.WithLabelValues(s.opts.Name).Add(float64(evicted))
	}
	metrics.StoredEvents.WithLabelValues(s.opts.Name).Set(float64(stored))
	s.archive(removed)
	return ev, nil
}

func (s *Store[T]) requestFlush() {
	if s.opts.Path == "" {
		return
	}
	if !s.flusher.Submit(struct{}{}) {
		// A queued flush will pick up the latest state.
		metrics.FlushesDropped.WithLabelValues(s.opts.Name).Inc()
	}
}

// Flush writes the current statistics, then the history. The first failed
// write stops the flush and leaves the previous files in place; the error is
// logged and returned.
func (s *Store[T]) Flush() error {
	if s.opts.Path == "" {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	s.mu.Lock()
	items := s.items
	if items == nil {
		items = []T{}
	}
	history, herr := json.Marshal(items)
	statsData, serr := json.Marshal(s.agg)
	s.mu.Unlock()

	err := errors.Join(herr, serr)
	if err == nil {
		err = WriteFileAtomic(StatsPath(s.opts.Path), statsData)
	}
	if err == nil {
		err = WriteFileAtomic(s.opts.Path, history)
	}
	if err != nil {
		metrics.Flushes.WithLabelValues(s.opts.Name, "error").Inc()
		s.logger.Error("flush failed", "path", s.opts.Path, "err", err)
		return fmt.Errorf("store: flush %s: %w", s.opts.Name, err)
	}
	metrics.Flushes.WithLabelValues(s.opts.Name, "ok").Inc()
	metrics.FlushDuration.WithLabelValues(s.opts.Name).Observe(float64(time.Since(start).Milliseconds()))
	return nil
}

// History returns a copy of the stored events, newest first.
func (s *Store[T]) History() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored events.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Stats returns the current statistics. A non-nil since limits the per-day
// counts to that date onwards.
func (s *Store[T]) Stats(since *time.Time) stats.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Snapshot(len(s.items), since)
}

// ResetStats rebuilds the statistics from the stored events alone and
// persists them.
func (s *Store[T]) ResetStats() stats.Snapshot {
	s.mu.Lock()
	s.agg.Reset(s.items)
	snap := s.agg.Snapshot(len(s.items), nil)
	s.mu.Unlock()

	_ = s.Flush()
	s.logger.Info("statistics reset", "total", snap.TotalCount)
	return snap
}

// Prune removes events older than the retention window, archives them and,
// if anything was removed, flushes. It returns the number removed.
func (s *Store[T]) Prune() int {
	s.mu.Lock()
	removed := s.pruneLocked()
	stored := len(s.items)
	s.mu.Unlock()

	if len(removed) == 0 {
		return 0
	}
	metrics.StoredEvents.WithLabelValues(s.opts.Name).Set(float64(stored))
	s.archive(removed)
	_ = s.Flush()
	return len(removed)
}

func (s *Store[T]) pruneLocked() []T {
	kept, removed := Split(s.opts.Retention, s.items)
	if len(removed) == 0 {
		return nil
	}
	for _, r := range removed {
		delete(s.ids, r.EventID())
	}
	s.items = kept
	metrics.EventsPruned.WithLabelValues(s.opts.Name).Add(float64(len(removed)))
	s.logger.Info("pruned expired events", "removed", len(removed), "stored", len(kept))
	return removed
}

func (s *Store[T]) archive(removed []T) {
	if len(removed) == 0 || s.opts.Archiver == nil {
		return
	}
	lines := make([][]byte, 0, len(removed))
	for _, r := range removed {
		b, err := json.Marshal(r)
		if err != nil {
			s.logger.Warn("skipping unencodable event in archive", "id", r.EventID(), "err", err)
			continue
		}
		lines = append(lines, b)
	}
	if err := s.opts.Archiver.Archive(s.opts.Name, lines); err != nil {
		s.logger.Error("archive failed", "err", err)
		return
	}
	metrics.ArchivedEvents.WithLabelValues(s.opts.Name).Add(float64(len(lines)))
}

// Close waits for pending flushes and writes a final snapshot. Events
// appended after Close stay in memory only.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.flusher.Drain()
	return s.Flush()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic replaces path with data via a temp file in the same
// directory and a rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
