// Package stats keeps running, all-time counters over recorded events.
package stats

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
)

// Keyed is what the aggregator needs to know about an event.
type Keyed interface {
	EventTime() string
	Category() string
	Service() string
	Outcome() string
}

// Field names the per-category counter of a kind of event.
type Field string

const (
	FieldOperation Field = "operation"
	FieldLevel     Field = "level"
)

func (f Field) jsonKey() string {
	switch f {
	case FieldLevel:
		return "countsByLevel"
	default:
		return "countsByOperation"
	}
}

// Aggregator maintains O(1)-per-event counters. It does no locking; the
// owning store serializes access.
type Aggregator[T Keyed] struct {
	field     Field
	now       func() time.Time
	total     int64
	byField   map[string]int64
	byStatus  map[string]int64
	byService map[string]int64
	byDay     map[string]int64
	lastReset string
}

// New returns an empty Aggregator whose reset clock starts now.
func New[T Keyed](field Field, now func() time.Time) *Aggregator[T] {
	if now == nil {
		now = time.Now
	}
	a := &Aggregator[T]{field: field, now: now}
	a.clear()
	return a
}

func (a *Aggregator[T]) clear() {
	a.total = 0
	a.byField = map[string]int64{}
	a.byStatus = map[string]int64{}
	a.byService = map[string]int64{}
	a.byDay = map[string]int64{}
	a.lastReset = event.FormatTimestamp(a.now())
}

// Update counts one newly stored event. Counters never go down on eviction.
func (a *Aggregator[T]) Update(ev T) {
	a.total++
	a.count(ev)
}

func (a *Aggregator[T]) count(ev T) {
	if k := ev.Category(); k != "" {
		a.byField[k]++
	}
	if k := ev.Outcome(); k != "" {
		a.byStatus[k]++
	}
	if k := ev.Service(); k != "" {
		a.byService[k]++
	}
	if ts := ev.EventTime(); ts != "" {
		a.byDay[event.Day(ts)]++
	}
}

// Reset recomputes every counter from buffer alone. The all-time total
// collapses to len(buffer) and the reset clock moves to now.
func (a *Aggregator[T]) Reset(buffer []T) {
	a.clear()
	for _, ev := range buffer {
		a.count(ev)
	}
	a.total = int64(len(buffer))
}

// Total returns the all-time count.
func (a *Aggregator[T]) Total() int64 { return a.total }

// Snapshot is the externally visible statistics of a store.
type Snapshot struct {
	Field           Field
	TotalCount      int64
	StoredCount     int
	CountsByField   map[string]int64
	CountsByStatus  map[string]int64
	CountsByService map[string]int64
	CountsByDay     map[string]int64
	StatsLastReset  string
	Since           string
}

// Snapshot copies the counters. stored is the caller's current buffer
// length. A non-nil since drops day buckets before that date; nothing in the
// aggregator changes.
func (a *Aggregator[T]) Snapshot(stored int, since *time.Time) Snapshot {
	s := Snapshot{
		Field:           a.field,
		TotalCount:      a.total,
		StoredCount:     stored,
		CountsByField:   maps.Clone(a.byField),
		CountsByStatus:  maps.Clone(a.byStatus),
		CountsByService: maps.Clone(a.byService),
		CountsByDay:     maps.Clone(a.byDay),
		StatsLastReset:  a.lastReset,
	}
	if since != nil {
		cutoff := since.UTC().Format(time.DateOnly)
		s.Since = cutoff
		maps.DeleteFunc(s.CountsByDay, func(day string, _ int64) bool { return day < cutoff })
	}
	return s
}

// MarshalJSON emits the snapshot with the kind-specific counter key
// (countsByOperation or countsByLevel).
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"totalCount":      s.TotalCount,
		"storedCount":     s.StoredCount,
		s.Field.jsonKey(): orEmpty(s.CountsByField),
		"countsByService": orEmpty(s.CountsByService),
		"countsByDay":     orEmpty(s.CountsByDay),
		"statsLastReset":  s.StatsLastReset,
	}
	if len(s.CountsByStatus) > 0 {
		out["countsByStatus"] = s.CountsByStatus
	}
	if s.Since != "" {
		out["since"] = s.Since
	}
	return json.Marshal(out)
}

// fileState is the persisted form of an Aggregator.
type fileState struct {
	TotalCount        int64            `json:"totalCount"`
	CountsByOperation map[string]int64 `json:"countsByOperation,omitempty"`
	CountsByLevel     map[string]int64 `json:"countsByLevel,omitempty"`
	CountsByStatus    map[string]int64 `json:"countsByStatus,omitempty"`
	CountsByService   map[string]int64 `json:"countsByService"`
	CountsByDay       map[string]int64 `json:"countsByDay"`
	StatsLastReset    string           `json:"statsLastReset"`
}

// MarshalJSON encodes the aggregator in its stats-file form.
func (a *Aggregator[T]) MarshalJSON() ([]byte, error) {
	fs := fileState{
		TotalCount:      a.total,
		CountsByStatus:  a.byStatus,
		CountsByService: a.byService,
		CountsByDay:     a.byDay,
		StatsLastReset:  a.lastReset,
	}
	if a.field == FieldLevel {
		fs.CountsByLevel = a.byField
	} else {
		fs.CountsByOperation = a.byField
	}
	return json.Marshal(fs)
}

// UnmarshalJSON restores counters from the stats-file form. Missing maps
// start empty; a missing reset time keeps the current one.
func (a *Aggregator[T]) UnmarshalJSON(data []byte) error {
	var fs fileState
	if err := json.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("stats: decode: %w", err)
	}
	if fs.TotalCount < 0 {
		return fmt.Errorf("stats: negative total %d", fs.TotalCount)
	}
	byField := fs.CountsByOperation
	if a.field == FieldLevel {
		byField = fs.CountsByLevel
	}
	a.total = fs.TotalCount
	a.byField = orEmpty(byField)
	a.byStatus = orEmpty(fs.CountsByStatus)
	a.byService = orEmpty(fs.CountsByService)
	a.byDay = orEmpty(fs.CountsByDay)
	if fs.StatsLastReset != "" {
		a.lastReset = fs.StatsLastReset
	}
	return nil
}

func orEmpty(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}
