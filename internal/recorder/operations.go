package recorder

import (
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/generator"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/query"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/stats"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome is the structured status every operation returns.
type Outcome struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

func succeeded(msg string) Outcome { return Outcome{Status: StatusSuccess, Message: msg} }
func failed(err error) Outcome     { return Outcome{Status: StatusError, Message: err.Error()} }

// TraceReceipt identifies a recorded trace.
type TraceReceipt struct {
	Outcome
	ID          string       `json:"id,omitempty"`
	TraceID     string       `json:"traceId,omitempty"`
	SpanID      string       `json:"spanId,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	DurationMs  int64        `json:"durationMs,omitempty"`
	TraceStatus event.Status `json:"traceStatus,omitempty"`
}

type TraceList struct {
	Outcome
	query.Result[event.Trace]
}

type LogList struct {
	Outcome
	query.Result[event.Log]
}

type StatsResult struct {
	Outcome
	Kind        Kind            `json:"kind,omitempty"`
	Statistics  *stats.Snapshot `json:"statistics,omitempty"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
}

type GeneratorResult struct {
	Outcome
	State *generator.State `json:"state,omitempty"`
}

// RecordTrace stores a trace for operation. An operation whose name
// contains "error" is recorded as failed. An empty message is derived from
// the operation name.
func (r *Recorder) RecordTrace(message, operation string) TraceReceipt {
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	if message == "" {
		message = messageFromOperation(operation)
	}
	tr, err := r.appendTrace(r.traceSynth.Build(operation, message, nil))
	if err != nil {
		return TraceReceipt{Outcome: failed(err)}
	}
	return TraceReceipt{
		Outcome:     succeeded("trace recorded"),
		ID:          tr.ID,
		TraceID:     tr.TraceID,
		SpanID:      tr.SpanID,
		Timestamp:   tr.Timestamp,
		DurationMs:  tr.DurationMs,
		TraceStatus: tr.Status,
	}
}

// messageFromOperation drops the first underscore-separated word:
// "get_user_profile" becomes "user profile".
func messageFromOperation(op string) string {
	parts := strings.Split(op, "_")
	if len(parts) > 1 {
		if m := strings.Join(parts[1:], " "); strings.TrimSpace(m) != "" {
			return m
		}
	}
	return op
}

// RecordLog stores a log. A payload that is a JSON object is kept
// structured; anything else is plain text. Unknown levels record as info.
// It reports false for a blank payload or if the log could not be stored.
func (r *Recorder) RecordLog(payload, level string) bool {
	if strings.TrimSpace(payload) == "" {
		return false
	}
	_, err := r.appendLog(r.logSynth.Build(event.ParsePayload(payload), event.ParseLevel(level), ""))
	return err == nil
}

// QueryTraces filters and paginates stored traces.
func (r *Recorder) QueryTraces(q query.TraceQuery) TraceList {
	return TraceList{Outcome: succeeded(""), Result: q.Run(r.traces.History())}
}

// QueryLogs filters and paginates stored logs.
func (r *Recorder) QueryLogs(q query.LogQuery) LogList {
	return LogList{Outcome: succeeded(""), Result: q.Run(r.logs.History())}
}

// Statistics returns the counters of one kind, with per-day counts limited
// to since onwards when since is set.
func (r *Recorder) Statistics(kind string, since *time.Time) StatsResult {
	k, err := ParseKind(kind)
	if err != nil {
		return StatsResult{Outcome: failed(err)}
	}
	var snap stats.Snapshot
	if k == KindTraces {
		snap = r.traces.Stats(since)
	} else {
		snap = r.logs.Stats(since)
	}
	return StatsResult{Outcome: succeeded(""), Kind: k, Statistics: &snap}
}

// ResetStatistics rebuilds the counters of one kind from the stored events.
// The all-time total drops to the number currently stored.
func (r *Recorder) ResetStatistics(kind string) StatsResult {
	k, err := ParseKind(kind)
	if err != nil {
		return StatsResult{Outcome: failed(err)}
	}
	var snap stats.Snapshot
	if k == KindTraces {
		snap = r.traces.ResetStats()
	} else {
		snap = r.logs.ResetStats()
	}
	return StatsResult{Outcome: succeeded("statistics reset"), Kind: k, Statistics: &snap}
}

// StartGenerator starts (or restarts) a generator. intervalMs of 0 keeps
// the current interval; values below the kind's floor are raised to it.
func (r *Recorder) StartGenerator(kind string, intervalMs float64) GeneratorResult {
	run, err := r.runner(kind)
	if err != nil {
		return GeneratorResult{Outcome: failed(err)}
	}
	d, err := validInterval(intervalMs)
	if err == nil {
		err = run.Start(d)
	}
	st := run.State()
	if err != nil {
		return GeneratorResult{Outcome: failed(err), State: &st}
	}
	return GeneratorResult{Outcome: succeeded("generator started"), State: &st}
}

// StopGenerator stops a generator. Stopping a stopped generator succeeds.
func (r *Recorder) StopGenerator(kind string) GeneratorResult {
	run, err := r.runner(kind)
	if err != nil {
		return GeneratorResult{Outcome: failed(err)}
	}
	run.Stop()
	st := run.State()
	return GeneratorResult{Outcome: succeeded("generator stopped"), State: &st}
}

// GeneratorState reports whether a generator is running and its settings.
func (r *Recorder) GeneratorState(kind string) GeneratorResult {
	run, err := r.runner(kind)
	if err != nil {
		return GeneratorResult{Outcome: failed(err)}
	}
	st := run.State()
	return GeneratorResult{Outcome: succeeded(""), State: &st}
}

// SetErrorRate sets the share of synthetic events generated as errors.
// Values outside [0, 1] are rejected and the previous rate kept.
func (r *Recorder) SetErrorRate(kind string, rate float64) GeneratorResult {
	run, err := r.runner(kind)
	if err != nil {
		return GeneratorResult{Outcome: failed(err)}
	}
	err = run.SetErrorRate(rate)
	st := run.State()
	if err != nil {
		return GeneratorResult{Outcome: failed(err), State: &st}
	}
	return GeneratorResult{Outcome: succeeded("error rate updated"), State: &st}
}
