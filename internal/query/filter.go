// Package query filters and paginates stored events.
package query

import (
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/condition"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
)

// Predicate reports whether an event matches.
type Predicate[T any] func(T) bool

// Result is one page of filtered events.
type Result[T any] struct {
	Total       int      `json:"total"`
	Filtered    int      `json:"filtered"`
	Items       []T      `json:"items"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Apply keeps the items matching every predicate, then skips offset items
// and returns at most limit of the rest. A limit of 0 returns everything;
// a negative offset counts as 0. Item order is preserved.
func Apply[T any](items []T, preds []Predicate[T], limit, offset int) Result[T] {
	matched := make([]T, 0, len(items))
outer:
	for _, it := range items {
		for _, p := range preds {
			if !p(it) {
				continue outer
			}
		}
		matched = append(matched, it)
	}

	res := Result[T]{Total: len(items), Filtered: len(matched)}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		res.Items = []T{}
		return res
	}
	page := matched[offset:]
	if limit > 0 && limit < len(page) {
		page = page[:limit]
	}
	res.Items = page
	return res
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// timeBetween matches events whose timestamp parses and lies within the
// given bounds (inclusive). Unparsable timestamps never match.
func timeBetween(ts string, from, to *time.Time) bool {
	t, ok := event.ParseTimestamp(ts)
	if !ok {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

// AttributeMatch selects events whose attribute Key renders as Value.
type AttributeMatch struct {
	Key   string
	Value string
}

// TraceQuery filters traces. Nil fields do not constrain the result.
type TraceQuery struct {
	Operation   *string
	Status      *event.Status
	Service     *string
	MinDuration *int64
	MaxDuration *int64
	From        *time.Time
	To          *time.Time
	Search      *string
	Attribute   *AttributeMatch
	Where       *condition.Condition
	Limit       int
	Offset      int
}

// Predicates returns the conjunction described by q, in a fixed order.
func (q TraceQuery) Predicates() []Predicate[event.Trace] {
	var ps []Predicate[event.Trace]
	if q.Operation != nil {
		op := *q.Operation
		ps = append(ps, func(t event.Trace) bool { return containsFold(t.Operation, op) })
	}
	if q.Status != nil {
		st := *q.Status
		ps = append(ps, func(t event.Trace) bool { return t.Status == st })
	}
	if q.Service != nil {
		svc := *q.Service
		ps = append(ps, func(t event.Trace) bool { return containsFold(t.ServiceName, svc) })
	}
	if q.MinDuration != nil {
		lo := *q.MinDuration
		ps = append(ps, func(t event.Trace) bool { return t.DurationMs >= lo })
	}
	if q.MaxDuration != nil {
		hi := *q.MaxDuration
		ps = append(ps, func(t event.Trace) bool { return t.DurationMs <= hi })
	}
	if q.From != nil || q.To != nil {
		from, to := q.From, q.To
		ps = append(ps, func(t event.Trace) bool { return timeBetween(t.Timestamp, from, to) })
	}
	if q.Search != nil {
		term := *q.Search
		ps = append(ps, func(t event.Trace) bool {
			return containsFold(t.Message, term) || containsFold(t.Operation, term) || containsFold(t.TraceID, term)
		})
	}
	if q.Attribute != nil {
		m := *q.Attribute
		ps = append(ps, func(t event.Trace) bool {
			v, ok := t.Attributes[m.Key]
			return ok && v.Text() == m.Value
		})
	}
	if q.Where != nil {
		cond := q.Where
		ps = append(ps, func(t event.Trace) bool { return cond.Match(TraceFields(t)) })
	}
	return ps
}

// Run applies q to traces.
func (q TraceQuery) Run(traces []event.Trace) Result[event.Trace] {
	return Apply(traces, q.Predicates(), q.Limit, q.Offset)
}

// LogQuery filters logs. Nil fields do not constrain the result.
type LogQuery struct {
	Service *string
	Level   *string
	Context *string
	Search  *string
	Since   *time.Time
	Where   *condition.Condition
	Limit   int
	Offset  int
}

// Predicates returns the conjunction described by q, in a fixed order.
func (q LogQuery) Predicates() []Predicate[event.Log] {
	var ps []Predicate[event.Log]
	if q.Service != nil {
		svc := *q.Service
		ps = append(ps, func(l event.Log) bool { return containsFold(l.ServiceName, svc) })
	}
	if q.Level != nil {
		lvl := *q.Level
		ps = append(ps, func(l event.Log) bool { return containsFold(string(l.Level), lvl) })
	}
	if q.Context != nil {
		ctx := *q.Context
		ps = append(ps, func(l event.Log) bool { return containsFold(l.Context, ctx) })
	}
	if q.Search != nil {
		term := *q.Search
		ps = append(ps, func(l event.Log) bool { return containsFold(l.Message.Text(), term) })
	}
	if q.Since != nil {
		since := q.Since
		ps = append(ps, func(l event.Log) bool { return timeBetween(l.Timestamp, since, nil) })
	}
	if q.Where != nil {
		cond := q.Where
		ps = append(ps, func(l event.Log) bool { return cond.Match(LogFields(l)) })
	}
	return ps
}

// Run applies q to logs.
func (q LogQuery) Run(logs []event.Log) Result[event.Log] {
	return Apply(logs, q.Predicates(), q.Limit, q.Offset)
}
