package event

import (
	"strings"
	"time"
)

// TimeLayout is the ISO-8601 form every stored timestamp uses
// (millisecond precision, UTC, "Z" suffix).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultServiceName identifies the recorder itself when a caller does not
// name an owning service.
const DefaultServiceName = "otel-recorder"

// Status is the outcome of a trace.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Level is the severity of a log event.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel maps a free-form severity to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SubEvent is a named, timestamped annotation attached to a trace.
type SubEvent struct {
	Name       string           `json:"name"`
	Timestamp  string           `json:"timestamp"`
	Attributes map[string]Value `json:"attributes,omitempty"`
}

// Trace is a recorded span. It is never mutated once stored.
type Trace struct {
	ID          string           `json:"id"`
	TraceID     string           `json:"traceId"`
	SpanID      string           `json:"spanId"`
	Operation   string           `json:"operation"`
	Message     string           `json:"message"`
	Timestamp   string           `json:"timestamp"`
	DurationMs  int64            `json:"durationMs"`
	Attributes  map[string]Value `json:"attributes,omitempty"`
	Events      []SubEvent       `json:"events"`
	ServiceName string           `json:"serviceName"`
	Status      Status           `json:"status"`
}

func (t Trace) EventID() string   { return t.ID }
func (t Trace) EventTime() string { return t.Timestamp }
func (t Trace) Category() string  { return t.Operation }
func (t Trace) Service() string   { return t.ServiceName }
func (t Trace) Outcome() string   { return string(t.Status) }

// Log is a recorded log line.
type Log struct {
	ID          string           `json:"id"`
	Level       Level            `json:"level"`
	Context     string           `json:"context,omitempty"`
	Message     Payload          `json:"message"`
	Timestamp   string           `json:"timestamp"`
	Attributes  map[string]Value `json:"attributes,omitempty"`
	ServiceName string           `json:"serviceName"`
}

func (l Log) EventID() string   { return l.ID }
func (l Log) EventTime() string { return l.Timestamp }
func (l Log) Category() string  { return string(l.Level) }
func (l Log) Service() string   { return l.ServiceName }
func (l Log) Outcome() string   { return "" }

// FormatTimestamp renders t in TimeLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTimestamp accepts RFC 3339 timestamps (with or without fractional
// seconds) and bare YYYY-MM-DD dates.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Day returns the YYYY-MM-DD bucket of an ISO-8601 timestamp.
func Day(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 {
		return ts[:i]
	}
	return ts
}
