package query

import (
	"strings"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/condition"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
)

// lookup resolves path inside attrs. Attribute keys may themselves contain
// dots ("http.status_code"), so the longest matching key prefix wins and
// the rest of the path walks into map values.
func lookup(attrs map[string]event.Value, path []string) (event.Value, bool) {
	for i := len(path); i > 0; i-- {
		v, ok := attrs[strings.Join(path[:i], ".")]
		if !ok {
			continue
		}
		for _, key := range path[i:] {
			if v, ok = v.Get(key); !ok {
				return event.Value{}, false
			}
		}
		return v, true
	}
	return event.Value{}, false
}

// TraceFields exposes a trace to condition expressions. Top-level names
// follow the JSON field names; attributes are reached as attributes.<key>.
func TraceFields(t event.Trace) condition.Resolver {
	return condition.ResolverFunc(func(path []string) (event.Value, bool) {
		if len(path) == 0 {
			return event.Value{}, false
		}
		if len(path) == 1 {
			switch path[0] {
			case "id":
				return event.String(t.ID), true
			case "traceId":
				return event.String(t.TraceID), true
			case "spanId":
				return event.String(t.SpanID), true
			case "operation":
				return event.String(t.Operation), true
			case "message":
				return event.String(t.Message), true
			case "timestamp":
				return event.String(t.Timestamp), true
			case "durationMs":
				return event.Int(t.DurationMs), true
			case "serviceName", "service":
				return event.String(t.ServiceName), true
			case "status":
				return event.String(string(t.Status)), true
			case "events":
				return event.Int(int64(len(t.Events))), true
			}
			return event.Value{}, false
		}
		if path[0] == "attributes" {
			return lookup(t.Attributes, path[1:])
		}
		return event.Value{}, false
	})
}

// LogFields exposes a log to condition expressions. For structured
// payloads, message.<field> reaches into the payload.
func LogFields(l event.Log) condition.Resolver {
	return condition.ResolverFunc(func(path []string) (event.Value, bool) {
		if len(path) == 0 {
			return event.Value{}, false
		}
		if len(path) == 1 {
			switch path[0] {
			case "id":
				return event.String(l.ID), true
			case "level":
				return event.String(string(l.Level)), true
			case "context":
				return event.String(l.Context), true
			case "message":
				return event.String(l.Message.Text()), true
			case "timestamp":
				return event.String(l.Timestamp), true
			case "serviceName", "service":
				return event.String(l.ServiceName), true
			}
			return event.Value{}, false
		}
		switch path[0] {
		case "attributes":
			return lookup(l.Attributes, path[1:])
		case "message":
			if !l.Message.IsStructured() {
				return event.Value{}, false
			}
			return lookup(l.Message.Fields(), path[1:])
		}
		return event.Value{}, false
	})
}
