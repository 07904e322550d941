// Package idgen produces identifiers for recorded events.
//
// Record ids are prefixed random UUIDs ("trace_…", "log_…"). Trace and span
// ids follow the W3C trace-context shape (32 and 16 lowercase hex digits) so
// recorded traces can be correlated with spans exported elsewhere.
package idgen

import (
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Generator mints ids. The zero value is not usable; call New.
type Generator struct {
	newUUID func() uuid.UUID
}

// New returns a Generator backed by random (version 4) UUIDs.
func New() *Generator {
	return &Generator{newUUID: uuid.New}
}

// NewWithSource returns a Generator that draws UUIDs from fn. Tests use it to
// get reproducible ids.
func NewWithSource(fn func() uuid.UUID) *Generator {
	return &Generator{newUUID: fn}
}

// RecordID returns prefix + "_" + a fresh UUID.
func (g *Generator) RecordID(prefix string) string {
	return prefix + "_" + g.newUUID().String()
}

// TraceID returns a new, valid W3C trace id.
func (g *Generator) TraceID() string {
	for {
		tid := trace.TraceID(g.newUUID())
		if tid.IsValid() {
			return tid.String()
		}
	}
}

// SpanID returns a new, valid W3C span id.
func (g *Generator) SpanID() string {
	for {
		u := g.newUUID()
		var sid trace.SpanID
		copy(sid[:], u[8:])
		if sid.IsValid() {
			return sid.String()
		}
	}
}
