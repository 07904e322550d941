package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func TestTraceAndSpanIDFormat(t *testing.T) {
	g := New()
	tid := g.TraceID()
	if len(tid) != 32 || !isHex(tid) {
		t.Fatalf("trace id %q is not 32 hex digits", tid)
	}
	sid := g.SpanID()
	if len(sid) != 16 || !isHex(sid) {
		t.Fatalf("span id %q is not 16 hex digits", sid)
	}
}

func TestRecordIDsUnique(t *testing.T) {
	g := New()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := g.RecordID("trace")
		if !strings.HasPrefix(id, "trace_") {
			t.Fatalf("id %q lacks prefix", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestZeroSourceSkipped(t *testing.T) {
	calls := 0
	g := NewWithSource(func() uuid.UUID {
		calls++
		if calls == 1 {
			return uuid.Nil
		}
		return uuid.MustParse("0123456789abcdef0123456789abcdef")
	})
	if tid := g.TraceID(); tid != "0123456789abcdef0123456789abcdef" {
		t.Fatalf("trace id = %s", tid)
	}
	if calls != 2 {
		t.Fatalf("expected the nil uuid to be skipped, calls = %d", calls)
	}
}
