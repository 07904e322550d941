package stats

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type rec struct {
	ts, cat, svc, outcome string
}

func (r rec) EventTime() string { return r.ts }
func (r rec) Category() string  { return r.cat }
func (r rec) Service() string   { return r.svc }
func (r rec) Outcome() string   { return r.outcome }

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestUpdateCounts(t *testing.T) {
	a := New[rec](FieldOperation, fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	a.Update(rec{"2024-01-01T10:00:00.000Z", "db_select_users", "svc-a", "success"})
	a.Update(rec{"2024-01-01T11:00:00.000Z", "db_select_users", "svc-b", "error"})
	a.Update(rec{"2024-01-02T09:00:00.000Z", "job_cleanup", "svc-a", "success"})

	s := a.Snapshot(2, nil)
	if s.TotalCount != 3 || s.StoredCount != 2 {
		t.Fatalf("total/stored = %d/%d, want 3/2", s.TotalCount, s.StoredCount)
	}
	if s.CountsByField["db_select_users"] != 2 || s.CountsByField["job_cleanup"] != 1 {
		t.Errorf("by operation = %v", s.CountsByField)
	}
	if s.CountsByService["svc-a"] != 2 {
		t.Errorf("by service = %v", s.CountsByService)
	}
	if s.CountsByStatus["error"] != 1 {
		t.Errorf("by status = %v", s.CountsByStatus)
	}
	if s.CountsByDay["2024-01-01"] != 2 || s.CountsByDay["2024-01-02"] != 1 {
		t.Errorf("by day = %v", s.CountsByDay)
	}
	if s.StatsLastReset != "2024-01-01T00:00:00.000Z" {
		t.Errorf("statsLastReset = %s", s.StatsLastReset)
	}
}

func TestSnapshotSinceDoesNotMutate(t *testing.T) {
	a := New[rec](FieldLevel, nil)
	a.Update(rec{ts: "2024-01-01T10:00:00.000Z", cat: "info"})
	a.Update(rec{ts: "2024-01-05T10:00:00.000Z", cat: "warn"})

	since := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	s := a.Snapshot(2, &since)
	if len(s.CountsByDay) != 1 || s.CountsByDay["2024-01-05"] != 1 {
		t.Errorf("filtered days = %v", s.CountsByDay)
	}
	if s.Since != "2024-01-03" {
		t.Errorf("since = %q", s.Since)
	}
	if full := a.Snapshot(2, nil); len(full.CountsByDay) != 2 {
		t.Errorf("since filter leaked into the aggregator: %v", full.CountsByDay)
	}
}

func TestResetCollapsesToBuffer(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := now
	a := New[rec](FieldOperation, func() time.Time { return clock })

	var buffer []rec
	for i := 0; i < 120; i++ {
		r := rec{ts: "2024-01-01T00:00:00.000Z", cat: "op", svc: "svc"}
		a.Update(r)
		buffer = append(buffer, r)
	}
	buffer = buffer[:50]

	clock = now.Add(time.Hour)
	a.Reset(buffer)
	s := a.Snapshot(len(buffer), nil)
	if s.TotalCount != 50 {
		t.Fatalf("total after reset = %d, want 50", s.TotalCount)
	}
	if s.CountsByField["op"] != 50 || s.CountsByService["svc"] != 50 || s.CountsByDay["2024-01-01"] != 50 {
		t.Errorf("rebuilt counters = %+v", s)
	}
	if s.StatsLastReset != "2024-01-01T01:00:00.000Z" {
		t.Errorf("statsLastReset = %s", s.StatsLastReset)
	}
}

func TestFileRoundTrip(t *testing.T) {
	a := New[rec](FieldLevel, nil)
	a.Update(rec{ts: "2024-01-01T10:00:00.000Z", cat: "error", svc: "svc"})
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"countsByLevel":{"error":1}`) {
		t.Errorf("file form should key counts by level: %s", data)
	}
	if strings.Contains(string(data), "countsByOperation") {
		t.Errorf("log stats should not carry countsByOperation: %s", data)
	}

	b := New[rec](FieldLevel, nil)
	if err := json.Unmarshal(data, b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.Total() != 1 || b.Snapshot(0, nil).CountsByField["error"] != 1 {
		t.Errorf("restored = %+v", b.Snapshot(0, nil))
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	a := New[rec](FieldOperation, nil)
	a.Update(rec{cat: "keep"})
	if err := json.Unmarshal([]byte(`{"totalCount":"many"}`), a); err == nil {
		t.Fatalf("expected decode error")
	}
	if a.Total() != 1 {
		t.Errorf("failed decode must leave counters untouched")
	}
}

func TestSnapshotJSONKeys(t *testing.T) {
	a := New[rec](FieldOperation, nil)
	data, err := json.Marshal(a.Snapshot(0, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"totalCount":0`, `"storedCount":0`, `"countsByOperation":{}`, `"countsByDay":{}`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("snapshot JSON missing %s: %s", key, data)
		}
	}
}
