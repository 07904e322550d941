package recorder

import (
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/config"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/generator"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/query"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/weighted"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type manualHandle struct {
	fn        func()
	cancelled atomic.Bool
}

func (h *manualHandle) Cancel() { h.cancelled.Store(true) }

type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualHandle
}

func (m *manualScheduler) schedule(_ time.Duration, fn func()) generator.CancelHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &manualHandle{fn: fn}
	m.pending = append(m.pending, h)
	return h
}

// fire runs the most recently armed timer.
func (m *manualScheduler) fire() {
	m.mu.Lock()
	h := m.pending[len(m.pending)-1]
	m.mu.Unlock()
	if !h.cancelled.Load() {
		h.fn()
	}
}

type clock struct{ unix atomic.Int64 }

func (c *clock) now() time.Time  { return time.Unix(c.unix.Load(), 0).UTC() }
func (c *clock) set(t time.Time) { c.unix.Store(t.Unix()) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Traces.Path = filepath.Join(dir, "traces-storage.json")
	cfg.Logs.Path = filepath.Join(dir, "logs-storage.json")
	cfg.Generators.Traces.StatePath = filepath.Join(dir, "trace-generator.json")
	cfg.Generators.Logs.StatePath = filepath.Join(dir, "log-generator.json")
	return cfg
}

func newTestRecorder(t *testing.T, cfg *config.Config, opts ...Option) (*Recorder, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	opts = append([]Option{WithRand(weighted.NewRand(7)), WithScheduler(sched.schedule)}, opts...)
	r, err := New(cfg, discard, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, sched
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"traces": KindTraces, "Trace": KindTraces, " logs ": KindLogs, "LOG": KindLogs} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("metrics"); err == nil {
		t.Errorf("ParseKind accepted metrics")
	}
}

func TestRecordTrace(t *testing.T) {
	r, _ := newTestRecorder(t, testConfig(t))
	defer r.Close()

	ok := r.RecordTrace("", "get_user_profile")
	if !ok.OK() || ok.TraceStatus != event.StatusSuccess {
		t.Fatalf("receipt = %+v", ok)
	}
	if len(ok.TraceID) != 32 || len(ok.SpanID) != 16 {
		t.Errorf("trace/span id lengths = %d/%d", len(ok.TraceID), len(ok.SpanID))
	}

	bad := r.RecordTrace("boom", "payment_error")
	if bad.TraceStatus != event.StatusError {
		t.Errorf("operation containing error recorded as %q", bad.TraceStatus)
	}

	list := r.QueryTraces(query.TraceQuery{})
	if list.Total != 2 {
		t.Fatalf("total = %d", list.Total)
	}
	// Newest first.
	if list.Items[1].Message != "user profile" {
		t.Errorf("derived message = %q", list.Items[1].Message)
	}
}

func TestRecordTrace_EmptyOperation(t *testing.T) {
	r, _ := newTestRecorder(t, testConfig(t))
	defer r.Close()
	if rec := r.RecordTrace("", "  "); !rec.OK() {
		t.Fatalf("receipt = %+v", rec)
	}
	if got := r.QueryTraces(query.TraceQuery{}).Items[0].Operation; got != "unknown" {
		t.Errorf("operation = %q", got)
	}
}

func TestRecordLog(t *testing.T) {
	r, _ := newTestRecorder(t, testConfig(t))
	defer r.Close()

	if r.RecordLog("   ", "info") {
		t.Errorf("blank payload accepted")
	}
	if !r.RecordLog(`{"user":"ada","attempt":3}`, "WARNING") {
		t.Fatal("structured log rejected")
	}
	if !r.RecordLog("disk almost full", "shout") {
		t.Fatal("plain log rejected")
	}

	items := r.QueryLogs(query.LogQuery{}).Items
	if len(items) != 2 {
		t.Fatalf("stored %d logs", len(items))
	}
	plain, structured := items[0], items[1]
	if plain.Message.IsStructured() || plain.Level != event.LevelInfo {
		t.Errorf("plain log = %+v", plain)
	}
	if !structured.Message.IsStructured() || structured.Level != event.LevelWarn {
		t.Errorf("structured log = %+v", structured)
	}
	if v, _ := structured.Message.Fields()["user"].AsString(); v != "ada" {
		t.Errorf("user field = %q", v)
	}
}

func TestQueryTraces_StatusWithoutLimit(t *testing.T) {
	r, _ := newTestRecorder(t, testConfig(t))
	defer r.Close()
	for i := 0; i < 3; i++ {
		r.RecordTrace("", "checkout_error")
	}
	for i := 0; i < 7; i++ {
		r.RecordTrace("", "checkout")
	}
	status := event.StatusError
	res := r.QueryTraces(query.TraceQuery{Status: &status})
	if res.Total != 10 || res.Filtered != 3 || len(res.Items) != 3 {
		t.Errorf("total=%d filtered=%d items=%d", res.Total, res.Filtered, len(res.Items))
	}
}

func TestResetStatistics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Traces.MaxHistory = 50
	r, _ := newTestRecorder(t, cfg)
	defer r.Close()
	for i := 0; i < 120; i++ {
		r.RecordTrace("", "op")
	}
	before := r.Statistics("traces", nil)
	if before.Statistics.TotalCount != 120 || before.Statistics.StoredCount != 50 {
		t.Fatalf("before reset = %+v", before.Statistics)
	}
	after := r.ResetStatistics("trace")
	if !after.OK() || after.Statistics.TotalCount != 50 || after.Statistics.StoredCount != 50 {
		t.Errorf("after reset = %+v", after.Statistics)
	}
}

func TestUnknownKind(t *testing.T) {
	r, _ := newTestRecorder(t, testConfig(t))
	defer r.Close()
	results := []Outcome{
		r.Statistics("spans", nil).Outcome,
		r.ResetStatistics("spans").Outcome,
		r.StartGenerator("spans", 0).Outcome,
		r.StopGenerator("spans").Outcome,
		r.GeneratorState("spans").Outcome,
		r.SetErrorRate("spans", 0.5).Outcome,
	}
	for i, o := range results {
		if o.OK() || !strings.Contains(o.Message, "unknown kind") {
			t.Errorf("result %d = %+v", i, o)
		}
	}
}

func TestStartGenerator_InvalidIntervalKeepsState(t *testing.T) {
	r, _ := newTestRecorder(t, testConfig(t))
	defer r.Close()
	if res := r.StartGenerator("logs", 500); !res.OK() {
		t.Fatalf("start = %+v", res)
	}
	for _, bad := range []float64{math.NaN(), -1, math.Inf(1)} {
		res := r.StartGenerator("logs", bad)
		if res.OK() {
			t.Errorf("StartGenerator(%v) succeeded", bad)
			continue
		}
		if res.State == nil || !res.State.Running || res.State.IntervalMs != 500 {
			t.Errorf("state after StartGenerator(%v) = %+v", bad, res.State)
		}
	}
}

func TestStartGenerator_ClampsAndTicks(t *testing.T) {
	r, sched := newTestRecorder(t, testConfig(t))
	defer r.Close()

	res := r.StartGenerator("traces", 5)
	if res.State.IntervalMs != generator.TraceFloor.Milliseconds() {
		t.Errorf("interval = %d, want trace floor", res.State.IntervalMs)
	}
	sched.fire()
	sched.fire()
	if n := r.QueryTraces(query.TraceQuery{}).Total; n != 2 {
		t.Errorf("generated %d traces after two ticks", n)
	}
}

func TestStopGenerator_Twice(t *testing.T) {
	r, _ := newTestRecorder(t, testConfig(t))
	defer r.Close()
	r.StartGenerator("logs", 0)
	for i := 0; i < 2; i++ {
		res := r.StopGenerator("logs")
		if !res.OK() || res.State.Running {
			t.Errorf("stop %d = %+v", i, res)
		}
	}
}

func TestSetErrorRate(t *testing.T) {
	r, _ := newTestRecorder(t, testConfig(t))
	defer r.Close()
	if res := r.SetErrorRate("traces", 1.5); res.OK() || res.State.ErrorRate != 0.1 {
		t.Errorf("out of range rate = %+v", res)
	}
	if res := r.SetErrorRate("traces", 1); !res.OK() || res.State.ErrorRate != 1 {
		t.Errorf("rate 1 = %+v", res)
	}
}

func TestMaintain_PrunesExpired(t *testing.T) {
	c := &clock{}
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.set(start)
	cfg := testConfig(t)
	cfg.Retention.ArchiveDir = filepath.Join(cfg.DataDir, "archive")
	r, _ := newTestRecorder(t, cfg, WithClock(c.now))
	defer r.Close()

	r.RecordTrace("", "old")
	r.RecordLog("old line", "info")
	c.set(start.Add(10 * 24 * time.Hour))
	r.RecordTrace("", "fresh")

	if err := r.Maintain(); err != nil {
		t.Fatalf("Maintain: %v", err)
	}
	traces := r.QueryTraces(query.TraceQuery{})
	if traces.Total != 1 || traces.Items[0].Operation != "fresh" {
		t.Errorf("traces after prune = %+v", traces.Items)
	}
	if n := r.QueryLogs(query.LogQuery{}).Total; n != 0 {
		t.Errorf("%d logs survived prune", n)
	}
	// Pruning leaves the all-time counters alone.
	if got := r.Statistics("traces", nil).Statistics.TotalCount; got != 2 {
		t.Errorf("total after prune = %d", got)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Retention.ArchiveDir, "*.jsonl.zst"))
	if len(matches) != 2 {
		t.Errorf("archives = %v", matches)
	}
}

func TestCloseAndReopen(t *testing.T) {
	cfg := testConfig(t)
	r, _ := newTestRecorder(t, cfg)
	r.RecordTrace("", "a")
	r.RecordTrace("", "b_error")
	r.RecordLog(`{"k":1}`, "debug")
	r.StartGenerator("logs", 750)
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, _ := newTestRecorder(t, cfg)
	defer again.Close()
	traces := again.QueryTraces(query.TraceQuery{})
	if traces.Total != 2 || traces.Items[0].Status != event.StatusError {
		t.Errorf("reopened traces = %+v", traces.Items)
	}
	st := again.Statistics("traces", nil).Statistics
	if st.TotalCount != 2 || st.CountsByStatus["error"] != 1 {
		t.Errorf("reopened stats = %+v", st)
	}
	if n := again.QueryLogs(query.LogQuery{}).Total; n != 1 {
		t.Errorf("reopened logs = %d", n)
	}
	gen := again.GeneratorState("logs").State
	if gen.Running || gen.IntervalMs != 750 {
		t.Errorf("generator before resume = %+v", gen)
	}
	again.ResumeGenerators()
	if !again.GeneratorState("logs").State.Running {
		t.Errorf("log generator enabled before close did not resume")
	}
}

func TestApplyConfig_OnlyChangedSettings(t *testing.T) {
	cfg := testConfig(t)
	r, _ := newTestRecorder(t, cfg)
	defer r.Close()

	r.SetErrorRate("logs", 0.3)
	next := *cfg
	next.Generators.Traces.IntervalMs = 400
	r.ApplyConfig(&next)

	if got := r.GeneratorState("traces").State.IntervalMs; got != 400 {
		t.Errorf("trace interval = %d", got)
	}
	if got := r.GeneratorState("logs").State.ErrorRate; got != 0.3 {
		t.Errorf("unchanged config overwrote runtime rate: %v", got)
	}

	on := true
	next.Generators.Traces.Enabled = &on
	r.ApplyConfig(&next)
	if !r.GeneratorState("traces").State.Running {
		t.Errorf("enabling in config did not start the trace generator")
	}
}
