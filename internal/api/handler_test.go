package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/config"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/generator"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/recorder"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/weighted"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type idleHandle struct{}

func (idleHandle) Cancel() {}

func idle(time.Duration, func()) generator.CancelHandle { return idleHandle{} }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Traces.Path = filepath.Join(dir, "traces-storage.json")
	cfg.Logs.Path = filepath.Join(dir, "logs-storage.json")
	cfg.Generators.Traces.StatePath = filepath.Join(dir, "trace-generator.json")
	cfg.Generators.Logs.StatePath = filepath.Join(dir, "log-generator.json")

	rec, err := recorder.New(cfg, discard, recorder.WithRand(weighted.NewRand(1)), recorder.WithScheduler(idle))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(New(rec, discard))
	t.Cleanup(func() {
		srv.Close()
		rec.Close()
	})
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestRecordAndQueryTraces(t *testing.T) {
	srv := newServer(t)
	for _, op := range []string{"db_error", "db_error", "get_user", "get_user", "get_user"} {
		code, out := do(t, srv, http.MethodPost, "/v1/traces", `{"operation":"`+op+`"}`)
		if code != http.StatusOK || out["status"] != "success" {
			t.Fatalf("POST trace %s: %d %v", op, code, out)
		}
	}

	code, out := do(t, srv, http.MethodGet, "/v1/traces?status=error&limit=0", "")
	if code != http.StatusOK {
		t.Fatalf("GET traces: %d", code)
	}
	if out["total"] != 5.0 || out["filtered"] != 2.0 || len(out["items"].([]any)) != 2 {
		t.Errorf("status filter = %v", out)
	}

	_, out = do(t, srv, http.MethodGet, "/v1/traces?limit=abc&minDuration=x", "")
	diags, _ := out["diagnostics"].([]any)
	if len(diags) != 2 || out["filtered"] != 5.0 {
		t.Errorf("bad params should be ignored with diagnostics, got %v", out)
	}
}

func TestRecordTrace_BadJSON(t *testing.T) {
	srv := newServer(t)
	code, out := do(t, srv, http.MethodPost, "/v1/traces", `{"operation":`)
	if code != http.StatusBadRequest || out["status"] != "error" {
		t.Errorf("got %d %v", code, out)
	}
}

func TestRecordLog(t *testing.T) {
	srv := newServer(t)
	if code, _ := do(t, srv, http.MethodPost, "/v1/logs", `{"payload":{"user":"ada"},"level":"warn"}`); code != http.StatusOK {
		t.Fatalf("structured log: %d", code)
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/logs", `{"payload":"plain words"}`); code != http.StatusOK {
		t.Fatalf("plain log: %d", code)
	}
	if code, out := do(t, srv, http.MethodPost, "/v1/logs", `{"payload":"  "}`); code != http.StatusBadRequest {
		t.Errorf("blank log: %d %v", code, out)
	}

	_, out := do(t, srv, http.MethodGet, "/v1/logs?level=warn", "")
	items := out["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("warn logs = %v", out)
	}
	msg, ok := items[0].(map[string]any)["message"].(map[string]any)
	if !ok || msg["user"] != "ada" {
		t.Errorf("structured payload lost: %v", items[0])
	}
}

func TestStatistics(t *testing.T) {
	srv := newServer(t)
	do(t, srv, http.MethodPost, "/v1/traces", `{"operation":"checkout"}`)

	code, out := do(t, srv, http.MethodGet, "/v1/stats/traces", "")
	if code != http.StatusOK {
		t.Fatalf("stats: %d %v", code, out)
	}
	st := out["statistics"].(map[string]any)
	if st["totalCount"] != 1.0 || st["countsByOperation"].(map[string]any)["checkout"] != 1.0 {
		t.Errorf("stats = %v", st)
	}

	code, out = do(t, srv, http.MethodGet, "/v1/stats/traces?since=yesterday", "")
	if code != http.StatusOK {
		t.Fatalf("bad since: %d %v", code, out)
	}
	diags, _ := out["diagnostics"].([]any)
	if len(diags) != 1 || !strings.Contains(diags[0].(string), "since") {
		t.Errorf("diagnostics = %v", out["diagnostics"])
	}
	byDay := out["statistics"].(map[string]any)["countsByDay"].(map[string]any)
	if len(byDay) != 1 {
		t.Errorf("unparsable since filtered the day buckets: %v", byDay)
	}
	if code, _ := do(t, srv, http.MethodGet, "/v1/stats/spans", ""); code != http.StatusBadRequest {
		t.Errorf("unknown kind: %d", code)
	}
	if code, out := do(t, srv, http.MethodPost, "/v1/stats/logs/reset", ""); code != http.StatusOK {
		t.Errorf("reset: %d %v", code, out)
	}
}

func TestGenerators(t *testing.T) {
	srv := newServer(t)

	code, out := do(t, srv, http.MethodPost, "/v1/generators/traces/start?intervalMs=1", "")
	if code != http.StatusOK {
		t.Fatalf("start: %d %v", code, out)
	}
	state := out["state"].(map[string]any)
	if state["running"] != true || state["intervalMs"] != 100.0 {
		t.Errorf("started state = %v", state)
	}

	if code, _ := do(t, srv, http.MethodPost, "/v1/generators/traces/start?intervalMs=-5", ""); code != http.StatusBadRequest {
		t.Errorf("negative interval: %d", code)
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/generators/traces/start?intervalMs=soon", ""); code != http.StatusBadRequest {
		t.Errorf("non-numeric interval: %d", code)
	}

	if code, _ := do(t, srv, http.MethodPut, "/v1/generators/traces/error-rate?value=2", ""); code != http.StatusBadRequest {
		t.Errorf("rate 2 accepted: %d", code)
	}
	if code, _ := do(t, srv, http.MethodPut, "/v1/generators/traces/error-rate", ""); code != http.StatusBadRequest {
		t.Errorf("missing rate accepted: %d", code)
	}
	code, out = do(t, srv, http.MethodPut, "/v1/generators/traces/error-rate?value=0.5", "")
	if code != http.StatusOK || out["state"].(map[string]any)["errorRate"] != 0.5 {
		t.Errorf("set rate: %d %v", code, out)
	}

	for i := 0; i < 2; i++ {
		if code, _ := do(t, srv, http.MethodPost, "/v1/generators/traces/stop", ""); code != http.StatusOK {
			t.Errorf("stop %d: %d", i, code)
		}
	}
	_, out = do(t, srv, http.MethodGet, "/v1/generators/traces", "")
	if out["state"].(map[string]any)["running"] != false {
		t.Errorf("state after stop = %v", out)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newServer(t)
	if code, out := do(t, srv, http.MethodGet, "/healthz", ""); code != http.StatusOK || out["status"] != "ok" {
		t.Errorf("healthz: %d %v", code, out)
	}
	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "otelrecorder_http_requests_total") {
		t.Errorf("metrics missing request counter")
	}
}
