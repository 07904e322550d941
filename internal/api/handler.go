package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/query"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/recorder"
)

const maxBodyBytes = 1 << 20

// Recorder is the set of operations the HTTP adapter exposes.
type Recorder interface {
	RecordTrace(message, operation string) recorder.TraceReceipt
	RecordLog(payload, level string) bool
	QueryTraces(q query.TraceQuery) recorder.TraceList
	QueryLogs(q query.LogQuery) recorder.LogList
	Statistics(kind string, since *time.Time) recorder.StatsResult
	ResetStatistics(kind string) recorder.StatsResult
	StartGenerator(kind string, intervalMs float64) recorder.GeneratorResult
	StopGenerator(kind string) recorder.GeneratorResult
	GeneratorState(kind string) recorder.GeneratorResult
	SetErrorRate(kind string, rate float64) recorder.GeneratorResult
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	rec    Recorder
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(rec Recorder, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{rec: rec, logger: logger.With("component", "api"), mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/traces", h.recordTrace)
	h.mux.HandleFunc("GET /v1/traces", h.queryTraces)
	h.mux.HandleFunc("POST /v1/logs", h.recordLog)
	h.mux.HandleFunc("GET /v1/logs", h.queryLogs)
	h.mux.HandleFunc("GET /v1/stats/{kind}", h.statistics)
	h.mux.HandleFunc("POST /v1/stats/{kind}/reset", h.resetStatistics)
	h.mux.HandleFunc("GET /v1/generators/{kind}", h.generatorState)
	h.mux.HandleFunc("POST /v1/generators/{kind}/start", h.startGenerator)
	h.mux.HandleFunc("POST /v1/generators/{kind}/stop", h.stopGenerator)
	h.mux.HandleFunc("PUT /v1/generators/{kind}/error-rate", h.setErrorRate)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.logger, h.mux)
}

type traceRequest struct {
	Message   string `json:"message"`
	Operation string `json:"operation"`
}

// POST /v1/traces
func (h *Handler) recordTrace(w http.ResponseWriter, r *http.Request) {
	var req traceRequest
	if !decode(w, r, &req) {
		return
	}
	res := h.rec.RecordTrace(req.Message, req.Operation)
	writeOutcome(w, res.Outcome, res)
}

// logRequest accepts the payload either as a string or as any JSON value,
// which is recorded as its JSON text.
type logRequest struct {
	Payload json.RawMessage `json:"payload"`
	Level   string          `json:"level"`
}

func (l logRequest) text() string {
	var s string
	if err := json.Unmarshal(l.Payload, &s); err == nil {
		return s
	}
	if string(l.Payload) == "null" {
		return ""
	}
	return string(l.Payload)
}

// POST /v1/logs
func (h *Handler) recordLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.rec.RecordLog(req.text(), req.Level) {
		writeJSON(w, http.StatusBadRequest, recorder.Outcome{Status: recorder.StatusError, Message: "log not recorded: payload is required"})
		return
	}
	writeJSON(w, http.StatusOK, recorder.Outcome{Status: recorder.StatusSuccess, Message: "log recorded"})
}

// GET /v1/traces
func (h *Handler) queryTraces(w http.ResponseWriter, r *http.Request) {
	q, diags := query.ParseTraceQuery(r.URL.Query())
	res := h.rec.QueryTraces(q)
	res.Diagnostics = diags
	writeOutcome(w, res.Outcome, res)
}

// GET /v1/logs
func (h *Handler) queryLogs(w http.ResponseWriter, r *http.Request) {
	q, diags := query.ParseLogQuery(r.URL.Query())
	res := h.rec.QueryLogs(q)
	res.Diagnostics = diags
	writeOutcome(w, res.Outcome, res)
}

// GET /v1/stats/{kind}?since=
func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	since, diags := query.ParseSince(r.URL.Query())
	res := h.rec.Statistics(r.PathValue("kind"), since)
	if res.OK() {
		res.Diagnostics = diags
	}
	writeOutcome(w, res.Outcome, res)
}

// POST /v1/stats/{kind}/reset
func (h *Handler) resetStatistics(w http.ResponseWriter, r *http.Request) {
	res := h.rec.ResetStatistics(r.PathValue("kind"))
	writeOutcome(w, res.Outcome, res)
}

// GET /v1/generators/{kind}
func (h *Handler) generatorState(w http.ResponseWriter, r *http.Request) {
	res := h.rec.GeneratorState(r.PathValue("kind"))
	writeOutcome(w, res.Outcome, res)
}

// POST /v1/generators/{kind}/start?intervalMs=
func (h *Handler) startGenerator(w http.ResponseWriter, r *http.Request) {
	interval, ok := floatParam(w, r, "intervalMs", 0)
	if !ok {
		return
	}
	res := h.rec.StartGenerator(r.PathValue("kind"), interval)
	writeOutcome(w, res.Outcome, res)
}

// POST /v1/generators/{kind}/stop
func (h *Handler) stopGenerator(w http.ResponseWriter, r *http.Request) {
	res := h.rec.StopGenerator(r.PathValue("kind"))
	writeOutcome(w, res.Outcome, res)
}

// PUT /v1/generators/{kind}/error-rate?value=
func (h *Handler) setErrorRate(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(r.URL.Query().Get("value")) == "" {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	rate, ok := floatParam(w, r, "value", 0)
	if !ok {
		return
	}
	res := h.rec.SetErrorRate(r.PathValue("kind"), rate)
	writeOutcome(w, res.Outcome, res)
}

// GET /healthz
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return false
	}
	return true
}

// floatParam reads an optional numeric query parameter. NaN and infinities
// parse and are left to the recorder to reject.
func floatParam(w http.ResponseWriter, r *http.Request, name string, def float64) (float64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a number, got %q", name, raw))
		return 0, false
	}
	return f, true
}
