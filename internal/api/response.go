package api

import (
	"encoding/json"
	"net/http"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/recorder"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOutcome writes v with 400 for an error outcome and 200 otherwise.
func writeOutcome(w http.ResponseWriter, o recorder.Outcome, v any) {
	status := http.StatusOK
	if !o.OK() {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, recorder.Outcome{Status: recorder.StatusError, Message: msg})
}
