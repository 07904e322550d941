package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/metrics"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (s *statusWriter) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware counts every request by route pattern and status code
// and logs it at debug level.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(sw.code)).Inc()
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"code", sw.code,
			"duration", time.Since(start),
		)
	})
}
