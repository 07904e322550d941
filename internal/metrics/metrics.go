package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Every store-scoped series is labelled by kind ("traces" or "logs").
var (
	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otelrecorder_events_appended_total",
		Help: "Total number of events appended to a store.",
	}, []string{"kind"})

	EventsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otelrecorder_events_evicted_total",
		Help: "Total number of events evicted because a store reached capacity.",
	}, []string{"kind"})

	EventsPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otelrecorder_events_pruned_total",
		Help: "Total number of events removed by age-based retention.",
	}, []string{"kind"})

	StoredEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "otelrecorder_stored_events",
		Help: "Number of events currently held in a store.",
	}, []string{"kind"})

	Flushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otelrecorder_flushes_total",
		Help: "Total number of store flushes, labelled by kind and result.",
	}, []string{"kind", "result"})

	FlushesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otelrecorder_flushes_dropped_total",
		Help: "Total number of async flush requests dropped because one was already queued.",
	}, []string{"kind"})

	FlushDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "otelrecorder_flush_duration_ms",
		Help:    "Time spent writing a store snapshot to disk in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"kind"})

	ArchivedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otelrecorder_events_archived_total",
		Help: "Total number of pruned events written to a compressed archive.",
	}, []string{"kind"})

	GeneratorTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otelrecorder_generator_ticks_total",
		Help: "Total number of synthetic events produced, labelled by kind.",
	}, []string{"kind"})

	GeneratorRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "otelrecorder_generator_running",
		Help: "1 if the synthetic generator for a kind is running.",
	}, []string{"kind"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otelrecorder_http_requests_total",
		Help: "Total number of HTTP requests, labelled by route and status code.",
	}, []string{"route", "code"})
)
