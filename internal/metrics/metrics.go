// Package metrics declares the process-wide Prometheus collectors. They are
// registered on the default registry by promauto and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formulacanvas_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures handler latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formulacanvas_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	// Reconciliations counts inbound sync passes: "applied" or "deferred"
	// (a gesture was active).
	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formulacanvas_reconciliations_total",
			Help: "Reconciliation passes by outcome",
		},
		[]string{"outcome"},
	)

	// Commits counts layout commits: "written", "skipped" (unchanged digest)
	// or "failed".
	Commits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formulacanvas_layout_commits_total",
			Help: "Layout commits by outcome",
		},
		[]string{"outcome"},
	)

	// Gestures counts completed pointer gestures by mode.
	Gestures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formulacanvas_gestures_total",
			Help: "Completed gestures by mode",
		},
		[]string{"mode"},
	)

	// AnalysisRequests counts scent analyses by outcome.
	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formulacanvas_analysis_requests_total",
			Help: "Scent analysis requests by outcome",
		},
		[]string{"outcome"},
	)

	// LiveSessions tracks open editor sessions.
	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "formulacanvas_live_sessions",
			Help: "Number of open editor sessions",
		},
	)
)
