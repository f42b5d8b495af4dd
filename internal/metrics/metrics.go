// Package metrics exposes Prometheus collectors for solver runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tspga_runs_total",
			Help: "Total number of finished runs by final status",
		},
		[]string{"status"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tspga_generations_total",
			Help: "Total number of generations evaluated",
		},
		[]string{"crossover"},
	)

	bestTourLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tspga_best_tour_length",
			Help: "Best tour length found so far by an active run",
		},
		[]string{"run_id"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tspga_run_duration_seconds",
			Help:    "Wall time of finished runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"crossover"},
	)

	activeRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tspga_active_runs",
			Help: "Number of runs currently evolving",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(generationsTotal)
	prometheus.MustRegister(bestTourLength)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(activeRuns)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RunStarted marks a run as active.
func RunStarted() {
	activeRuns.Inc()
}

// GenerationEvaluated records one evaluated generation of a run.
func GenerationEvaluated(runID, crossover string, best float64) {
	generationsTotal.WithLabelValues(crossover).Inc()
	bestTourLength.WithLabelValues(runID).Set(best)
}

// RunFinished records the outcome of a run and drops its per-run series.
func RunFinished(runID, crossover, status string, elapsed time.Duration) {
	activeRuns.Dec()
	runsTotal.WithLabelValues(status).Inc()
	runDuration.WithLabelValues(crossover).Observe(elapsed.Seconds())
	bestTourLength.DeleteLabelValues(runID)
}
