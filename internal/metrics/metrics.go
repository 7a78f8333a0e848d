package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry of the solver process.
	Registry = prometheus.NewRegistry()

	// Evaluations counts configuration evaluations by outcome
	// (estimated, evaluated, infeasible, failed).
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "lrp_evaluations_total", Help: "Depot configuration evaluations by outcome."},
		[]string{"outcome"},
	)
	// ScenarioSolveSeconds records per-scenario routing solve durations.
	ScenarioSolveSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lrp_scenario_solve_seconds",
			Help:    "Per-scenario routing solve duration in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"phase"},
	)
	// CandidatePoolSize is the number of configurations alive in the current stage.
	CandidatePoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "lrp_candidate_pool_size", Help: "Configurations surviving the current stage."},
	)
	// BestObjective is the cheapest configuration cost after the latest stage.
	BestObjective = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "lrp_best_objective", Help: "Best configuration cost after the latest stage."},
	)
	// Stage is the index of the stage currently running.
	Stage = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "lrp_stage", Help: "Index of the running pruning stage."},
	)

	// HTTPRequests counts side-car requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(Evaluations)
		Registry.MustRegister(ScenarioSolveSeconds)
		Registry.MustRegister(CandidatePoolSize)
		Registry.MustRegister(BestObjective)
		Registry.MustRegister(Stage)
		Registry.MustRegister(HTTPRequests)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
