// Package metrics exposes Prometheus counters for the movement flows and
// the recurring scheduler. Served on /metrics by the HTTP server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MovementsTotal counts movement flow outcomes by kind.
	MovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goldvault_movements_total",
		Help: "Movement flow executions by transaction kind and outcome.",
	}, []string{"kind", "outcome"})

	// PlanExecutionsTotal counts recurring plan execution outcomes.
	PlanExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goldvault_plan_executions_total",
		Help: "Recurring plan executions by outcome.",
	}, []string{"outcome"})

	// SchedulerRunsTotal counts batch scheduler runs.
	SchedulerRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldvault_scheduler_runs_total",
		Help: "Recurring scheduler batch runs.",
	})

	// PotAllocationsTotal counts kitty pot allocations.
	PotAllocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldvault_kitty_allocations_total",
		Help: "Kitty pot allocations committed.",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
