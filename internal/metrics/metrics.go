// Package metrics exposes the agent's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts analysis runs by kind and final status.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutroom_runs_total",
		Help: "Analysis runs by kind and status.",
	}, []string{"kind", "status"})

	// IssuesTotal counts QC findings by severity.
	IssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutroom_issues_total",
		Help: "QC issues found, by severity.",
	}, []string{"severity"})

	// PlacementsTotal counts align placements by outcome.
	PlacementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutroom_placements_total",
		Help: "Multitrack placements attempted, by result.",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
