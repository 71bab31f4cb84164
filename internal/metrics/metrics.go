package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "claims"

var (
	BackendFailovers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_failovers_total",
		Help:      "Number of times the active storage backend was switched.",
	}, []string{"from", "to"})

	BackendOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_operations_total",
		Help:      "Storage operations by backend and outcome.",
	}, []string{"backend", "op", "result"})

	ActiveBackend = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_backend",
		Help:      "1 for the storage backend currently serving requests, 0 otherwise.",
	}, []string{"backend"})

	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Claim status transitions applied, by target status.",
	}, []string{"to"})
)

// Registry holds the service collectors plus Go runtime and process metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		BackendFailovers,
		BackendOperations,
		ActiveBackend,
		Transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Result labels an operation outcome.
func Result(err error, backendFailure bool) string {
	switch {
	case err == nil:
		return "ok"
	case backendFailure:
		return "failure"
	default:
		return "rejected"
	}
}
