package runner

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playground",
		Name:      "runs_total",
		Help:      "Completed Run All operations by mode",
	}, []string{"mode"})

	verdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playground",
		Name:      "verdicts_total",
		Help:      "Test case verdicts by kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(runsTotal, verdictsTotal)
}
