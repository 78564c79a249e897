package piston

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "playground"

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "piston",
		Name:      "requests_total",
		Help:      "Execute calls by result",
	}, []string{"result"})

	retriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "piston",
		Name:      "retries_total",
		Help:      "Retries caused by HTTP 429 responses",
	})

	requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "piston",
		Name:      "request_duration_seconds",
		Help:      "Wall time of an Execute call including retries",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, retriesTotal, requestDuration)
}

func observeRequest(err error, d time.Duration) {
	requestDuration.Observe(d.Seconds())
	result := "ok"
	var perr *Error
	if errors.As(err, &perr) {
		result = perr.Kind.String()
	} else if err != nil {
		result = "error"
	}
	requestsTotal.WithLabelValues(result).Inc()
}
