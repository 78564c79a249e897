package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "playground",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route and status",
}, []string{"method", "route", "status"})

func init() {
	prometheus.MustRegister(httpRequestsTotal)
}

func observeRequest(method, route string, status int) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
