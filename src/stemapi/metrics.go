package stemapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stemweb",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Requests made to the STEM backend, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stemweb",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Latency of requests to the STEM backend.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
)

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(ErrorKind(err))
}
