package website

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "stemweb_http_request_duration_seconds",
	Help:    "Time spent serving website requests.",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "method", "status"})

var templateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "stemweb_template_render_duration_seconds",
	Help:    "Time spent executing page templates.",
	Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
}, []string{"template"})
