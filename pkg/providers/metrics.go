package providers

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const namespace = "trendscaler"
const subsystem = "provider"

const (
	sourceHTTPLoad      = "http_load"
	sourcePrometheus    = "prometheus"
	sourceHTTPResource  = "http_resource"
	sourceMetricsServer = "metrics_server"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of provider requests",
		},
		[]string{"source"},
	)
	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_errors_total",
			Help:      "Total number of failed provider requests",
		},
		[]string{"source"},
	)
	requestDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  namespace,
			Subsystem:  subsystem,
			Name:       "request_duration_seconds",
			Help:       "Provider request duration",
			Objectives: map[float64]float64{0.5: 1e-1, 0.9: 1e-2, 0.99: 1e-3, 0.999: 1e-4, 1: 1e-5},
		},
		[]string{"source"},
	)
	subRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "prometheus_sub_requests_total",
			Help:      "Total number of HTTP requests to Prometheus",
		},
		[]string{"addr"},
	)
	subRequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "prometheus_sub_requests_errors_total",
			Help:      "Total number of HTTP request errors to Prometheus",
		},
		[]string{"addr"},
	)
	fallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "load_fallback_total",
			Help:      "Total number of load readings replaced by an estimate",
		},
	)
)

var once sync.Once

func initMetrics() {
	metrics.Registry.MustRegister(requestsTotal, requestErrors, requestDuration,
		subRequestTotal, subRequestErrors, fallbackTotal)
}

func observeRequest(source string, start time.Time, err error) {
	requestsTotal.WithLabelValues(source).Inc()
	requestDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		requestErrors.WithLabelValues(source).Inc()
	}
}
