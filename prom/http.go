// Package prom contains prometheus metrics exported by the harvester.
package prom

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns a handler that exports metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InstrumentHandler decorates an HTTP handler with in-flight, request count
// and latency metrics labeled with name.
func InstrumentHandler(name string, handler http.Handler) http.Handler {
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "harvest_api_requests_in_flight",
		Help:        "Number of requests currently being served by the handler.",
		ConstLabels: prometheus.Labels{"handler": name},
	})
	promRegister(inFlight)
	handler = promhttp.InstrumentHandlerInFlight(inFlight, handler)

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "harvest_api_requests_total",
			Help:        "Total number of requests for the handler.",
			ConstLabels: prometheus.Labels{"handler": name},
		},
		[]string{"code"},
	)
	promRegister(counter)
	handler = promhttp.InstrumentHandlerCounter(counter, handler)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "harvest_api_response_duration_seconds",
			Help:        "A histogram of request latencies.",
			Buckets:     []float64{.05, .25, 1, 5, 30, 120, 600},
			ConstLabels: prometheus.Labels{"handler": name},
		},
		[]string{},
	)
	promRegister(duration)
	handler = promhttp.InstrumentHandlerDuration(duration, handler)

	return handler
}

// promRegister registers c, tolerating double registration so handlers can be
// built more than once in one process (tests do this).
func promRegister(c prometheus.Collector) {
	err := prometheus.Register(c)
	if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return
	}
	if err != nil {
		panic(err)
	}
}
