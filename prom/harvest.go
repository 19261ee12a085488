package prom

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeRetry = "retry"
	OutcomeFail  = "fail"
)

// Page tiers.
const (
	TierStatic = "static"
	TierReplay = "replay"
)

// Detail fetch results.
const (
	EventKept   = "kept"
	EventPast   = "past"
	EventFailed = "failed"
)

var (
	// FetchAttempts counts single HTTP attempts by method and outcome.
	FetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_fetch_attempts_total",
			Help: "HTTP attempts made by the retrying client.",
		},
		[]string{"method", "outcome"},
	)

	// Pages counts listing pages decoded per source kind and tier.
	Pages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_pages_total",
			Help: "Listing pages decoded.",
		},
		[]string{"kind", "tier"},
	)

	// Captures counts browser capture sessions by result.
	Captures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_captures_total",
			Help: "Browser capture sessions.",
		},
		[]string{"kind", "result"},
	)

	// Events counts detail fetches by result: kept, past or failed.
	Events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_events_total",
			Help: "Event detail fetches.",
		},
		[]string{"result"},
	)
)

func init() {
	promRegister(FetchAttempts)
	promRegister(Pages)
	promRegister(Captures)
	promRegister(Events)
}
