package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsStarted      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fbbot_jobs_started_total", Help: "Jobs started, by workflow kind"}, []string{"kind"})
	JobsCompleted    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fbbot_jobs_completed_total", Help: "Jobs completed, by workflow kind"}, []string{"kind"})
	OutcomeSuccess   = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fbbot_outcomes_success_total", Help: "Successful work item outcomes, by workflow kind"}, []string{"kind"})
	OutcomeFailure   = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fbbot_outcomes_failure_total", Help: "Failed work item outcomes, by workflow kind"}, []string{"kind"})
	BrowsersLaunched = prometheus.NewCounter(prometheus.CounterOpts{Name: "fbbot_browsers_launched_total", Help: "Browser contexts launched"})
	BrowsersKilled   = prometheus.NewCounter(prometheus.CounterOpts{Name: "fbbot_browsers_killed_total", Help: "Browsers force terminated after a failed graceful close"})
	StopAllRequests  = prometheus.NewCounter(prometheus.CounterOpts{Name: "fbbot_stop_all_total", Help: "Global stop requests"})
	BrowsersInFlight = prometheus.NewGauge(prometheus.GaugeOpts{Name: "fbbot_browsers_inflight", Help: "Browser contexts currently open"})
	JobsInFlight     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "fbbot_jobs_inflight", Help: "Jobs currently registered"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsStarted,
			JobsCompleted,
			OutcomeSuccess,
			OutcomeFailure,
			BrowsersLaunched,
			BrowsersKilled,
			StopAllRequests,
			BrowsersInFlight,
			JobsInFlight,
		)
	})
	return promhttp.Handler()
}
