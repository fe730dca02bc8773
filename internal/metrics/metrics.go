// Package metrics exposes attempt lifecycle counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	registry  *prometheus.Registry
	started   prometheus.Counter
	resumed   prometheus.Counter
	submitted *prometheus.CounterVec
	answers   prometheus.Counter
	scores    prometheus.Histogram
	armed     prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "examhub", Name: "attempts_started_total",
			Help: "Attempts created.",
		}),
		resumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "examhub", Name: "attempts_resumed_total",
			Help: "Start calls that returned an existing open attempt.",
		}),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examhub", Name: "attempts_submitted_total",
			Help: "Attempts scored and closed, by trigger.",
		}, []string{"trigger"}),
		answers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "examhub", Name: "answers_recorded_total",
			Help: "Individual answers written to open attempts.",
		}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "examhub", Name: "attempt_score",
			Help:    "Distribution of submitted scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examhub", Name: "timers_armed",
			Help: "Attempts with a pending server-side expiry.",
		}),
	}
	reg.MustRegister(m.started, m.resumed, m.submitted, m.answers, m.scores, m.armed,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AttemptStarted() {
	if m != nil {
		m.started.Inc()
	}
}

func (m *Metrics) AttemptResumed() {
	if m != nil {
		m.resumed.Inc()
	}
}

func (m *Metrics) AttemptSubmitted(trigger string, score float64) {
	if m != nil {
		m.submitted.WithLabelValues(trigger).Inc()
		m.scores.Observe(score)
	}
}

func (m *Metrics) AnswersRecorded(n int) {
	if m != nil {
		m.answers.Add(float64(n))
	}
}

func (m *Metrics) TimersArmed(n int) {
	if m != nil {
		m.armed.Set(float64(n))
	}
}
