package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	URLAnalysesTotal    *prometheus.CounterVec
	EmailAnalysesTotal  *prometheus.CounterVec
	ReputationPolls     *prometheus.CounterVec
	AnalysisDuration    *prometheus.HistogramVec
	JobsInFlight        prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the service metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		URLAnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "content_safety_url_analyses_total",
			Help: "The total number of URL analyses by verdict",
		}, []string{"verdict"}), // safe, unsafe
		EmailAnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "content_safety_email_analyses_total",
			Help: "The total number of email analyses by verdict",
		}, []string{"verdict"}), // ham, spam, high_risk
		ReputationPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "content_safety_reputation_polls_total",
			Help: "Reputation analysis polls by outcome",
		}, []string{"outcome"}), // queued, completed, failed
		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "content_safety_analysis_duration_seconds",
			Help:    "Duration of analyses.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}), // url, email
		JobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "content_safety_jobs_in_flight",
			Help: "Current number of asynchronous URL analyses held by the job registry.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "content_safety_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "content_safety_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncURLAnalysis(verdict string) {
	if m == nil {
		return
	}
	m.URLAnalysesTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) IncEmailAnalysis(verdict string) {
	if m == nil {
		return
	}
	m.EmailAnalysesTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) IncReputationPoll(outcome string) {
	if m == nil {
		return
	}
	m.ReputationPolls.WithLabelValues(outcome).Inc()
}

// ObserveAnalysis records the time elapsed since start under kind
func (m *Metrics) ObserveAnalysis(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.AnalysisDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetJobsInFlight(n int) {
	if m == nil {
		return
	}
	m.JobsInFlight.Set(float64(n))
}

// ObserveHTTPRequest records one served request
func (m *Metrics) ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
