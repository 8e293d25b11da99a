package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.IncURLAnalysis("safe")
	m.IncEmailAnalysis("spam")
	m.IncReputationPoll("queued")
	m.ObserveAnalysis("url", time.Now())
	m.SetJobsInFlight(3)
	m.ObserveHTTPRequest("GET", "/api/health", "200", time.Millisecond)
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncURLAnalysis("unsafe")
	m.IncURLAnalysis("unsafe")
	m.IncReputationPoll("completed")
	m.SetJobsInFlight(2)

	if got := testutil.ToFloat64(m.URLAnalysesTotal.WithLabelValues("unsafe")); got != 2 {
		t.Errorf("url analyses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ReputationPolls.WithLabelValues("completed")); got != 1 {
		t.Errorf("reputation polls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.JobsInFlight); got != 2 {
		t.Errorf("jobs in flight = %v, want 2", got)
	}
}
