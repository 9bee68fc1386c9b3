package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"soulcast/internal/metrics"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					matched = false
				}
			}
			if !matched {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordSubmission("accepted")
	c.RecordSubmission("accepted")
	c.RecordSubmission("rejected")
	c.RecordPoll("ok")
	c.RecordResolved("ready")

	if got := gatherValue(t, reg, "soulcast_generation_submissions_total", map[string]string{"result": "accepted"}); got != 2 {
		t.Fatalf("accepted submissions = %v, want 2", got)
	}
	if got := gatherValue(t, reg, "soulcast_tracking_polls_total", map[string]string{"result": "ok"}); got != 1 {
		t.Fatalf("polls = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "soulcast_tracking_resolved_total", map[string]string{"status": "ready"}); got != 1 {
		t.Fatalf("resolved = %v, want 1", got)
	}
}

func TestCollectorGaugesAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SetInFlight(3)
	c.SetQuota(10000, 35000)
	c.ObserveRequest("list", 200, 150*time.Millisecond)

	if got := gatherValue(t, reg, "soulcast_tracking_in_flight", nil); got != 3 {
		t.Fatalf("in flight = %v, want 3", got)
	}
	if got := gatherValue(t, reg, "soulcast_quota_remaining_characters", nil); got != 35000 {
		t.Fatalf("quota remaining = %v, want 35000", got)
	}
	if got := gatherValue(t, reg, "soulcast_backend_requests_total", map[string]string{"operation": "list", "status_code": "200"}); got != 1 {
		t.Fatalf("requests = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "soulcast_backend_request_seconds", map[string]string{"operation": "list"}); got != 1 {
		t.Fatalf("latency samples = %v, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.RecordPoll("error")

	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `soulcast_tracking_polls_total{result="error"} 1`) {
		t.Fatalf("expected poll counter in output, got %s", body)
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := metrics.OrNop(nil).(metrics.Nop); !ok {
		t.Fatal("expected Nop for nil recorder")
	}
	c := metrics.NewCollector(prometheus.NewRegistry())
	if metrics.OrNop(c) != metrics.Recorder(c) {
		t.Fatal("expected recorder passthrough")
	}
}
