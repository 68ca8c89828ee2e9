package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRun("success", "token", 3, 1, 2*time.Second)
	m.ObserveRun("error", "supabase", 0, 1, time.Second)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("success", "token")); got != 1 {
		t.Fatalf("success runs = %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("error", "supabase")); got != 1 {
		t.Fatalf("error runs = %v", got)
	}
	if got := testutil.ToFloat64(m.Papers); got != 3 {
		t.Fatalf("papers = %v", got)
	}
	if got := testutil.ToFloat64(m.Warnings); got != 2 {
		t.Fatalf("warnings = %v", got)
	}
	if n := testutil.CollectAndCount(m.RunDuration); n != 2 {
		t.Fatalf("expected 2 duration series, got %d", n)
	}
}

func TestStageFailed(t *testing.T) {
	m := NewMetrics(nil)
	m.StageFailed("audio")
	m.StageFailed("audio")
	if got := testutil.ToFloat64(m.StageFailures.WithLabelValues("audio")); got != 2 {
		t.Fatalf("audio failures = %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveRun("success", "token", 1, 0, time.Second)
	m.StageFailed("feed")
}
