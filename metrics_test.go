package goSession

import (
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/middleware"
)

func TestMetricsDisabledIgnoresUpdates(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLogout)
	nilMetrics.Observe(MetricResolveLatency, time.Millisecond)
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricSessionPersisted)
			}
		}()
	}
	wg.Wait()
	if got := m.Value(MetricSessionPersisted); got != 8000 {
		t.Fatalf("expected 8000, got %d", got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, d := range []time.Duration{
		time.Millisecond, 7 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond,
		80 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, time.Second,
	} {
		m.Observe(MetricResolveLatency, d)
	}
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricResolveLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d = %d, want 1", i, v)
		}
	}
	if _, ok := snap.Counters[MetricResolveLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
}

func TestMetricsObserverMapsEvents(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	obs := metricsObserver{m: m}

	obs.Observe(middleware.EventMinted)
	obs.Observe(middleware.EventPersisted)
	obs.Observe(middleware.EventPersisted)
	obs.Observe(middleware.EventGateRejected)
	obs.Observe(middleware.Event(200))
	obs.ObserveResolve(2 * time.Millisecond)

	if m.Value(MetricSessionMinted) != 1 || m.Value(MetricSessionPersisted) != 2 || m.Value(MetricGateRejected) != 1 {
		t.Fatalf("unexpected counters: %+v", m.Snapshot().Counters)
	}
	if m.Snapshot().Histograms[MetricResolveLatency][0] != 1 {
		t.Fatal("resolve latency not recorded")
	}
	if len(eventMetrics) != int(middleware.EventRenewSignaled) {
		t.Fatalf("every middleware event needs a metric, mapped %d", len(eventMetrics))
	}
}
