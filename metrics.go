package goSession

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/middleware"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	MetricSessionMinted MetricID = iota
	MetricSessionResolved
	MetricSessionLookupMiss
	MetricSessionLookupError
	MetricSessionRenewed
	MetricSessionPersisted
	MetricSessionPersistSkipped
	MetricSessionPersistFailed
	MetricSessionTouched
	MetricSessionDestroyed
	MetricGateRejected
	MetricDirectBearer
	MetricRenewSignaled
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLogout
	MetricUserRenewed
	MetricSignUpSuccess
	MetricSignUpDuplicate
	MetricSessionsRevoked
	// MetricResolveLatency is the only histogram: time spent resolving or
	// minting a session at request start.
	MetricResolveLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil or disabled Metrics ignores updates.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
// Histogram buckets are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricResolveLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current values. Disabled metrics produce empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricResolveLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricResolveLatency].buckets[i])
		}
		s.Histograms[MetricResolveLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}

var eventMetrics = map[middleware.Event]MetricID{
	middleware.EventMinted:         MetricSessionMinted,
	middleware.EventResolved:       MetricSessionResolved,
	middleware.EventLookupMiss:     MetricSessionLookupMiss,
	middleware.EventLookupError:    MetricSessionLookupError,
	middleware.EventRenewed:        MetricSessionRenewed,
	middleware.EventPersisted:      MetricSessionPersisted,
	middleware.EventPersistSkipped: MetricSessionPersistSkipped,
	middleware.EventPersistFailed:  MetricSessionPersistFailed,
	middleware.EventTouched:        MetricSessionTouched,
	middleware.EventDestroyed:      MetricSessionDestroyed,
	middleware.EventGateRejected:   MetricGateRejected,
	middleware.EventDirectBearer:   MetricDirectBearer,
	middleware.EventRenewSignaled:  MetricRenewSignaled,
}

// metricsObserver feeds middleware lifecycle events into Metrics.
type metricsObserver struct {
	m *Metrics
}

func (o metricsObserver) Observe(ev middleware.Event) {
	if id, ok := eventMetrics[ev]; ok {
		o.m.Inc(id)
	}
}

func (o metricsObserver) ObserveResolve(d time.Duration) {
	o.m.Observe(MetricResolveLatency, d)
}
