package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	// MetricSessionStarted counts native sessions started by the fixation guard.
	MetricSessionStarted MetricID = iota
	// MetricSessionStartFailed counts swallowed native start failures.
	MetricSessionStartFailed
	// MetricSessionResumed counts handlers that found an already started native session.
	MetricSessionResumed
	// MetricFixationDetected counts tracking key mismatches.
	MetricFixationDetected
	// MetricSessionRegenerated counts successful native id regenerations.
	MetricSessionRegenerated
	// MetricSessionDestroyed counts handler destroys.
	MetricSessionDestroyed
	// MetricEntryExpired counts entries lazily removed by Get.
	MetricEntryExpired
	// MetricCommitSuccess counts successful native commits.
	MetricCommitSuccess
	// MetricCommitFailure counts failed native commits.
	MetricCommitFailure
	// MetricCommitLatency is the commit latency histogram.
	MetricCommitLatency
	metricIDCount
)

// MetricCount is the number of defined metric ids.
const MetricCount = int(metricIDCount)

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

// Metrics is a lock-free counter set. The zero value and a nil pointer are safe
// and record nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] honoring cfg.
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

// Observe records d into the histogram for id. Only [MetricCommitLatency] has buckets.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricCommitLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, plus the commit histogram when latency is enabled.
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
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricCommitLatency].buckets[i])
		}
		s.Histograms[MetricCommitLatency] = buckets
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
