package goSession

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/pipeline"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricProfileFetched
	MetricProfileFailure
	MetricMenuLoaded
	MetricMenuFailure
	// MetricMenuConfirmTimeout counts menus marked loaded after the route
	// confirmation wait gave up.
	MetricMenuConfirmTimeout
	MetricMenuSet
	MetricLogout
	MetricSessionExpired
	// MetricExpirySuppressed counts 401s that arrived while a reaction was
	// already in effect.
	MetricExpirySuppressed
	MetricRequestSuccess
	MetricRequestTransportError
	MetricRequestAuthError
	MetricRequestBusinessError
	MetricRequestServerError
	MetricNoticeShown
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	// MetricRequestLatency is the only histogram.
	MetricRequestLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBoundsSeconds are the upper bounds of the latency buckets. The
// last bucket is unbounded.
var HistogramBoundsSeconds = [histBucketCount - 1]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

type metricHistogram struct {
	buckets [histBucketCount]uint64
	sumNano uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil or disabled Metrics ignores every
// call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy. Histogram buckets are
// non-cumulative; HistogramSums are in seconds.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]float64
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

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one latency sample. Only MetricRequestLatency is a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricRequestLatency {
		return
	}
	if d < 0 {
		d = 0
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&m.histograms[id].sumNano, uint64(d))
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]float64{},
		}
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]float64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		h := &m.histograms[MetricRequestLatency]
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&h.buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
		s.HistogramSums[MetricRequestLatency] = time.Duration(atomic.LoadUint64(&h.sumNano)).Seconds()
	}

	return s
}

func bucketIndex(d time.Duration) int {
	secs := d.Seconds()
	for i, bound := range HistogramBoundsSeconds {
		if secs <= bound {
			return i
		}
	}
	return histBucketCount - 1
}

// pipelineObserver feeds pipeline outcomes into Metrics and the audit trail.
type pipelineObserver struct {
	metrics      *Metrics
	onSuppressed func()
}

func (o pipelineObserver) RequestDone(kind error, d time.Duration) {
	o.metrics.Observe(MetricRequestLatency, d)
	switch {
	case kind == nil:
		o.metrics.Inc(MetricRequestSuccess)
	case errors.Is(kind, pipeline.ErrAuth):
		o.metrics.Inc(MetricRequestAuthError)
	case errors.Is(kind, pipeline.ErrBusiness):
		o.metrics.Inc(MetricRequestBusinessError)
	case errors.Is(kind, pipeline.ErrServer):
		o.metrics.Inc(MetricRequestServerError)
	default:
		o.metrics.Inc(MetricRequestTransportError)
	}
}

func (o pipelineObserver) NoticeShown() {
	o.metrics.Inc(MetricNoticeShown)
}

func (o pipelineObserver) ExpiryDetected(reacted bool) {
	if reacted {
		return
	}
	o.metrics.Inc(MetricExpirySuppressed)
	if o.onSuppressed != nil {
		o.onSuppressed()
	}
}
