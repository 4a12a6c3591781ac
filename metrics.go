package ringd

import (
	"sync"
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering 1us to 10s with logarithmic spacing — the same bucket
// layout this was adapted from, since the request latencies a reactor
// serves span the same range a block I/O queue does.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks per-route-kind counters and a shared latency histogram
// for a running server.
type Metrics struct {
	FixedOps   atomic.Uint64
	FileOps    atomic.Uint64
	DynamicOps atomic.Uint64
	JobOps     atomic.Uint64

	FileBytes    atomic.Uint64
	DynamicBytes atomic.Uint64
	JobBytes     atomic.Uint64

	FixedErrors   atomic.Uint64
	FileErrors    atomic.Uint64
	DynamicErrors atomic.Uint64
	JobErrors     atomic.Uint64

	FileCacheHits   atomic.Uint64
	FileCacheMisses atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64

	errMu    sync.Mutex
	errCodes map[string]uint64
}

// NewMetrics returns a ready-to-use Metrics with its start time set now.
func NewMetrics() *Metrics {
	m := &Metrics{errCodes: make(map[string]uint64)}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// ObserveFixed implements interfaces.Observer for RouteFixed completions.
func (m *Metrics) ObserveFixed(latencyNs uint64, success bool) {
	m.FixedOps.Add(1)
	if !success {
		m.FixedErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveFile implements interfaces.Observer for RouteFile completions.
func (m *Metrics) ObserveFile(bytes, latencyNs uint64, cacheHit, success bool) {
	m.FileOps.Add(1)
	if cacheHit {
		m.FileCacheHits.Add(1)
	} else {
		m.FileCacheMisses.Add(1)
	}
	if success {
		m.FileBytes.Add(bytes)
	} else {
		m.FileErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveDynamic implements interfaces.Observer for RouteInline completions.
func (m *Metrics) ObserveDynamic(bytes, latencyNs uint64, success bool) {
	m.DynamicOps.Add(1)
	if success {
		m.DynamicBytes.Add(bytes)
	} else {
		m.DynamicErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveJob implements interfaces.Observer for RouteJob completions.
func (m *Metrics) ObserveJob(bytes, latencyNs uint64, success bool) {
	m.JobOps.Add(1)
	if success {
		m.JobBytes.Add(bytes)
	} else {
		m.JobErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveError implements interfaces.Observer, tallying occurrences by
// error code string (malformed_request, unsupported_verb, ...).
func (m *Metrics) ObserveError(code string) {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	m.errCodes[code]++
}

// Stop marks the metrics instance as stopped, freezing uptime math.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics suitable for
// logging or exposing over an admin endpoint.
type MetricsSnapshot struct {
	FixedOps, FileOps, DynamicOps, JobOps       uint64
	FileBytes, DynamicBytes, JobBytes            uint64
	FixedErrors, FileErrors, DynamicErrors, JobErrors uint64
	FileCacheHits, FileCacheMisses               uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns, LatencyP99Ns, LatencyP999Ns uint64
	LatencyHistogram                          [numLatencyBuckets]uint64

	TotalOps   uint64
	TotalBytes uint64
	ErrorRate  float64

	ErrorCodes map[string]uint64
}

// Snapshot computes a MetricsSnapshot from the live counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		FixedOps:       m.FixedOps.Load(),
		FileOps:        m.FileOps.Load(),
		DynamicOps:     m.DynamicOps.Load(),
		JobOps:         m.JobOps.Load(),
		FileBytes:      m.FileBytes.Load(),
		DynamicBytes:   m.DynamicBytes.Load(),
		JobBytes:       m.JobBytes.Load(),
		FixedErrors:    m.FixedErrors.Load(),
		FileErrors:     m.FileErrors.Load(),
		DynamicErrors:  m.DynamicErrors.Load(),
		JobErrors:      m.JobErrors.Load(),
		FileCacheHits:  m.FileCacheHits.Load(),
		FileCacheMisses: m.FileCacheMisses.Load(),
	}

	snap.TotalOps = snap.FixedOps + snap.FileOps + snap.DynamicOps + snap.JobOps
	snap.TotalBytes = snap.FileBytes + snap.DynamicBytes + snap.JobBytes

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	totalErrors := snap.FixedErrors + snap.FileErrors + snap.DynamicErrors + snap.JobErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}
	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	m.errMu.Lock()
	snap.ErrorCodes = make(map[string]uint64, len(m.errCodes))
	for k, v := range m.errCodes {
		snap.ErrorCodes[k] = v
	}
	m.errMu.Unlock()

	return snap
}

func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}
	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes every counter and restarts the uptime clock. Useful in
// tests that share a long-lived Metrics across cases.
func (m *Metrics) Reset() {
	m.FixedOps.Store(0)
	m.FileOps.Store(0)
	m.DynamicOps.Store(0)
	m.JobOps.Store(0)
	m.FileBytes.Store(0)
	m.DynamicBytes.Store(0)
	m.JobBytes.Store(0)
	m.FixedErrors.Store(0)
	m.FileErrors.Store(0)
	m.DynamicErrors.Store(0)
	m.JobErrors.Store(0)
	m.FileCacheHits.Store(0)
	m.FileCacheMisses.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.errMu.Lock()
	m.errCodes = make(map[string]uint64)
	m.errMu.Unlock()
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// compile-time check: Metrics satisfies internal/interfaces.Observer
// structurally (method sets match; not imported here to keep the
// public package independent of internal packages' churn).
var (
	_ = (*Metrics)(nil).ObserveFixed
	_ = (*Metrics)(nil).ObserveFile
	_ = (*Metrics)(nil).ObserveDynamic
	_ = (*Metrics)(nil).ObserveJob
	_ = (*Metrics)(nil).ObserveError
)
