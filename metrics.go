package lightnvm

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics for a lightnvm device
type Metrics struct {
	// Submission counters
	ReadOps  atomic.Uint64 // Total read submissions
	WriteOps atomic.Uint64 // Total write submissions
	EraseOps atomic.Uint64 // Total erase submissions

	// Byte counters
	ReadBytes  atomic.Uint64 // Total bytes read
	WriteBytes atomic.Uint64 // Total bytes written

	// Error counters
	ReadErrors  atomic.Uint64
	WriteErrors atomic.Uint64
	EraseErrors atomic.Uint64

	// Block ownership requests
	ReserveOps    atomic.Uint64
	ReserveErrors atomic.Uint64
	ReleaseOps    atomic.Uint64
	ReleaseErrors atomic.Uint64
	MarkOps       atomic.Uint64
	MarkErrors    atomic.Uint64

	// Address list statistics
	AddrsTotal atomic.Uint64 // Cumulative addresses submitted
	BatchCount atomic.Uint64 // Number of submissions measured
	MaxBatch   atomic.Uint32 // Longest address list observed

	// Performance tracking
	TotalLatencyNs atomic.Uint64 // Cumulative operation latency in nanoseconds
	OpCount        atomic.Uint64 // Total operations (for average latency calculation)

	// Latency histogram buckets (cumulative counts)
	// Each bucket[i] contains the count of operations with latency <= LatencyBuckets[i]
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Device lifecycle
	OpenTime  atomic.Int64 // Device open timestamp (UnixNano)
	CloseTime atomic.Int64 // Device close timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.OpenTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records a read submission
func (m *Metrics) RecordRead(bytes uint64, latencyNs uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWrite records a write submission
func (m *Metrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordErase records an erase submission
func (m *Metrics) RecordErase(latencyNs uint64, success bool) {
	m.EraseOps.Add(1)
	if !success {
		m.EraseErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordReserve records a block reservation request
func (m *Metrics) RecordReserve(latencyNs uint64, success bool) {
	m.ReserveOps.Add(1)
	if !success {
		m.ReserveErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordRelease records a block release request
func (m *Metrics) RecordRelease(latencyNs uint64, success bool) {
	m.ReleaseOps.Add(1)
	if !success {
		m.ReleaseErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordMark records a block mark request
func (m *Metrics) RecordMark(success bool) {
	m.MarkOps.Add(1)
	if !success {
		m.MarkErrors.Add(1)
	}
}

// RecordBatch records the length of a submitted address list
func (m *Metrics) RecordBatch(naddrs uint32) {
	m.AddrsTotal.Add(uint64(naddrs))
	m.BatchCount.Add(1)

	for {
		current := m.MaxBatch.Load()
		if naddrs <= current {
			break
		}
		if m.MaxBatch.CompareAndSwap(current, naddrs) {
			break
		}
	}
}

// recordLatency records operation latency and updates histogram
func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	// Update histogram buckets (cumulative)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the device as closed
func (m *Metrics) Stop() {
	m.CloseTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics with derived values
type MetricsSnapshot struct {
	ReadOps  uint64 `json:"read_ops"`
	WriteOps uint64 `json:"write_ops"`
	EraseOps uint64 `json:"erase_ops"`

	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`

	ReadErrors  uint64 `json:"read_errors"`
	WriteErrors uint64 `json:"write_errors"`
	EraseErrors uint64 `json:"erase_errors"`

	ReserveOps    uint64 `json:"reserve_ops"`
	ReserveErrors uint64 `json:"reserve_errors"`
	ReleaseOps    uint64 `json:"release_ops"`
	ReleaseErrors uint64 `json:"release_errors"`
	MarkOps       uint64 `json:"mark_ops"`
	MarkErrors    uint64 `json:"mark_errors"`

	AvgBatch float64 `json:"avg_batch"`
	MaxBatch uint32  `json:"max_batch"`

	AvgLatencyNs uint64 `json:"avg_latency_ns"`
	UptimeNs     uint64 `json:"uptime_ns"`

	// Latency percentiles (in nanoseconds)
	LatencyP50Ns  uint64 `json:"latency_p50_ns"`
	LatencyP99Ns  uint64 `json:"latency_p99_ns"`
	LatencyP999Ns uint64 `json:"latency_p999_ns"`

	// Histogram bucket counts (cumulative)
	LatencyHistogram [numLatencyBuckets]uint64 `json:"latency_histogram"`

	ReadBandwidth  float64 `json:"read_bandwidth"` // Bytes per second
	WriteBandwidth float64 `json:"write_bandwidth"`
	TotalOps       uint64  `json:"total_ops"`
	TotalBytes     uint64  `json:"total_bytes"`
	ErrorRate      float64 `json:"error_rate"` // Percentage of failed submissions and requests
}

// Snapshot creates a point-in-time snapshot of metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ReadOps:       m.ReadOps.Load(),
		WriteOps:      m.WriteOps.Load(),
		EraseOps:      m.EraseOps.Load(),
		ReadBytes:     m.ReadBytes.Load(),
		WriteBytes:    m.WriteBytes.Load(),
		ReadErrors:    m.ReadErrors.Load(),
		WriteErrors:   m.WriteErrors.Load(),
		EraseErrors:   m.EraseErrors.Load(),
		ReserveOps:    m.ReserveOps.Load(),
		ReserveErrors: m.ReserveErrors.Load(),
		ReleaseOps:    m.ReleaseOps.Load(),
		ReleaseErrors: m.ReleaseErrors.Load(),
		MarkOps:       m.MarkOps.Load(),
		MarkErrors:    m.MarkErrors.Load(),
		MaxBatch:      m.MaxBatch.Load(),
	}

	snap.TotalOps = snap.ReadOps + snap.WriteOps + snap.EraseOps +
		snap.ReserveOps + snap.ReleaseOps + snap.MarkOps
	snap.TotalBytes = snap.ReadBytes + snap.WriteBytes

	addrsTotal := m.AddrsTotal.Load()
	batchCount := m.BatchCount.Load()
	if batchCount > 0 {
		snap.AvgBatch = float64(addrsTotal) / float64(batchCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	openTime := m.OpenTime.Load()
	closeTime := m.CloseTime.Load()
	if closeTime > 0 {
		snap.UptimeNs = uint64(closeTime - openTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - openTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.ReadBandwidth = float64(snap.ReadBytes) / uptimeSeconds
		snap.WriteBandwidth = float64(snap.WriteBytes) / uptimeSeconds
	}

	totalErrors := snap.ReadErrors + snap.WriteErrors + snap.EraseErrors +
		snap.ReserveErrors + snap.ReleaseErrors + snap.MarkErrors
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

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
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

	// If we get here, the latency exceeds all buckets
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters (useful for testing)
func (m *Metrics) Reset() {
	m.ReadOps.Store(0)
	m.WriteOps.Store(0)
	m.EraseOps.Store(0)
	m.ReadBytes.Store(0)
	m.WriteBytes.Store(0)
	m.ReadErrors.Store(0)
	m.WriteErrors.Store(0)
	m.EraseErrors.Store(0)
	m.ReserveOps.Store(0)
	m.ReserveErrors.Store(0)
	m.ReleaseOps.Store(0)
	m.ReleaseErrors.Store(0)
	m.MarkOps.Store(0)
	m.MarkErrors.Store(0)
	m.AddrsTotal.Store(0)
	m.BatchCount.Store(0)
	m.MaxBatch.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.OpenTime.Store(time.Now().UnixNano())
	m.CloseTime.Store(0)
}

// Observer interface allows pluggable metrics collection
type Observer interface {
	// ObserveRead is called for each read submission
	ObserveRead(bytes uint64, latencyNs uint64, success bool)

	// ObserveWrite is called for each write submission
	ObserveWrite(bytes uint64, latencyNs uint64, success bool)

	// ObserveErase is called for each erase submission
	ObserveErase(latencyNs uint64, success bool)

	// ObserveReserve is called for each block reservation
	ObserveReserve(latencyNs uint64, success bool)

	// ObserveRelease is called for each block release
	ObserveRelease(latencyNs uint64, success bool)

	// ObserveMark is called for each mark request
	ObserveMark(success bool)

	// ObserveBatch is called with the address list length of each submission
	ObserveBatch(naddrs uint32)
}

// NoOpObserver is a no-op implementation of Observer
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(uint64, uint64, bool)  {}
func (NoOpObserver) ObserveWrite(uint64, uint64, bool) {}
func (NoOpObserver) ObserveErase(uint64, bool)         {}
func (NoOpObserver) ObserveReserve(uint64, bool)       {}
func (NoOpObserver) ObserveRelease(uint64, bool)       {}
func (NoOpObserver) ObserveMark(bool)                  {}
func (NoOpObserver) ObserveBatch(uint32)               {}

// MetricsObserver implements Observer using the built-in Metrics
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveRead(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordRead(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveWrite(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordWrite(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveErase(latencyNs uint64, success bool) {
	o.metrics.RecordErase(latencyNs, success)
}

func (o *MetricsObserver) ObserveReserve(latencyNs uint64, success bool) {
	o.metrics.RecordReserve(latencyNs, success)
}

func (o *MetricsObserver) ObserveRelease(latencyNs uint64, success bool) {
	o.metrics.RecordRelease(latencyNs, success)
}

func (o *MetricsObserver) ObserveMark(success bool) {
	o.metrics.RecordMark(success)
}

func (o *MetricsObserver) ObserveBatch(naddrs uint32) {
	o.metrics.RecordBatch(naddrs)
}

// Compile-time interface check
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
