package lightnvm

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 initial ops, got %d", snap.TotalOps)
	}

	m.RecordRead(16384, 1000000, true)  // one page stripe, 1ms
	m.RecordWrite(16384, 2000000, true) // one page stripe, 2ms
	m.RecordRead(16384, 500000, false)  // failed read

	snap = m.Snapshot()

	if snap.ReadOps != 2 {
		t.Errorf("Expected 2 read ops, got %d", snap.ReadOps)
	}
	if snap.WriteOps != 1 {
		t.Errorf("Expected 1 write op, got %d", snap.WriteOps)
	}

	// Only successful submissions move bytes
	if snap.ReadBytes != 16384 {
		t.Errorf("Expected 16384 read bytes, got %d", snap.ReadBytes)
	}
	if snap.WriteBytes != 16384 {
		t.Errorf("Expected 16384 write bytes, got %d", snap.WriteBytes)
	}

	if snap.ReadErrors != 1 {
		t.Errorf("Expected 1 read error, got %d", snap.ReadErrors)
	}
	if snap.WriteErrors != 0 {
		t.Errorf("Expected 0 write errors, got %d", snap.WriteErrors)
	}

	expectedErrorRate := float64(1) / float64(3) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("Expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsBlockRequests(t *testing.T) {
	m := NewMetrics()

	m.RecordReserve(1000, true)
	m.RecordReserve(1000, false)
	m.RecordRelease(1000, true)
	m.RecordErase(3000, true)
	m.RecordMark(false)

	snap := m.Snapshot()

	if snap.ReserveOps != 2 || snap.ReserveErrors != 1 {
		t.Errorf("Expected 2 reserves with 1 error, got %d/%d", snap.ReserveOps, snap.ReserveErrors)
	}
	if snap.ReleaseOps != 1 || snap.ReleaseErrors != 0 {
		t.Errorf("Expected 1 release with 0 errors, got %d/%d", snap.ReleaseOps, snap.ReleaseErrors)
	}
	if snap.EraseOps != 1 {
		t.Errorf("Expected 1 erase op, got %d", snap.EraseOps)
	}
	if snap.MarkOps != 1 || snap.MarkErrors != 1 {
		t.Errorf("Expected 1 failed mark, got %d/%d", snap.MarkOps, snap.MarkErrors)
	}
	if snap.TotalOps != 5 {
		t.Errorf("Expected 5 total ops, got %d", snap.TotalOps)
	}
}

func TestMetricsBatch(t *testing.T) {
	m := NewMetrics()

	m.RecordBatch(8)
	m.RecordBatch(16)
	m.RecordBatch(4)

	snap := m.Snapshot()

	if snap.MaxBatch != 16 {
		t.Errorf("Expected max batch 16, got %d", snap.MaxBatch)
	}

	expectedAvg := float64(8+16+4) / 3.0
	if snap.AvgBatch < expectedAvg-0.1 || snap.AvgBatch > expectedAvg+0.1 {
		t.Errorf("Expected avg batch %.1f, got %.1f", expectedAvg, snap.AvgBatch)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordRead(1024, 1000000, true)  // 1ms
	m.RecordWrite(1024, 2000000, true) // 2ms

	snap := m.Snapshot()

	expectedAvgNs := uint64(1500000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1000000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1000000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordRead(1024, 1000000, true)
	m.RecordWrite(2048, 2000000, true)
	m.RecordBatch(10)

	snap := m.Snapshot()
	if snap.TotalOps == 0 {
		t.Error("Expected some operations before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 ops after reset, got %d", snap.TotalOps)
	}
	if snap.TotalBytes != 0 {
		t.Errorf("Expected 0 bytes after reset, got %d", snap.TotalBytes)
	}
	if snap.MaxBatch != 0 {
		t.Errorf("Expected 0 max batch after reset, got %d", snap.MaxBatch)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveRead(1024, 1000000, true)
	observer.ObserveWrite(1024, 1000000, true)
	observer.ObserveErase(1000000, true)
	observer.ObserveReserve(1000, true)
	observer.ObserveRelease(1000, true)
	observer.ObserveMark(true)
	observer.ObserveBatch(10)

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveRead(1024, 1000000, true)
	metricsObserver.ObserveWrite(2048, 2000000, true)
	metricsObserver.ObserveReserve(1000, true)

	snap := m.Snapshot()
	if snap.ReadOps != 1 {
		t.Errorf("Expected 1 read op from observer, got %d", snap.ReadOps)
	}
	if snap.WriteOps != 1 {
		t.Errorf("Expected 1 write op from observer, got %d", snap.WriteOps)
	}
	if snap.ReserveOps != 1 {
		t.Errorf("Expected 1 reserve from observer, got %d", snap.ReserveOps)
	}
	if snap.WriteBytes != 2048 {
		t.Errorf("Expected 2048 write bytes from observer, got %d", snap.WriteBytes)
	}
}

func TestMetricsBandwidth(t *testing.T) {
	m := NewMetrics()

	openTime := time.Now()
	m.OpenTime.Store(openTime.UnixNano())

	m.RecordRead(1024, 1000000, true)
	m.RecordWrite(2048, 2000000, true)

	m.CloseTime.Store(openTime.Add(1 * time.Second).UnixNano())

	snap := m.Snapshot()

	if snap.ReadBandwidth < 1000 || snap.ReadBandwidth > 1050 {
		t.Errorf("Expected ReadBandwidth ~1024, got %.2f", snap.ReadBandwidth)
	}
	if snap.WriteBandwidth < 2000 || snap.WriteBandwidth > 2100 {
		t.Errorf("Expected WriteBandwidth ~2048, got %.2f", snap.WriteBandwidth)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordRead(1024, 500_000, true) // 500us
	}
	for i := 0; i < 49; i++ {
		m.RecordWrite(1024, 5_000_000, true) // 5ms
	}
	m.RecordWrite(1024, 50_000_000, true) // 50ms

	snap := m.Snapshot()

	if snap.TotalOps != 100 {
		t.Errorf("Expected 100 total ops, got %d", snap.TotalOps)
	}

	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}

	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
