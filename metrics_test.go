package ringd

import (
	"testing"
	"time"
)

func TestMetricsInitialState(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("TotalOps = %d, want 0", snap.TotalOps)
	}
}

func TestMetricsObserveFixed(t *testing.T) {
	m := NewMetrics()
	m.ObserveFixed(1_000_000, true)
	m.ObserveFixed(500_000, false)

	snap := m.Snapshot()
	if snap.FixedOps != 2 {
		t.Errorf("FixedOps = %d, want 2", snap.FixedOps)
	}
	if snap.FixedErrors != 1 {
		t.Errorf("FixedErrors = %d, want 1", snap.FixedErrors)
	}
}

func TestMetricsObserveFile(t *testing.T) {
	m := NewMetrics()
	m.ObserveFile(4096, 2_000_000, true, true)
	m.ObserveFile(2048, 5_000_000, false, true)
	m.ObserveFile(0, 1_000_000, false, false)

	snap := m.Snapshot()
	if snap.FileOps != 3 {
		t.Errorf("FileOps = %d, want 3", snap.FileOps)
	}
	if snap.FileCacheHits != 1 {
		t.Errorf("FileCacheHits = %d, want 1", snap.FileCacheHits)
	}
	if snap.FileCacheMisses != 2 {
		t.Errorf("FileCacheMisses = %d, want 2", snap.FileCacheMisses)
	}
	if snap.FileBytes != 4096+2048 {
		t.Errorf("FileBytes = %d, want %d", snap.FileBytes, 4096+2048)
	}
	if snap.FileErrors != 1 {
		t.Errorf("FileErrors = %d, want 1", snap.FileErrors)
	}
}

func TestMetricsObserveDynamicAndJob(t *testing.T) {
	m := NewMetrics()
	m.ObserveDynamic(128, 100_000, true)
	m.ObserveJob(256, 2_000_000, true)
	m.ObserveJob(0, 2_000_000, false)

	snap := m.Snapshot()
	if snap.DynamicOps != 1 || snap.DynamicBytes != 128 {
		t.Errorf("DynamicOps/Bytes = %d/%d, want 1/128", snap.DynamicOps, snap.DynamicBytes)
	}
	if snap.JobOps != 2 || snap.JobBytes != 256 || snap.JobErrors != 1 {
		t.Errorf("JobOps/Bytes/Errors = %d/%d/%d, want 2/256/1", snap.JobOps, snap.JobBytes, snap.JobErrors)
	}
}

func TestMetricsTotalsAndErrorRate(t *testing.T) {
	m := NewMetrics()
	m.ObserveFixed(1_000_000, true)
	m.ObserveFile(1024, 1_000_000, true, true)
	m.ObserveDynamic(512, 1_000_000, false)

	snap := m.Snapshot()
	if snap.TotalOps != 3 {
		t.Errorf("TotalOps = %d, want 3", snap.TotalOps)
	}
	if snap.TotalBytes != 1024 {
		t.Errorf("TotalBytes = %d, want 1024 (only successful byte-producing ops count)", snap.TotalBytes)
	}
	want := float64(1) / float64(3) * 100.0
	if snap.ErrorRate < want-0.1 || snap.ErrorRate > want+0.1 {
		t.Errorf("ErrorRate = %.2f, want ~%.2f", snap.ErrorRate, want)
	}
}

func TestMetricsObserveError(t *testing.T) {
	m := NewMetrics()
	m.ObserveError(string(CodeRouteNotFound))
	m.ObserveError(string(CodeRouteNotFound))
	m.ObserveError(string(CodeMalformedRequest))

	snap := m.Snapshot()
	if snap.ErrorCodes[string(CodeRouteNotFound)] != 2 {
		t.Errorf("ErrorCodes[route not found] = %d, want 2", snap.ErrorCodes[string(CodeRouteNotFound)])
	}
	if snap.ErrorCodes[string(CodeMalformedRequest)] != 1 {
		t.Errorf("ErrorCodes[malformed request] = %d, want 1", snap.ErrorCodes[string(CodeMalformedRequest)])
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()
	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*uint64(time.Millisecond) {
		t.Errorf("UptimeNs = %d, want >= 10ms", snap.UptimeNs)
	}

	m.Stop()
	frozen := m.Snapshot().UptimeNs
	time.Sleep(5 * time.Millisecond)
	if got := m.Snapshot().UptimeNs; got != frozen {
		t.Errorf("UptimeNs after Stop changed: %d -> %d", frozen, got)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.ObserveFixed(1_000_000, true)
	m.ObserveFile(1024, 1_000_000, true, true)

	if m.Snapshot().TotalOps == 0 {
		t.Fatal("expected nonzero ops before reset")
	}

	m.Reset()
	snap := m.Snapshot()
	if snap.TotalOps != 0 || snap.TotalBytes != 0 {
		t.Errorf("after Reset: TotalOps=%d TotalBytes=%d, want 0/0", snap.TotalOps, snap.TotalBytes)
	}
	if len(snap.ErrorCodes) != 0 {
		t.Errorf("after Reset: ErrorCodes = %v, want empty", snap.ErrorCodes)
	}
}

func TestMetricsHistogramPercentiles(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 50; i++ {
		m.ObserveFixed(500_000, true)
	}
	for i := 0; i < 49; i++ {
		m.ObserveFixed(5_000_000, true)
	}
	m.ObserveFixed(50_000_000, true)

	snap := m.Snapshot()
	if snap.TotalOps != 100 {
		t.Fatalf("TotalOps = %d, want 100", snap.TotalOps)
	}
	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("LatencyP50Ns = %d, want in [100us, 1ms]", snap.LatencyP50Ns)
	}
	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("LatencyP99Ns = %d, want in [5ms, 100ms]", snap.LatencyP99Ns)
	}
}
