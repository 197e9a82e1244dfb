package pipeline

import (
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(time.Duration(ms) * time.Millisecond)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewStats(10 * time.Millisecond)
	stats.Record(100 * time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	if snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record(200 * time.Millisecond)
	snap = stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(-10 * time.Millisecond)
	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsEmptySnapshot(t *testing.T) {
	if snap := NewStats(0).Snapshot(); snap.Count != 0 || snap.P99Ms != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestStageStats(t *testing.T) {
	stats := NewStageStats(time.Hour)
	stats.Record("parse", 100*time.Millisecond)
	stats.Record("parse", 300*time.Millisecond)
	stats.Record("submit", 50*time.Millisecond)

	if snap := stats.Stage("parse"); snap.Count != 2 || snap.AvgMs != 200 {
		t.Fatalf("expected 2 parse samples averaging 200ms, got %+v", snap)
	}
	if snap := stats.Stage("submit"); snap.Count != 1 || snap.MaxMs != 50 {
		t.Fatalf("expected 1 submit sample of 50ms, got %+v", snap)
	}
	if snap := stats.Stage("route"); snap.Count != 0 {
		t.Fatalf("expected empty snapshot for unseen stage, got %+v", snap)
	}

	all := stats.Snapshot()
	if len(all) != 2 || all["parse"].Count != 2 || all["submit"].Count != 1 {
		t.Fatalf("expected parse and submit stages, got %+v", all)
	}
}
