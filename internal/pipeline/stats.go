package pipeline

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// StatsSnapshot is a point-in-time aggregate of latencies in one window.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Stats tracks recent latencies within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

func (s *Stats) Record(d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: ms,
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}

// StageStats keeps one rolling latency window per pipeline stage.
type StageStats struct {
	mu     sync.Mutex
	maxAge time.Duration
	stages map[string]*Stats
}

func NewStageStats(maxAge time.Duration) *StageStats {
	return &StageStats{maxAge: maxAge, stages: make(map[string]*Stats)}
}

// Record adds a latency sample for stage.
func (s *StageStats) Record(stage string, d time.Duration) {
	s.mu.Lock()
	st, ok := s.stages[stage]
	if !ok {
		st = NewStats(s.maxAge)
		s.stages[stage] = st
	}
	s.mu.Unlock()
	st.Record(d)
}

// Stage returns the aggregate for one stage; unknown stages are empty.
func (s *StageStats) Stage(stage string) StatsSnapshot {
	s.mu.Lock()
	st, ok := s.stages[stage]
	s.mu.Unlock()
	if !ok {
		return StatsSnapshot{}
	}
	return st.Snapshot()
}

// Snapshot returns the aggregate of every stage seen so far.
func (s *StageStats) Snapshot() map[string]StatsSnapshot {
	s.mu.Lock()
	stages := make(map[string]*Stats, len(s.stages))
	for name, st := range s.stages {
		stages[name] = st
	}
	s.mu.Unlock()

	out := make(map[string]StatsSnapshot, len(stages))
	for name, st := range stages {
		out[name] = st.Snapshot()
	}
	return out
}
