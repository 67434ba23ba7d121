package domain

import (
	"sort"
	"time"
)

// LatencyStats summarizes a sequence of observed latencies.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Median time.Duration `json:"median"`
	P95    time.Duration `json:"p95"`
}

// BenchmarkResult is one generated statement with its observed latencies,
// one per repetition after the discarded warm-up.
type BenchmarkResult struct {
	SQL       string          `json:"sql"`
	Params    []any           `json:"params,omitempty"`
	Kind      string          `json:"kind"`
	Table     string          `json:"table"`
	FK        string          `json:"fk,omitempty"`
	Latencies []time.Duration `json:"latencies"`
	Stats     LatencyStats    `json:"stats"`
}

// ComputeLatencyStats derives min, median, and p95 from raw samples.
// The input slice is not modified. Zero samples yield zero stats.
func ComputeLatencyStats(samples []time.Duration) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyStats{
		Min:    sorted[0],
		Median: sorted[len(sorted)/2],
		P95:    sorted[percentileIndex(len(sorted), 95)],
	}
}

// percentileIndex uses the nearest-rank method.
func percentileIndex(n, pct int) int {
	idx := (n*pct + 99) / 100
	if idx < 1 {
		idx = 1
	}
	return idx - 1
}
