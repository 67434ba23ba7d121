package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tneupaney/dbanalyzer/internal/core/domain"
)

func joinBenchmarks(joinMedian, srcMedian, refMedian time.Duration) []domain.BenchmarkResult {
	return []domain.BenchmarkResult{
		{
			Kind: string(KindJoin), Table: "orders", FK: "fk_orders_customer",
			Stats: domain.LatencyStats{Median: joinMedian},
		},
		{
			Kind: string(KindTableScan), Table: "orders",
			Stats: domain.LatencyStats{Median: srcMedian},
		},
		{
			Kind: string(KindTableScan), Table: "customers",
			Stats: domain.LatencyStats{Median: refMedian},
		},
	}
}

func TestJoinCostAnalyzer_SlowJoinFlagged(t *testing.T) {
	t.Parallel()

	graph := buildGraph(t, twoTableDialect())
	in := &AnalysisInput{
		Graph:      graph,
		Benchmarks: joinBenchmarks(10*time.Millisecond, 2*time.Millisecond, 2*time.Millisecond),
		Thresholds: DefaultThresholds(),
	}

	findings := NewJoinCostAnalyzer().Analyze(context.Background(), in)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, domain.CategoryPerformance, f.Category)
	assert.Equal(t, domain.SeverityWarning, f.Severity)
	assert.Equal(t, "orders.fk_orders_customer", f.Subject)
	assert.InDelta(t, 10.0, f.Evidence.LatencyMS, 0.01)
	assert.Contains(t, f.Description, "missing index on [customer_id]")
	assert.Equal(t, "CREATE INDEX idx_orders_customer_id ON orders (customer_id);", f.Remediation)
}

func TestJoinCostAnalyzer_FastJoinIgnored(t *testing.T) {
	t.Parallel()

	graph := buildGraph(t, twoTableDialect())
	in := &AnalysisInput{
		Graph:      graph,
		Benchmarks: joinBenchmarks(5*time.Millisecond, 2*time.Millisecond, 2*time.Millisecond),
		Thresholds: DefaultThresholds(),
	}

	findings := NewJoinCostAnalyzer().Analyze(context.Background(), in)

	assert.Empty(t, findings, "5ms is within 2x the 4ms component sum")
}

func TestJoinCostAnalyzer_CustomMultiplier(t *testing.T) {
	t.Parallel()

	graph := buildGraph(t, twoTableDialect())
	thresholds := DefaultThresholds()
	thresholds.JoinMultiplier = 1.2
	in := &AnalysisInput{
		Graph:      graph,
		Benchmarks: joinBenchmarks(5*time.Millisecond, 2*time.Millisecond, 2*time.Millisecond),
		Thresholds: thresholds,
	}

	findings := NewJoinCostAnalyzer().Analyze(context.Background(), in)

	require.Len(t, findings, 1)
}

func TestJoinCostAnalyzer_IndexedJoinHasNoRemediation(t *testing.T) {
	t.Parallel()

	graph := buildGraph(t, twoTableDialect())
	orders := graph.Table("orders")
	orders.Indexes = append(orders.Indexes, domain.Index{
		Name: "idx_orders_customer_id", Table: "orders", Columns: []string{"customer_id"},
	})
	in := &AnalysisInput{
		Graph:      graph,
		Benchmarks: joinBenchmarks(10*time.Millisecond, 2*time.Millisecond, 2*time.Millisecond),
		Thresholds: DefaultThresholds(),
	}

	findings := NewJoinCostAnalyzer().Analyze(context.Background(), in)

	require.Len(t, findings, 1)
	assert.NotContains(t, findings[0].Description, "missing index")
	assert.Empty(t, findings[0].Remediation)
}

func TestJoinCostAnalyzer_UnmeasuredJoinSkipped(t *testing.T) {
	t.Parallel()

	graph := buildGraph(t, twoTableDialect())
	in := &AnalysisInput{
		Graph: graph,
		Benchmarks: []domain.BenchmarkResult{
			{Kind: string(KindTableScan), Table: "orders", Stats: domain.LatencyStats{Median: time.Millisecond}},
		},
		Thresholds: DefaultThresholds(),
	}

	findings := NewJoinCostAnalyzer().Analyze(context.Background(), in)

	assert.Empty(t, findings)
}
