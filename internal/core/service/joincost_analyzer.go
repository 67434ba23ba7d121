package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
)

// JoinCostAnalyzer compares each foreign key's measured join latency with
// the sum of its two component table scans. A join slower than the sum by
// more than the configured multiplier is flagged, cross-referencing a
// missing FK index as the likely cause when one was detected.
type JoinCostAnalyzer struct{}

func NewJoinCostAnalyzer() *JoinCostAnalyzer { return &JoinCostAnalyzer{} }

func (a *JoinCostAnalyzer) Name() string { return "join_cost" }

func (a *JoinCostAnalyzer) Analyze(ctx context.Context, in *AnalysisInput) []domain.Finding {
	multiplier := in.Thresholds.JoinMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var findings []domain.Finding
	for _, name := range sortedTableNames(in.Graph) {
		table := in.Graph.Table(name)
		for _, fk := range sortedForeignKeys(table) {
			if f, ok := a.checkJoin(in, table, fk, multiplier); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

func (a *JoinCostAnalyzer) checkJoin(in *AnalysisInput, table *domain.Table, fk domain.ForeignKey, multiplier float64) (domain.Finding, bool) {
	join := joinBenchmark(in, fk)
	srcScan := in.BenchmarkFor(fk.Table, KindTableScan)
	refScan := in.BenchmarkFor(fk.RefTable, KindTableScan)
	if join == nil || srcScan == nil || refScan == nil {
		return domain.Finding{}, false
	}

	componentSum := srcScan.Stats.Median + refScan.Stats.Median
	if componentSum <= 0 || float64(join.Stats.Median) <= multiplier*float64(componentSum) {
		return domain.Finding{}, false
	}

	description := fmt.Sprintf(
		"join %s -> %s takes %s at the median, more than %.1fx the %s combined cost of scanning both tables",
		fk.Table, fk.RefTable,
		join.Stats.Median.Round(time.Microsecond),
		multiplier,
		componentSum.Round(time.Microsecond))
	if !table.HasCoveringIndex(fk.Columns) {
		description += fmt.Sprintf("; the missing index on %v is the likely cause", fk.Columns)
	}

	return domain.Finding{
		Category:    domain.CategoryPerformance,
		Severity:    domain.SeverityWarning,
		Subject:     fmt.Sprintf("%s.%s", fk.Table, fk.Name),
		Description: description,
		Evidence: domain.Evidence{
			LatencyMS: float64(join.Stats.Median.Microseconds()) / 1000.0,
		},
		Remediation: remediationFor(table, fk),
	}, true
}

// joinBenchmark finds the join statement generated for this FK.
func joinBenchmark(in *AnalysisInput, fk domain.ForeignKey) *domain.BenchmarkResult {
	for i := range in.Benchmarks {
		b := &in.Benchmarks[i]
		if b.Kind == string(KindJoin) && b.Table == fk.Table && b.FK == fk.Name {
			return b
		}
	}
	return nil
}

func remediationFor(table *domain.Table, fk domain.ForeignKey) string {
	if table.HasCoveringIndex(fk.Columns) {
		return ""
	}
	return domain.CreateIndexStatement(table.Name, fk.Columns)
}
