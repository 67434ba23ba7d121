package service

import (
	"context"
	"sync"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// Thresholds are the tunable limits analyzers judge measurements against.
type Thresholds struct {
	// TriggerOverhead escalates a trigger's measured insert overhead from
	// info to warning.
	TriggerOverhead time.Duration
	// JoinMultiplier flags a join whose latency exceeds the sum of its two
	// component scans by more than this factor.
	JoinMultiplier float64
	// SecuritySampleSize bounds the rows sampled per text column.
	SecuritySampleSize int
	// SensitiveKeywords extends domain.DefaultSensitiveKeywords.
	SensitiveKeywords []string
}

// DefaultThresholds returns the documented baseline values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TriggerOverhead:    5 * time.Millisecond,
		JoinMultiplier:     2.0,
		SecuritySampleSize: 100,
		SensitiveKeywords:  domain.DefaultSensitiveKeywords,
	}
}

// AnalysisInput is everything an analyzer consumes: the immutable graph,
// the measured benchmark results, the key samples, and the thresholds.
// Analyzers only read it, so they are safe to run concurrently.
type AnalysisInput struct {
	Graph      *domain.SchemaGraph
	Benchmarks []domain.BenchmarkResult
	Samples    map[string][]any
	Thresholds Thresholds
}

// BenchmarkFor returns the benchmark result for a statement kind on a
// table, or nil when the statement was not (or could not be) measured.
func (in *AnalysisInput) BenchmarkFor(table string, kind StatementKind) *domain.BenchmarkResult {
	for i := range in.Benchmarks {
		b := &in.Benchmarks[i]
		if b.Table == table && b.Kind == string(kind) {
			return b
		}
	}
	return nil
}

// Analyzer derives findings from the graph and measurements. Analyzers
// recover their own errors into findings; Analyze never fails the run.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, in *AnalysisInput) []domain.Finding
}

// runAnalyzers fans analyzers out in parallel and merges their findings.
// No ordering is guaranteed between analyzers; the engine sorts the merged
// list by severity afterwards.
func runAnalyzers(ctx context.Context, analyzers []Analyzer, in *AnalysisInput) []domain.Finding {
	var (
		mu       sync.Mutex
		findings []domain.Finding
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range analyzers {
		g.Go(func() error {
			fs := a.Analyze(gctx, in)
			mu.Lock()
			findings = append(findings, fs...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return findings
}
