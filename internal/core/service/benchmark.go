package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
	"golang.org/x/sync/errgroup"
)

// MinRepetitions is the floor on timed repetitions per statement.
const MinRepetitions = 3

// DefaultRepetitions is the timed repetition count when none is configured.
const DefaultRepetitions = 5

// BenchmarkRunner executes the workload, one warm-up plus N timed
// repetitions per statement. A failing execution is retried once; a second
// failure degrades that statement to a finding instead of aborting the run.
type BenchmarkRunner struct {
	dialect     port.Dialect
	logger      *slog.Logger
	inst        port.Instrumentation
	repetitions int
	concurrency int
}

func NewBenchmarkRunner(dialect port.Dialect, logger *slog.Logger, inst port.Instrumentation, repetitions, concurrency int) *BenchmarkRunner {
	if repetitions < MinRepetitions {
		repetitions = MinRepetitions
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &BenchmarkRunner{
		dialect:     dialect,
		logger:      logger,
		inst:        inst,
		repetitions: repetitions,
		concurrency: concurrency,
	}
}

// Run benchmarks every statement on a bounded worker pool. The returned
// error is non-nil only for total connectivity loss; every other failure is
// reported through findings.
func (r *BenchmarkRunner) Run(ctx context.Context, stmts []Statement) ([]domain.BenchmarkResult, []domain.Finding, error) {
	results := make([]*domain.BenchmarkResult, len(stmts))
	findings := make([]*domain.Finding, len(stmts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, stmt := range stmts {
		g.Go(func() error {
			res, finding, err := r.benchmarkOne(gctx, stmt)
			results[i] = res
			findings[i] = finding
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return collect(results), collectFindings(findings), err
	}
	return collect(results), collectFindings(findings), nil
}

func (r *BenchmarkRunner) benchmarkOne(ctx context.Context, stmt Statement) (*domain.BenchmarkResult, *domain.Finding, error) {
	// Warm-up execution, discarded from the measured distribution.
	if _, err := r.executeWithRetry(ctx, stmt); err != nil {
		return r.degrade(ctx, stmt, err)
	}

	latencies := make([]time.Duration, 0, r.repetitions)
	for rep := 0; rep < r.repetitions; rep++ {
		elapsed, err := r.executeWithRetry(ctx, stmt)
		if err != nil {
			return r.degrade(ctx, stmt, err)
		}
		latencies = append(latencies, elapsed)
	}

	return &domain.BenchmarkResult{
		SQL:       stmt.SQL,
		Params:    stmt.Params,
		Kind:      string(stmt.Kind),
		Table:     stmt.Table,
		FK:        stmt.FK,
		Latencies: latencies,
		Stats:     domain.ComputeLatencyStats(latencies),
	}, nil, nil
}

// executeWithRetry retries one transient failure (e.g. a lock timeout)
// before giving up on the execution.
func (r *BenchmarkRunner) executeWithRetry(ctx context.Context, stmt Statement) (time.Duration, error) {
	_, elapsed, err := r.dialect.QueryTimed(ctx, stmt.SQL, stmt.Params...)
	r.observe(ctx, elapsed, err)
	if err == nil {
		return elapsed, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	_, elapsed, err = r.dialect.QueryTimed(ctx, stmt.SQL, stmt.Params...)
	r.observe(ctx, elapsed, err)
	if err != nil {
		return 0, &domain.ExecutionError{SQL: stmt.SQL, Reason: err}
	}
	return elapsed, nil
}

// degrade converts a statement failure into a performance finding, unless
// the connection itself is gone, which is the one run-fatal condition.
func (r *BenchmarkRunner) degrade(ctx context.Context, stmt Statement, err error) (*domain.BenchmarkResult, *domain.Finding, error) {
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	if pingErr := r.dialect.Ping(ctx); pingErr != nil {
		return nil, nil, domain.ErrConnectionLost
	}

	r.logger.WarnContext(ctx, "statement could not be benchmarked",
		slog.String("table", stmt.Table),
		slog.String("kind", string(stmt.Kind)),
		slog.String("error", err.Error()),
	)
	return nil, &domain.Finding{
		Category: domain.CategoryPerformance,
		Severity: domain.SeverityWarning,
		Subject:  stmt.Table,
		Description: fmt.Sprintf("could not benchmark %s statement on table %s: %v",
			stmt.Kind, stmt.Table, err),
	}, nil
}

func (r *BenchmarkRunner) observe(ctx context.Context, elapsed time.Duration, err error) {
	if err != nil {
		r.inst.IncrementStatementErrors(ctx)
		return
	}
	r.inst.IncrementStatementCount(ctx)
	r.inst.RecordStatementDuration(ctx, float64(elapsed.Microseconds())/1000.0)
}

func collect(in []*domain.BenchmarkResult) []domain.BenchmarkResult {
	var out []domain.BenchmarkResult
	for _, r := range in {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func collectFindings(in []*domain.Finding) []domain.Finding {
	var out []domain.Finding
	for _, f := range in {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}
