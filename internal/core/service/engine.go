package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options tunes one analysis run.
type Options struct {
	Seed        int64
	Repetitions int
	SampleSize  int
	Concurrency int
	Thresholds  Thresholds
}

// DefaultOptions returns the documented baseline configuration.
func DefaultOptions() Options {
	return Options{
		Seed:        1,
		Repetitions: DefaultRepetitions,
		SampleSize:  20,
		Concurrency: 4,
		Thresholds:  DefaultThresholds(),
	}
}

// Engine drives a full analysis run: catalog, workload, benchmarks,
// analyzers, aggregation. A run always terminates with a report; every
// condition the engine can characterize becomes a finding rather than an
// error, and only the caller's own misuse surfaces as one.
type Engine struct {
	dialect port.Dialect
	opts    Options
	logger  *slog.Logger
	inst    port.Instrumentation
	tracer  trace.Tracer
}

func NewEngine(dialect port.Dialect, opts Options, logger *slog.Logger, inst port.Instrumentation, tracer trace.Tracer) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if opts.Repetitions < MinRepetitions {
		opts.Repetitions = DefaultRepetitions
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.SampleSize < 1 {
		opts.SampleSize = 20
	}
	return &Engine{dialect: dialect, opts: opts, logger: logger, inst: inst, tracer: tracer}
}

// Run performs the whole analysis. Cancellation and connection loss abandon
// remaining work and mark the report partial; neither raises an error.
func (e *Engine) Run(ctx context.Context) *port.Report {
	started := time.Now()
	ctx, span := e.tracer.Start(ctx, "Engine.Run",
		trace.WithAttributes(attribute.String("db.system", e.dialect.Name())),
	)
	defer span.End()

	report := &port.Report{
		Dialect:   e.dialect.Name(),
		StartedAt: started,
	}
	defer func() {
		report.Duration = time.Since(started)
		e.inst.RecordRunDuration(ctx, float64(report.Duration.Milliseconds()))
		domain.SortFindings(report.Findings)
		span.SetAttributes(
			attribute.Int("analysis.findings", len(report.Findings)),
			attribute.Bool("analysis.partial", report.Partial),
		)
	}()

	builder := NewCatalogBuilder(e.dialect, e.logger, e.opts.Concurrency)
	graph, findings, err := builder.Build(ctx)
	report.Findings = append(report.Findings, findings...)
	if err != nil {
		e.abort(ctx, report, err)
		return report
	}
	report.Tables = summarize(graph, nil)
	if e.interrupted(ctx, report) {
		return report
	}

	generator := NewWorkloadGenerator(e.dialect, e.opts.Seed)
	samples := generator.CollectKeySamples(ctx, graph, e.opts.SampleSize)
	stmts := generator.Generate(graph, samples)
	e.logger.InfoContext(ctx, "synthetic workload generated",
		slog.Int("statements", len(stmts)),
		slog.Int64("seed", e.opts.Seed),
	)
	if e.interrupted(ctx, report) {
		return report
	}

	runner := NewBenchmarkRunner(e.dialect, e.logger, e.inst, e.opts.Repetitions, e.opts.Concurrency)
	results, benchFindings, err := runner.Run(ctx, stmts)
	report.Benchmarks = results
	report.Findings = append(report.Findings, benchFindings...)
	if err != nil {
		e.abort(ctx, report, err)
		return report
	}
	if e.interrupted(ctx, report) {
		return report
	}

	input := &AnalysisInput{
		Graph:      graph,
		Benchmarks: results,
		Samples:    samples,
		Thresholds: e.opts.Thresholds,
	}
	analyzers := []Analyzer{
		NewIndexAnalyzer(e.dialect),
		NewIntegrityAnalyzer(e.dialect),
		NewSecurityAnalyzer(e.dialect),
		NewTriggerAnalyzer(e.dialect),
		NewJoinCostAnalyzer(),
	}
	report.Findings = append(report.Findings, runAnalyzers(ctx, analyzers, input)...)
	if e.interrupted(ctx, report) {
		return report
	}

	report.Tables = summarize(graph, countFindings(graph, report.Findings))
	e.fillRowCounts(ctx, report)
	return report
}

// fillRowCounts annotates table summaries with live row counts. Counts are
// informational; a failed count leaves the summary unannotated.
func (e *Engine) fillRowCounts(ctx context.Context, report *port.Report) {
	for i := range report.Tables {
		if ctx.Err() != nil {
			return
		}
		sql := "SELECT COUNT(*) AS n FROM " + e.dialect.QuoteIdentifier(report.Tables[i].Name)
		rows, _, err := e.dialect.QueryTimed(ctx, sql)
		if err != nil || len(rows) == 0 {
			continue
		}
		report.Tables[i].RowCount = toInt64(rows[0]["n"])
		report.Tables[i].HasRowCount = true
	}
}

// interrupted checks for external cancellation and, when seen, records the
// partial-analysis finding exactly once.
func (e *Engine) interrupted(ctx context.Context, report *port.Report) bool {
	if ctx.Err() == nil {
		return false
	}
	if !report.Partial {
		report.Partial = true
		report.Findings = append(report.Findings, domain.Finding{
			Category:    domain.CategoryStructural,
			Severity:    domain.SeverityWarning,
			Subject:     "run",
			Description: "analysis cancelled before completion; results are partial",
		})
		e.logger.WarnContext(ctx, "analysis cancelled, reporting partial results")
	}
	return true
}

// abort handles run-fatal failure: connectivity loss gets a top-level
// critical finding, cancellation the usual partial-analysis warning.
func (e *Engine) abort(ctx context.Context, report *port.Report, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		report.Partial = true
		report.Findings = append(report.Findings, domain.Finding{
			Category:    domain.CategoryStructural,
			Severity:    domain.SeverityWarning,
			Subject:     "run",
			Description: "analysis cancelled before completion; results are partial",
		})
		return
	}
	report.Partial = true
	report.Findings = append(report.Findings, domain.Finding{
		Category:    domain.CategoryStructural,
		Severity:    domain.SeverityCritical,
		Subject:     "run",
		Description: "database connection lost; remaining analysis was abandoned",
	})
	e.logger.ErrorContext(ctx, "run aborted", slog.String("error", err.Error()))
}

func summarize(graph *domain.SchemaGraph, findingCounts map[string]int) []port.TableSummary {
	var out []port.TableSummary
	for _, name := range sortedTableNames(graph) {
		t := graph.Table(name)
		out = append(out, port.TableSummary{
			Name:         name,
			Columns:      len(t.Columns),
			PrimaryKey:   t.PrimaryKey,
			Indexes:      len(t.Indexes),
			ForeignKeys:  len(t.ForeignKeys),
			Triggers:     len(t.Triggers),
			FindingCount: findingCounts[name],
		})
	}
	return out
}

// countFindings maps table names to the number of findings whose subject
// starts with that table.
func countFindings(graph *domain.SchemaGraph, findings []domain.Finding) map[string]int {
	counts := make(map[string]int)
	for _, f := range findings {
		for name := range graph.Tables {
			if f.Subject == name || hasTablePrefix(f.Subject, name) {
				counts[name]++
				break
			}
		}
	}
	return counts
}

func hasTablePrefix(subject, table string) bool {
	return len(subject) > len(table) && subject[:len(table)] == table && subject[len(table)] == '.'
}
