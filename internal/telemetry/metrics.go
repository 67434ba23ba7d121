package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	StatementCount    metric.Int64Counter
	StatementDuration metric.Float64Histogram
	StatementErrors   metric.Int64Counter
	RunDuration       metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
// Returns nil-safe instruments: if creation fails, noop instruments are used.
func NewInstruments() *Instruments {
	meter := otel.Meter(scopeName)
	return newInstrumentsFromMeter(meter)
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	meter := noop.NewMeterProvider().Meter(scopeName)
	return newInstrumentsFromMeter(meter)
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	statementCount, _ := meter.Int64Counter("dbanalyzer.statement.count",
		metric.WithDescription("Total number of benchmark statements executed"),
	)
	statementDuration, _ := meter.Float64Histogram("dbanalyzer.statement.duration",
		metric.WithDescription("Benchmark statement execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	statementErrors, _ := meter.Int64Counter("dbanalyzer.statement.errors",
		metric.WithDescription("Total number of failed benchmark statements"),
	)
	runDuration, _ := meter.Float64Histogram("dbanalyzer.run.duration",
		metric.WithDescription("Full analysis run duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		StatementCount:    statementCount,
		StatementDuration: statementDuration,
		StatementErrors:   statementErrors,
		RunDuration:       runDuration,
	}
}

func (i *Instruments) RecordStatementDuration(ctx context.Context, ms float64) {
	i.StatementDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementStatementCount(ctx context.Context) {
	i.StatementCount.Add(ctx, 1)
}

func (i *Instruments) IncrementStatementErrors(ctx context.Context) {
	i.StatementErrors.Add(ctx, 1)
}

func (i *Instruments) RecordRunDuration(ctx context.Context, ms float64) {
	i.RunDuration.Record(ctx, ms)
}
