package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordStatementDuration(ctx context.Context, ms float64)
	IncrementStatementCount(ctx context.Context)
	IncrementStatementErrors(ctx context.Context)
	RecordRunDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordStatementDuration(context.Context, float64) {}
func (NoopInstrumentation) IncrementStatementCount(context.Context)          {}
func (NoopInstrumentation) IncrementStatementErrors(context.Context)         {}
func (NoopInstrumentation) RecordRunDuration(context.Context, float64)       {}
