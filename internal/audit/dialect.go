package audit

import (
	"context"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

// Dialect decorates another dialect with statement auditing. Discovery,
// query, and probe statements are all recorded; parameter values pass
// through redaction first.
type Dialect struct {
	inner   port.Dialect
	auditor port.StatementAuditor
}

func NewDialect(inner port.Dialect, auditor port.StatementAuditor) *Dialect {
	return &Dialect{inner: inner, auditor: auditor}
}

func (d *Dialect) Name() string { return d.inner.Name() }

func (d *Dialect) DiscoverTables(ctx context.Context) ([]string, error) {
	names, err := d.inner.DiscoverTables(ctx)
	d.auditor.Record(ctx, port.AuditEntry{Phase: "discover", SQL: "list tables", Err: err})
	return names, err
}

func (d *Dialect) DiscoverColumns(ctx context.Context, table string) (port.TableMetadata, error) {
	meta, err := d.inner.DiscoverColumns(ctx, table)
	d.auditor.Record(ctx, port.AuditEntry{Phase: "discover", SQL: "columns of " + table, Err: err})
	return meta, err
}

func (d *Dialect) DiscoverForeignKeys(ctx context.Context, table string) ([]port.ForeignKeyMetadata, error) {
	fks, err := d.inner.DiscoverForeignKeys(ctx, table)
	d.auditor.Record(ctx, port.AuditEntry{Phase: "discover", SQL: "foreign keys of " + table, Err: err})
	return fks, err
}

func (d *Dialect) DiscoverIndexes(ctx context.Context, table string) ([]port.IndexMetadata, error) {
	idxs, err := d.inner.DiscoverIndexes(ctx, table)
	d.auditor.Record(ctx, port.AuditEntry{Phase: "discover", SQL: "indexes of " + table, Err: err})
	return idxs, err
}

func (d *Dialect) DiscoverTriggers(ctx context.Context, table string) ([]port.TriggerMetadata, error) {
	trs, err := d.inner.DiscoverTriggers(ctx, table)
	d.auditor.Record(ctx, port.AuditEntry{Phase: "discover", SQL: "triggers of " + table, Err: err})
	return trs, err
}

func (d *Dialect) QueryTimed(ctx context.Context, sql string, params ...any) ([]map[string]any, time.Duration, error) {
	rows, elapsed, err := d.inner.QueryTimed(ctx, sql, params...)
	d.auditor.Record(ctx, port.AuditEntry{
		Phase:        "query",
		SQL:          sql,
		Params:       domain.RedactParams(params),
		Fingerprints: domain.FingerprintParams(params),
		DurationMS:   elapsed.Milliseconds(),
		Err:          err,
	})
	return rows, elapsed, err
}

func (d *Dialect) BeginProbe(ctx context.Context) (port.WriteProbe, error) {
	probe, err := d.inner.BeginProbe(ctx)
	if err != nil {
		d.auditor.Record(ctx, port.AuditEntry{Phase: "probe", SQL: "begin probe", Err: err})
		return nil, err
	}
	return &auditedProbe{inner: probe, auditor: d.auditor}, nil
}

func (d *Dialect) QuoteIdentifier(name string) string { return d.inner.QuoteIdentifier(name) }

func (d *Dialect) SyntheticValue(sem domain.SemanticType, seq int) any {
	return d.inner.SyntheticValue(sem, seq)
}

func (d *Dialect) TypeName(sem domain.SemanticType) string { return d.inner.TypeName(sem) }

func (d *Dialect) Ping(ctx context.Context) error { return d.inner.Ping(ctx) }

type auditedProbe struct {
	inner   port.WriteProbe
	auditor port.StatementAuditor
}

func (p *auditedProbe) Exec(ctx context.Context, sql string, params ...any) (time.Duration, error) {
	elapsed, err := p.inner.Exec(ctx, sql, params...)
	p.auditor.Record(ctx, port.AuditEntry{
		Phase:        "probe",
		SQL:          sql,
		Params:       domain.RedactParams(params),
		Fingerprints: domain.FingerprintParams(params),
		DurationMS:   elapsed.Milliseconds(),
		Err:          err,
	})
	return elapsed, err
}

func (p *auditedProbe) Close() error { return p.inner.Close() }
