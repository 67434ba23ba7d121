package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

// probeRows is the number of synthetic rows inserted per measurement batch.
const probeRows = 10

// scratchSeq makes scratch table names unique per invocation so concurrent
// probes never collide.
var scratchSeq atomic.Int64

// TriggerAnalyzer measures insert overhead caused by triggers: timed
// inserts into the real table versus an identically shaped scratch table
// without triggers. It is the engine's only write path; every inserted row
// is rolled back through the probe's transaction before the analyzer
// returns, success or failure.
type TriggerAnalyzer struct {
	dialect port.Dialect
}

func NewTriggerAnalyzer(dialect port.Dialect) *TriggerAnalyzer {
	return &TriggerAnalyzer{dialect: dialect}
}

func (a *TriggerAnalyzer) Name() string { return "trigger_overhead" }

func (a *TriggerAnalyzer) Analyze(ctx context.Context, in *AnalysisInput) []domain.Finding {
	var findings []domain.Finding
	for _, name := range sortedTableNames(in.Graph) {
		table := in.Graph.Table(name)
		triggers := table.InsertTriggers()
		if len(triggers) == 0 {
			continue
		}
		findings = append(findings, a.measureTable(ctx, in, table, triggers)...)
	}
	return findings
}

func (a *TriggerAnalyzer) measureTable(ctx context.Context, in *AnalysisInput, table *domain.Table, triggers []domain.Trigger) []domain.Finding {
	cols := insertColumns(table)
	if len(cols) == 0 {
		return nil
	}

	probe, err := a.dialect.BeginProbe(ctx)
	if err != nil {
		return []domain.Finding{checkFailed("trigger overhead", table.Name, fmt.Sprintf("could not open write probe: %v", err))}
	}

	findings, measureErr := a.measureWithProbe(ctx, in, probe, table, cols)

	// Close rolls the probe transaction back; this is the compensating
	// cleanup for every synthetic row, taken on both success and failure.
	if closeErr := probe.Close(); closeErr != nil {
		cleanup := &domain.CleanupError{Table: table.Name, Reason: closeErr}
		findings = append(findings, domain.Finding{
			Category:    domain.CategoryIntegrity,
			Severity:    domain.SeverityCritical,
			Subject:     table.Name,
			Description: fmt.Sprintf("synthetic probe rows may remain: %v", cleanup),
		})
	}
	if measureErr != nil {
		findings = append(findings, checkFailed("trigger overhead", table.Name, measureErr.Error()))
	}
	return findings
}

func (a *TriggerAnalyzer) measureWithProbe(ctx context.Context, in *AnalysisInput, probe port.WriteProbe, table *domain.Table, cols []domain.Column) ([]domain.Finding, error) {
	scratch := fmt.Sprintf("dbanalyzer_scratch_%d", scratchSeq.Add(1))
	if _, err := probe.Exec(ctx, a.scratchDDL(scratch, cols)); err != nil {
		return nil, fmt.Errorf("creating scratch table: %w", err)
	}

	withTriggers, err := a.insertBatch(ctx, in, probe, table, table.Name, cols, 0)
	if err != nil {
		return nil, fmt.Errorf("probing table %s: %w", table.Name, err)
	}
	withoutTriggers, err := a.insertBatch(ctx, in, probe, table, scratch, cols, probeRows)
	if err != nil {
		return nil, fmt.Errorf("probing scratch table: %w", err)
	}

	overhead := (withTriggers - withoutTriggers) / probeRows
	if overhead < 0 {
		overhead = 0
	}
	severity := domain.SeverityInfo
	if overhead > in.Thresholds.TriggerOverhead {
		severity = domain.SeverityWarning
	}

	return []domain.Finding{{
		Category: domain.CategoryPerformance,
		Severity: severity,
		Subject:  table.Name,
		Description: fmt.Sprintf(
			"insert triggers on table %s add ~%dµs per inserted row",
			table.Name, overhead.Microseconds()),
		Evidence: domain.Evidence{OverheadUS: overhead.Microseconds(), SampleSize: probeRows},
	}}, nil
}

// insertBatch inserts probeRows synthetic rows and returns the summed
// execution time. seqBase keeps the two batches' synthetic values disjoint.
func (a *TriggerAnalyzer) insertBatch(ctx context.Context, in *AnalysisInput, probe port.WriteProbe, table *domain.Table, target string, cols []domain.Column, seqBase int) (time.Duration, error) {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = a.dialect.QuoteIdentifier(c.Name)
		marks[i] = "?"
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		a.dialect.QuoteIdentifier(target),
		strings.Join(names, ", "),
		strings.Join(marks, ", "))

	var total time.Duration
	for row := 0; row < probeRows; row++ {
		params := make([]any, len(cols))
		for i, c := range cols {
			params[i] = a.syntheticFor(in, table, c, seqBase+row)
		}
		elapsed, err := probe.Exec(ctx, sql, params...)
		if err != nil {
			return 0, err
		}
		total += elapsed
	}
	return total, nil
}

// syntheticFor produces a plausible value for one column, preferring a
// sampled parent key for FK columns so constraints hold during the probe.
func (a *TriggerAnalyzer) syntheticFor(in *AnalysisInput, table *domain.Table, col domain.Column, seq int) any {
	for _, fk := range table.ForeignKeys {
		for i, c := range fk.Columns {
			if c != col.Name || len(fk.RefColumns) != 1 || i != 0 {
				continue
			}
			if vals := in.Samples[fk.RefTable]; len(vals) > 0 {
				return vals[seq%len(vals)]
			}
		}
	}
	return a.dialect.SyntheticValue(col.Semantic, 900000+seq)
}

// scratchDDL renders the scratch table with an identical column shape but
// no triggers, keys, or defaults.
func (a *TriggerAnalyzer) scratchDDL(name string, cols []domain.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", a.dialect.QuoteIdentifier(c.Name), a.dialect.TypeName(c.Semantic))
	}
	return fmt.Sprintf("CREATE TEMPORARY TABLE %s (%s)",
		a.dialect.QuoteIdentifier(name), strings.Join(defs, ", "))
}

// insertColumns picks the columns the probe binds values for. A
// single-column integer primary key is assumed auto-generated and skipped.
func insertColumns(table *domain.Table) []domain.Column {
	skipPK := ""
	if len(table.PrimaryKey) == 1 {
		if c := table.Column(table.PrimaryKey[0]); c != nil && c.Semantic == domain.TypeInteger {
			skipPK = c.Name
		}
	}
	var cols []domain.Column
	for _, c := range table.Columns {
		if c.Name == skipPK {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}
