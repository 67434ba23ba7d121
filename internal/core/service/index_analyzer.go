package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

// IndexAnalyzer flags foreign keys without covering indexes, redundant
// prefix indexes, and non-unique indexes over near-unique columns.
type IndexAnalyzer struct {
	dialect port.Dialect
}

func NewIndexAnalyzer(dialect port.Dialect) *IndexAnalyzer {
	return &IndexAnalyzer{dialect: dialect}
}

func (a *IndexAnalyzer) Name() string { return "index" }

func (a *IndexAnalyzer) Analyze(ctx context.Context, in *AnalysisInput) []domain.Finding {
	var findings []domain.Finding
	for _, name := range sortedTableNames(in.Graph) {
		table := in.Graph.Table(name)
		findings = append(findings, a.missingForeignKeyIndexes(table)...)
		findings = append(findings, a.redundantIndexes(table)...)
		findings = append(findings, a.nearUniqueIndexes(ctx, table)...)
		findings = append(findings, a.namingAdvice(table)...)
	}
	return findings
}

func (a *IndexAnalyzer) missingForeignKeyIndexes(table *domain.Table) []domain.Finding {
	var findings []domain.Finding
	for _, fk := range table.ForeignKeys {
		if table.HasCoveringIndex(fk.Columns) {
			continue
		}
		findings = append(findings, domain.Finding{
			Category: domain.CategoryStructural,
			Severity: domain.SeverityWarning,
			Subject:  fmt.Sprintf("%s.%s", table.Name, strings.Join(fk.Columns, ",")),
			Description: fmt.Sprintf(
				"foreign key column(s) %v on table %s have no covering index; joins and referential checks will scan",
				fk.Columns, table.Name),
			Remediation: domain.CreateIndexStatement(table.Name, fk.Columns),
		})
	}
	return findings
}

func (a *IndexAnalyzer) redundantIndexes(table *domain.Table) []domain.Finding {
	var findings []domain.Finding
	for _, pair := range domain.FindRedundantIndexes(table) {
		findings = append(findings, domain.Finding{
			Category: domain.CategoryStructural,
			Severity: domain.SeverityInfo,
			Subject:  fmt.Sprintf("%s.%s", table.Name, pair.Narrow.Name),
			Description: fmt.Sprintf(
				"index %s on %v is a strict prefix of %s on %v; scans it satisfies can use the wider index",
				pair.Narrow.Name, pair.Narrow.Columns, pair.Wide.Name, pair.Wide.Columns),
		})
	}
	return findings
}

// nearUniqueIndexes samples each single-column non-unique index and flags
// columns whose observed distinct ratio exceeds 95%: the index might be
// better declared unique.
func (a *IndexAnalyzer) nearUniqueIndexes(ctx context.Context, table *domain.Table) []domain.Finding {
	var findings []domain.Finding
	for _, idx := range table.Indexes {
		if idx.Unique || idx.Primary || len(idx.Columns) != 1 {
			continue
		}
		col := idx.Columns[0]
		sampled, distinct, err := a.sampleDistinct(ctx, table.Name, col)
		if err != nil || sampled == 0 {
			continue
		}
		if !domain.SuggestsUniqueness(distinct, sampled) {
			continue
		}
		findings = append(findings, domain.Finding{
			Category: domain.CategoryPerformance,
			Severity: domain.SeverityInfo,
			Subject:  fmt.Sprintf("%s.%s", table.Name, col),
			Description: fmt.Sprintf(
				"non-unique index %s covers column %s whose sampled values are nearly all distinct; consider a unique constraint",
				idx.Name, col),
			Evidence: domain.Evidence{
				SampleSize:  int(sampled),
				DistinctPct: 100 * domain.DistinctRatio(distinct, sampled),
				Cardinality: string(domain.ClassifyByDistinctCount(distinct, sampled)),
			},
		})
	}
	return findings
}

// sampleDistinct counts total and distinct values over a bounded sample.
func (a *IndexAnalyzer) sampleDistinct(ctx context.Context, table, col string) (sampled, distinct int64, err error) {
	sql := fmt.Sprintf(
		"SELECT COUNT(*) AS sampled, COUNT(DISTINCT %s) AS dist FROM (SELECT %s FROM %s WHERE %s IS NOT NULL LIMIT 1000) AS s",
		a.dialect.QuoteIdentifier(col),
		a.dialect.QuoteIdentifier(col),
		a.dialect.QuoteIdentifier(table),
		a.dialect.QuoteIdentifier(col),
	)
	rows, _, err := a.dialect.QueryTimed(ctx, sql)
	if err != nil || len(rows) == 0 {
		return 0, 0, err
	}
	return toInt64(rows[0]["sampled"]), toInt64(rows[0]["dist"]), nil
}

// namingAdvice surfaces unindexed columns whose name or type suggests they
// are filtered or joined on frequently.
func (a *IndexAnalyzer) namingAdvice(table *domain.Table) []domain.Finding {
	var findings []domain.Finding
	for _, advice := range domain.SuggestColumnIndexes(table) {
		findings = append(findings, domain.Finding{
			Category: domain.CategoryStructural,
			Severity: domain.SeverityInfo,
			Subject:  fmt.Sprintf("%s.%s", table.Name, advice.Column),
			Description: fmt.Sprintf(
				"column %s on table %s is unindexed but looks like a frequent filter target (%s)",
				advice.Column, table.Name, advice.Reason),
			Remediation: domain.CreateIndexStatement(table.Name, []string{advice.Column}),
		})
	}
	return findings
}

// toInt64 normalizes the numeric types the drivers hand back for counts.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		var out int64
		for _, c := range n {
			if c < '0' || c > '9' {
				return out
			}
			out = out*10 + int64(c-'0')
		}
		return out
	default:
		return 0
	}
}
