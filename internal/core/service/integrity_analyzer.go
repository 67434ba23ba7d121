package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

// IntegrityAnalyzer detects orphaned foreign key rows via anti-join counts
// and duplicate values under unique indexes and primary keys. Both checks
// tolerate composite keys.
type IntegrityAnalyzer struct {
	dialect port.Dialect
}

func NewIntegrityAnalyzer(dialect port.Dialect) *IntegrityAnalyzer {
	return &IntegrityAnalyzer{dialect: dialect}
}

func (a *IntegrityAnalyzer) Name() string { return "integrity" }

func (a *IntegrityAnalyzer) Analyze(ctx context.Context, in *AnalysisInput) []domain.Finding {
	var findings []domain.Finding
	for _, name := range sortedTableNames(in.Graph) {
		table := in.Graph.Table(name)
		for _, fk := range sortedForeignKeys(table) {
			if in.Graph.Table(fk.RefTable) == nil {
				continue // already reported as unresolved by the catalog
			}
			findings = append(findings, a.checkOrphans(ctx, fk)...)
		}
		findings = append(findings, a.checkDuplicates(ctx, table)...)
	}
	return findings
}

// checkOrphans counts source rows whose key values are all non-null yet
// have no matching referenced row.
func (a *IntegrityAnalyzer) checkOrphans(ctx context.Context, fk domain.ForeignKey) []domain.Finding {
	var notNull, match []string
	for i := range fk.Columns {
		notNull = append(notNull, fmt.Sprintf("src.%s IS NOT NULL", a.dialect.QuoteIdentifier(fk.Columns[i])))
		match = append(match, fmt.Sprintf("ref.%s = src.%s",
			a.dialect.QuoteIdentifier(fk.RefColumns[i]),
			a.dialect.QuoteIdentifier(fk.Columns[i])))
	}
	sql := fmt.Sprintf(
		"SELECT COUNT(*) AS orphans FROM %s AS src WHERE %s AND NOT EXISTS (SELECT 1 FROM %s AS ref WHERE %s)",
		a.dialect.QuoteIdentifier(fk.Table),
		strings.Join(notNull, " AND "),
		a.dialect.QuoteIdentifier(fk.RefTable),
		strings.Join(match, " AND "),
	)

	rows, _, err := a.dialect.QueryTimed(ctx, sql)
	if err != nil {
		return []domain.Finding{checkFailed("integrity", fk.Table, fmt.Sprintf("orphan check for foreign key %s failed: %v", fk.Name, err))}
	}
	if len(rows) == 0 {
		return nil
	}
	orphans := toInt64(rows[0]["orphans"])
	if orphans == 0 {
		return nil
	}
	return []domain.Finding{{
		Category: domain.CategoryIntegrity,
		Severity: domain.SeverityCritical,
		Subject:  fmt.Sprintf("%s.%s", fk.Table, strings.Join(fk.Columns, ",")),
		Description: fmt.Sprintf(
			"table %s has %d row(s) whose foreign key %v references no existing row in %s",
			fk.Table, orphans, fk.Columns, fk.RefTable),
		Evidence: domain.Evidence{RowCount: orphans},
	}}
}

// checkDuplicates runs a grouping count over each unique index and the
// primary key, flagging any group with more than one row.
func (a *IntegrityAnalyzer) checkDuplicates(ctx context.Context, table *domain.Table) []domain.Finding {
	var findings []domain.Finding
	seen := make(map[string]bool)

	keySets := make([][]string, 0, len(table.Indexes)+1)
	if len(table.PrimaryKey) > 0 {
		keySets = append(keySets, table.PrimaryKey)
	}
	for _, idx := range table.Indexes {
		if idx.Unique && len(idx.Columns) > 0 {
			keySets = append(keySets, idx.Columns)
		}
	}

	for _, cols := range keySets {
		key := strings.Join(cols, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		findings = append(findings, a.checkDuplicateSet(ctx, table.Name, cols)...)
	}
	return findings
}

func (a *IntegrityAnalyzer) checkDuplicateSet(ctx context.Context, table string, cols []string) []domain.Finding {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = a.dialect.QuoteIdentifier(c)
	}
	colList := strings.Join(quoted, ", ")
	sql := fmt.Sprintf(
		"SELECT COUNT(*) AS dups FROM (SELECT %s FROM %s GROUP BY %s HAVING COUNT(*) > 1) AS grouped",
		colList, a.dialect.QuoteIdentifier(table), colList,
	)

	rows, _, err := a.dialect.QueryTimed(ctx, sql)
	if err != nil {
		return []domain.Finding{checkFailed("integrity", table, fmt.Sprintf("duplicate check on %v failed: %v", cols, err))}
	}
	if len(rows) == 0 {
		return nil
	}
	dups := toInt64(rows[0]["dups"])
	if dups == 0 {
		return nil
	}
	return []domain.Finding{{
		Category: domain.CategoryIntegrity,
		Severity: domain.SeverityCritical,
		Subject:  fmt.Sprintf("%s.%s", table, strings.Join(cols, ",")),
		Description: fmt.Sprintf(
			"unique key %v on table %s has %d duplicated value group(s)",
			cols, table, dups),
		Evidence: domain.Evidence{RowCount: dups},
	}}
}

func checkFailed(check, subject, description string) domain.Finding {
	return domain.Finding{
		Category:    domain.CategoryStructural,
		Severity:    domain.SeverityWarning,
		Subject:     subject,
		Description: fmt.Sprintf("%s analysis incomplete: %s", check, description),
	}
}
