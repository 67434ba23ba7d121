package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

// SecurityAnalyzer applies a fixed set of sensitive-data heuristics to text
// columns: a column-name keyword match and, over a bounded sample of
// non-null values, email, SSN, and Luhn-valid card patterns. Findings name
// the matched rule and the column, never a sampled value.
type SecurityAnalyzer struct {
	dialect port.Dialect
}

func NewSecurityAnalyzer(dialect port.Dialect) *SecurityAnalyzer {
	return &SecurityAnalyzer{dialect: dialect}
}

func (a *SecurityAnalyzer) Name() string { return "security" }

func (a *SecurityAnalyzer) Analyze(ctx context.Context, in *AnalysisInput) []domain.Finding {
	keywords := in.Thresholds.SensitiveKeywords
	if len(keywords) == 0 {
		keywords = domain.DefaultSensitiveKeywords
	}
	sampleSize := in.Thresholds.SecuritySampleSize
	if sampleSize <= 0 {
		sampleSize = 100
	}

	var findings []domain.Finding
	for _, name := range sortedTableNames(in.Graph) {
		table := in.Graph.Table(name)
		for _, col := range table.Columns {
			if col.Semantic != domain.TypeText {
				continue
			}
			findings = append(findings, a.checkColumn(ctx, table.Name, col.Name, keywords, sampleSize)...)
		}
	}
	return findings
}

func (a *SecurityAnalyzer) checkColumn(ctx context.Context, table, column string, keywords []string, sampleSize int) []domain.Finding {
	var findings []domain.Finding
	subject := fmt.Sprintf("%s.%s", table, column)
	isPasswordColumn := strings.Contains(strings.ToLower(column), "password") ||
		strings.Contains(strings.ToLower(column), "passwd")

	// Name-based rule fires regardless of content.
	if kw, ok := domain.MatchesSensitiveName(column, keywords); ok {
		findings = append(findings, domain.Finding{
			Category:    domain.CategorySecurity,
			Severity:    domain.SeverityCritical,
			Subject:     subject,
			Description: fmt.Sprintf("column name %s matches sensitive keyword %q", column, kw),
			Evidence:    domain.Evidence{Rule: string(domain.RuleColumnKeyword)},
		})
	}

	values, err := a.sampleValues(ctx, table, column, sampleSize)
	if err != nil {
		findings = append(findings, checkFailed("security", subject, fmt.Sprintf("could not sample column: %v", err)))
		return findings
	}
	if len(values) == 0 {
		return findings
	}

	matched := map[domain.SensitiveRule]bool{}
	hashed, plaintext := 0, 0
	for _, v := range values {
		switch {
		case domain.LooksLikeEmail(v):
			matched[domain.RuleEmailPattern] = true
		case domain.LooksLikeSSN(v):
			matched[domain.RuleSSNPattern] = true
		case domain.LooksLikeCreditCard(v):
			matched[domain.RuleCreditCardPattern] = true
		}
		if isPasswordColumn {
			if domain.LooksLikeHashedPassword(v) {
				hashed++
			} else if domain.LooksLikePlaintextPassword(v) {
				plaintext++
			}
		}
	}

	for _, rule := range []domain.SensitiveRule{domain.RuleEmailPattern, domain.RuleSSNPattern, domain.RuleCreditCardPattern} {
		if !matched[rule] {
			continue
		}
		findings = append(findings, domain.Finding{
			Category:    domain.CategorySecurity,
			Severity:    domain.SeverityCritical,
			Subject:     subject,
			Description: fmt.Sprintf("sampled values in %s match the %s rule", subject, rule),
			Evidence:    domain.Evidence{Rule: string(rule), SampleSize: len(values)},
		})
	}

	if isPasswordColumn {
		findings = append(findings, a.passwordFormat(subject, len(values), hashed, plaintext)...)
	}
	return findings
}

// passwordFormat reports whether a password column's content looks hashed
// or plaintext. Plaintext is critical; a consistent digest shape is
// informational confirmation.
func (a *SecurityAnalyzer) passwordFormat(subject string, sampled, hashed, plaintext int) []domain.Finding {
	switch {
	case plaintext > 0:
		return []domain.Finding{{
			Category:    domain.CategorySecurity,
			Severity:    domain.SeverityCritical,
			Subject:     subject,
			Description: fmt.Sprintf("password column %s contains values that do not look like digests", subject),
			Evidence:    domain.Evidence{Rule: string(domain.RulePlaintextPassword), SampleSize: sampled, RowCount: int64(plaintext)},
		}}
	case hashed == sampled:
		return []domain.Finding{{
			Category:    domain.CategorySecurity,
			Severity:    domain.SeverityInfo,
			Subject:     subject,
			Description: fmt.Sprintf("password column %s consistently holds digest-shaped values", subject),
			Evidence:    domain.Evidence{Rule: string(domain.RuleHashedPassword), SampleSize: sampled},
		}}
	}
	return nil
}

// sampleValues reads up to limit non-null values from a text column. Values
// stay inside the analyzer; only rule names leave it.
func (a *SecurityAnalyzer) sampleValues(ctx context.Context, table, column string, limit int) ([]string, error) {
	sql := fmt.Sprintf("SELECT %s AS v FROM %s WHERE %s IS NOT NULL LIMIT %d",
		a.dialect.QuoteIdentifier(column),
		a.dialect.QuoteIdentifier(table),
		a.dialect.QuoteIdentifier(column),
		limit)
	rows, _, err := a.dialect.QueryTimed(ctx, sql)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		switch v := row["v"].(type) {
		case string:
			values = append(values, v)
		case []byte:
			values = append(values, string(v))
		}
	}
	return values, nil
}
