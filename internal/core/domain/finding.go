package domain

import "sort"

// Category groups findings by the kind of problem they describe.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryIntegrity   Category = "integrity"
	CategorySecurity    Category = "security"
	CategoryStructural  Category = "structural"
)

// Severity orders findings by urgency.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// rank maps severities to sort order; unknown severities sort last.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}

// Evidence carries the measured data backing a finding. All fields are
// optional; zero values are omitted from the report payload.
type Evidence struct {
	LatencyMS   float64 `json:"latency_ms,omitempty"`
	OverheadUS  int64   `json:"overhead_us,omitempty"`
	RowCount    int64   `json:"row_count,omitempty"`
	SampleSize  int     `json:"sample_size,omitempty"`
	DistinctPct float64 `json:"distinct_pct,omitempty"`
	Cardinality string  `json:"cardinality,omitempty"`
	Rule        string  `json:"rule,omitempty"`
}

// Finding is a single reported observation. Descriptions identify the
// subject (table, column, index) but never quote sampled data.
type Finding struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Evidence    Evidence `json:"evidence,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
}

// SortFindings orders findings by severity (critical first), then category,
// then subject. The sort is stable so same-subject findings keep their
// emission order.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.rank() != findings[j].Severity.rank() {
			return findings[i].Severity.rank() < findings[j].Severity.rank()
		}
		if findings[i].Category != findings[j].Category {
			return findings[i].Category < findings[j].Category
		}
		return findings[i].Subject < findings[j].Subject
	})
}
