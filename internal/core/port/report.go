package port

import (
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
)

// TableSummary is the per-table slice of the report payload.
type TableSummary struct {
	Name         string   `json:"name"`
	Columns      int      `json:"columns"`
	PrimaryKey   []string `json:"primary_key,omitempty"`
	Indexes      int      `json:"indexes"`
	ForeignKeys  int      `json:"foreign_keys"`
	Triggers     int      `json:"triggers"`
	RowCount     int64    `json:"row_count"`
	HasRowCount  bool     `json:"has_row_count"`
	FindingCount int      `json:"finding_count"`
}

// Report is the single aggregated payload a run produces. The engine
// defines its shape; rendering belongs to an external assembler.
type Report struct {
	Dialect    string                   `json:"dialect"`
	StartedAt  time.Time                `json:"started_at"`
	Duration   time.Duration            `json:"duration"`
	Partial    bool                     `json:"partial"`
	Tables     []TableSummary           `json:"tables"`
	Findings   []domain.Finding         `json:"findings"`
	Benchmarks []domain.BenchmarkResult `json:"benchmarks"`
}

// FindingsByCategory groups the report's findings for assemblers that
// render per-category sections.
func (r *Report) FindingsByCategory() map[domain.Category][]domain.Finding {
	grouped := make(map[domain.Category][]domain.Finding)
	for _, f := range r.Findings {
		grouped[f.Category] = append(grouped[f.Category], f)
	}
	return grouped
}

// CriticalCount returns the number of critical findings.
func (r *Report) CriticalCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == domain.SeverityCritical {
			n++
		}
	}
	return n
}
