package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tneupaney/dbanalyzer/internal/core/domain"
)

// findingsFor filters by subject, since analyzers emit findings for several
// rules per table.
func findingsFor(findings []domain.Finding, subject string) []domain.Finding {
	var out []domain.Finding
	for _, f := range findings {
		if f.Subject == subject {
			out = append(out, f)
		}
	}
	return out
}

func TestIndexAnalyzer_MissingForeignKeyIndex(t *testing.T) {
	t.Parallel()

	graph := buildGraph(t, twoTableDialect())
	in := &AnalysisInput{Graph: graph, Thresholds: DefaultThresholds()}

	findings := NewIndexAnalyzer(&fakeDialect{}).Analyze(context.Background(), in)

	missing := findingsFor(findings, "orders.customer_id")
	require.NotEmpty(t, missing)
	var covered bool
	for _, f := range missing {
		if strings.Contains(f.Description, "no covering index") {
			covered = true
			assert.Equal(t, domain.SeverityWarning, f.Severity)
			assert.Equal(t, "CREATE INDEX idx_orders_customer_id ON orders (customer_id);", f.Remediation)
		}
	}
	assert.True(t, covered, "unindexed FK column must be flagged")
}

func TestIndexAnalyzer_CoveredForeignKeyNotFlagged(t *testing.T) {
	t.Parallel()

	graph := buildGraph(t, twoTableDialect())
	orders := graph.Table("orders")
	orders.Indexes = append(orders.Indexes, domain.Index{
		Name:    "idx_orders_customer_id",
		Table:   "orders",
		Columns: []string{"customer_id"},
	})
	in := &AnalysisInput{Graph: graph, Thresholds: DefaultThresholds()}

	findings := NewIndexAnalyzer(&fakeDialect{}).Analyze(context.Background(), in)

	for _, f := range findings {
		assert.NotContains(t, f.Description, "no covering index")
	}
}

func TestIndexAnalyzer_RedundantPrefixIndex(t *testing.T) {
	t.Parallel()

	table := &domain.Table{
		Name: "events",
		Columns: []domain.Column{
			{Name: "id", Semantic: domain.TypeInteger, Position: 1},
			{Name: "kind", Semantic: domain.TypeText, Position: 2},
			{Name: "occurred_at", Semantic: domain.TypeDatetime, Position: 3},
		},
		PrimaryKey: []string{"id"},
		Indexes: []domain.Index{
			{Name: "idx_events_kind", Table: "events", Columns: []string{"kind"}},
			{Name: "idx_events_kind_time", Table: "events", Columns: []string{"kind", "occurred_at"}},
		},
	}
	graph := domain.NewSchemaGraph("fake", []*domain.Table{table})
	in := &AnalysisInput{Graph: graph, Thresholds: DefaultThresholds()}

	findings := NewIndexAnalyzer(&fakeDialect{}).Analyze(context.Background(), in)

	redundant := findingsFor(findings, "events.idx_events_kind")
	require.Len(t, redundant, 1)
	assert.Equal(t, domain.SeverityInfo, redundant[0].Severity)
	assert.Contains(t, redundant[0].Description, "idx_events_kind_time")
}

func TestIndexAnalyzer_NearUniqueColumn(t *testing.T) {
	t.Parallel()

	dialect := twoTableDialect()
	graph := buildGraph(t, dialect)

	// The sampled email column is 99% distinct.
	dialect.queryFn = func(sql string, params []any) ([]map[string]any, error) {
		if strings.Contains(sql, "DISTINCT") {
			return []map[string]any{{"sampled": int64(1000), "dist": int64(990)}}, nil
		}
		return nil, nil
	}
	in := &AnalysisInput{Graph: graph, Thresholds: DefaultThresholds()}

	findings := NewIndexAnalyzer(dialect).Analyze(context.Background(), in)

	nearUnique := findingsFor(findings, "customers.email")
	require.NotEmpty(t, nearUnique)
	var flagged bool
	for _, f := range nearUnique {
		if strings.Contains(f.Description, "unique constraint") {
			flagged = true
			assert.Equal(t, domain.SeverityInfo, f.Severity)
			assert.Equal(t, 1000, f.Evidence.SampleSize)
			assert.InDelta(t, 99.0, f.Evidence.DistinctPct, 0.01)
			assert.Equal(t, string(domain.CardinalityNearUnique), f.Evidence.Cardinality)
		}
	}
	assert.True(t, flagged)
}

func TestIndexAnalyzer_LowCardinalityNotFlagged(t *testing.T) {
	t.Parallel()

	dialect := twoTableDialect()
	graph := buildGraph(t, dialect)

	dialect.queryFn = func(sql string, params []any) ([]map[string]any, error) {
		if strings.Contains(sql, "DISTINCT") {
			return []map[string]any{{"sampled": int64(1000), "dist": int64(4)}}, nil
		}
		return nil, nil
	}
	in := &AnalysisInput{Graph: graph, Thresholds: DefaultThresholds()}

	findings := NewIndexAnalyzer(dialect).Analyze(context.Background(), in)

	for _, f := range findings {
		assert.NotContains(t, f.Description, "unique constraint")
	}
}

func TestIndexAnalyzer_NamingAdvice(t *testing.T) {
	t.Parallel()

	table := &domain.Table{
		Name: "shipments",
		Columns: []domain.Column{
			{Name: "id", Semantic: domain.TypeInteger, Position: 1},
			{Name: "warehouse_id", Semantic: domain.TypeInteger, Position: 2},
		},
		PrimaryKey: []string{"id"},
	}
	graph := domain.NewSchemaGraph("fake", []*domain.Table{table})
	in := &AnalysisInput{Graph: graph, Thresholds: DefaultThresholds()}

	findings := NewIndexAnalyzer(&fakeDialect{}).Analyze(context.Background(), in)

	advice := findingsFor(findings, "shipments.warehouse_id")
	require.Len(t, advice, 1)
	assert.Equal(t, domain.SeverityInfo, advice[0].Severity)
	assert.Contains(t, advice[0].Description, "id_column")
	assert.Equal(t, "CREATE INDEX idx_shipments_warehouse_id ON shipments (warehouse_id);", advice[0].Remediation)
}
