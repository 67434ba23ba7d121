package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

// StatementKind classifies a generated statement.
type StatementKind string

const (
	KindPointLookup StatementKind = "point_lookup"
	KindRangeScan   StatementKind = "range_scan"
	KindTableScan   StatementKind = "table_scan"
	KindCountAll    StatementKind = "count_all"
	KindJoin        StatementKind = "join"
)

// Statement is one synthetic workload unit: SQL text plus bound values.
type Statement struct {
	Kind     StatementKind
	Table    string
	FK       string
	RefTable string
	SQL      string
	Params   []any
}

// scanLimit bounds every row-returning workload statement so benchmarks
// measure access paths, not result transfer.
const scanLimit = 100

// WorkloadGenerator turns a schema graph into representative statements.
// Generation is deterministic: given the same graph, the same key samples,
// and the same seed it emits byte-identical SQL and parameters.
type WorkloadGenerator struct {
	dialect port.Dialect
	seed    int64
}

func NewWorkloadGenerator(dialect port.Dialect, seed int64) *WorkloadGenerator {
	return &WorkloadGenerator{dialect: dialect, seed: seed}
}

// CollectKeySamples fetches a small, stably ordered sample of primary key
// values per table so point lookups probe hits instead of always missing.
// Sampling failures are silent; generation falls back to synthetic values.
func (g *WorkloadGenerator) CollectKeySamples(ctx context.Context, graph *domain.SchemaGraph, size int) map[string][]any {
	samples := make(map[string][]any)
	for _, name := range sortedTableNames(graph) {
		table := graph.Table(name)
		if len(table.PrimaryKey) != 1 {
			continue
		}
		pk := g.dialect.QuoteIdentifier(table.PrimaryKey[0])
		sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %d",
			pk, g.dialect.QuoteIdentifier(name), pk, size)
		rows, _, err := g.dialect.QueryTimed(ctx, sql)
		if err != nil {
			continue
		}
		var vals []any
		for _, row := range rows {
			if v, ok := row[table.PrimaryKey[0]]; ok && v != nil {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			samples[name] = vals
		}
	}
	return samples
}

// Generate produces the workload for a graph: per table a point lookup, a
// range scan on the first indexed non-key column, a bounded table scan, and
// a full count; per foreign key a join between the related tables.
func (g *WorkloadGenerator) Generate(graph *domain.SchemaGraph, samples map[string][]any) []Statement {
	rng := rand.New(rand.NewSource(g.seed))
	var stmts []Statement

	for _, name := range sortedTableNames(graph) {
		table := graph.Table(name)
		if len(table.Columns) == 0 {
			continue
		}
		if s, ok := g.pointLookup(table, samples, rng); ok {
			stmts = append(stmts, s)
		}
		if s, ok := g.rangeScan(table, rng); ok {
			stmts = append(stmts, s)
		}
		stmts = append(stmts, Statement{
			Kind:  KindTableScan,
			Table: name,
			SQL:   fmt.Sprintf("SELECT * FROM %s LIMIT %d", g.dialect.QuoteIdentifier(name), scanLimit),
		})
		stmts = append(stmts, Statement{
			Kind:  KindCountAll,
			Table: name,
			SQL:   fmt.Sprintf("SELECT COUNT(*) FROM %s", g.dialect.QuoteIdentifier(name)),
		})

		for _, fk := range sortedForeignKeys(table) {
			if graph.Table(fk.RefTable) == nil {
				continue
			}
			stmts = append(stmts, g.joinQuery(fk))
		}
	}
	return stmts
}

// pointLookup keys on the primary key, or the first unique index when no
// primary key exists. Tables with neither get no lookup statement.
func (g *WorkloadGenerator) pointLookup(table *domain.Table, samples map[string][]any, rng *rand.Rand) (Statement, bool) {
	keyCols := table.PrimaryKey
	if len(keyCols) == 0 {
		if idx := table.FirstUniqueIndex(); idx != nil {
			keyCols = idx.Columns
		}
	}
	if len(keyCols) == 0 {
		return Statement{}, false
	}

	preds := make([]string, len(keyCols))
	params := make([]any, len(keyCols))
	for i, col := range keyCols {
		preds[i] = fmt.Sprintf("%s = ?", g.dialect.QuoteIdentifier(col))
		params[i] = g.keyValue(table, col, samples, rng, i)
	}

	return Statement{
		Kind:   KindPointLookup,
		Table:  table.Name,
		SQL:    fmt.Sprintf("SELECT * FROM %s WHERE %s", g.dialect.QuoteIdentifier(table.Name), strings.Join(preds, " AND ")),
		Params: params,
	}, true
}

// keyValue prefers a sampled existing key value so lookups hit real rows.
func (g *WorkloadGenerator) keyValue(table *domain.Table, col string, samples map[string][]any, rng *rand.Rand, seq int) any {
	if vals := samples[table.Name]; len(vals) > 0 && len(table.PrimaryKey) == 1 && table.PrimaryKey[0] == col {
		return vals[rng.Intn(len(vals))]
	}
	sem := domain.TypeUnknown
	if c := table.Column(col); c != nil {
		sem = c.Semantic
	}
	return g.dialect.SyntheticValue(sem, rng.Intn(1000)+seq)
}

// rangeScan filters on the first indexed column that is not part of the
// primary key: LIKE for text, >= for everything else.
func (g *WorkloadGenerator) rangeScan(table *domain.Table, rng *rand.Rand) (Statement, bool) {
	col := firstIndexedNonKeyColumn(table)
	if col == nil {
		return Statement{}, false
	}

	quotedTable := g.dialect.QuoteIdentifier(table.Name)
	quotedCol := g.dialect.QuoteIdentifier(col.Name)
	seq := rng.Intn(1000)

	if col.Semantic == domain.TypeText {
		return Statement{
			Kind:   KindRangeScan,
			Table:  table.Name,
			SQL:    fmt.Sprintf("SELECT * FROM %s WHERE %s LIKE ? LIMIT %d", quotedTable, quotedCol, scanLimit),
			Params: []any{fmt.Sprintf("%%%v%%", g.dialect.SyntheticValue(domain.TypeText, seq))},
		}, true
	}
	return Statement{
		Kind:   KindRangeScan,
		Table:  table.Name,
		SQL:    fmt.Sprintf("SELECT * FROM %s WHERE %s >= ? LIMIT %d", quotedTable, quotedCol, scanLimit),
		Params: []any{g.dialect.SyntheticValue(col.Semantic, seq)},
	}, true
}

func (g *WorkloadGenerator) joinQuery(fk domain.ForeignKey) Statement {
	conds := make([]string, len(fk.Columns))
	for i := range fk.Columns {
		conds[i] = fmt.Sprintf("src.%s = ref.%s",
			g.dialect.QuoteIdentifier(fk.Columns[i]),
			g.dialect.QuoteIdentifier(fk.RefColumns[i]))
	}
	return Statement{
		Kind:     KindJoin,
		Table:    fk.Table,
		FK:       fk.Name,
		RefTable: fk.RefTable,
		SQL: fmt.Sprintf("SELECT src.*, ref.* FROM %s AS src JOIN %s AS ref ON %s LIMIT %d",
			g.dialect.QuoteIdentifier(fk.Table),
			g.dialect.QuoteIdentifier(fk.RefTable),
			strings.Join(conds, " AND "),
			scanLimit),
	}
}

func firstIndexedNonKeyColumn(table *domain.Table) *domain.Column {
	for _, idx := range table.Indexes {
		if idx.Primary || len(idx.Columns) == 0 {
			continue
		}
		first := idx.Columns[0]
		if containsString(table.PrimaryKey, first) {
			continue
		}
		if c := table.Column(first); c != nil {
			return c
		}
	}
	return nil
}

func sortedTableNames(graph *domain.SchemaGraph) []string {
	names := graph.TableNames()
	sort.Strings(names)
	return names
}

func sortedForeignKeys(table *domain.Table) []domain.ForeignKey {
	fks := make([]domain.ForeignKey, len(table.ForeignKeys))
	copy(fks, table.ForeignKeys)
	sort.Slice(fks, func(i, j int) bool { return fks[i].Name < fks[j].Name })
	return fks
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
