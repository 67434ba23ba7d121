package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDialect is an in-memory port.Dialect for exercising the services
// without a database. Discovery answers come from the configured maps;
// query results come from queryFn. All methods are safe for concurrent use
// because the engine fans work out over goroutines.
type fakeDialect struct {
	mu sync.Mutex

	tables    []string
	tablesErr error

	columns    map[string]port.TableMetadata
	columnsErr map[string]error
	fks        map[string][]port.ForeignKeyMetadata
	indexes    map[string][]port.IndexMetadata
	triggers   map[string][]port.TriggerMetadata

	// queryFn answers QueryTimed. A nil queryFn returns no rows.
	queryFn func(sql string, params []any) ([]map[string]any, error)
	latency time.Duration

	pingErr  error
	probeErr error
	probe    *fakeProbe

	executed []string
}

func (f *fakeDialect) Name() string { return "fake" }

func (f *fakeDialect) DiscoverTables(ctx context.Context) ([]string, error) {
	if f.tablesErr != nil {
		return nil, f.tablesErr
	}
	return f.tables, nil
}

func (f *fakeDialect) DiscoverColumns(ctx context.Context, table string) (port.TableMetadata, error) {
	if err := f.columnsErr[table]; err != nil {
		return port.TableMetadata{}, err
	}
	return f.columns[table], nil
}

func (f *fakeDialect) DiscoverForeignKeys(ctx context.Context, table string) ([]port.ForeignKeyMetadata, error) {
	return f.fks[table], nil
}

func (f *fakeDialect) DiscoverIndexes(ctx context.Context, table string) ([]port.IndexMetadata, error) {
	return f.indexes[table], nil
}

func (f *fakeDialect) DiscoverTriggers(ctx context.Context, table string) ([]port.TriggerMetadata, error) {
	return f.triggers[table], nil
}

func (f *fakeDialect) QueryTimed(ctx context.Context, sql string, params ...any) ([]map[string]any, time.Duration, error) {
	f.mu.Lock()
	f.executed = append(f.executed, sql)
	f.mu.Unlock()

	elapsed := f.latency
	if elapsed == 0 {
		elapsed = time.Millisecond
	}
	if f.queryFn == nil {
		return nil, elapsed, nil
	}
	rows, err := f.queryFn(sql, params)
	return rows, elapsed, err
}

func (f *fakeDialect) BeginProbe(ctx context.Context) (port.WriteProbe, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.probe == nil {
		f.probe = &fakeProbe{}
	}
	return f.probe, nil
}

func (f *fakeDialect) QuoteIdentifier(name string) string { return `"` + name + `"` }

func (f *fakeDialect) SyntheticValue(sem domain.SemanticType, seq int) any {
	return domain.SyntheticScalar(sem, seq)
}

func (f *fakeDialect) TypeName(sem domain.SemanticType) string { return string(sem) }

func (f *fakeDialect) Ping(ctx context.Context) error { return f.pingErr }

// executedSQL returns a snapshot of every statement seen so far.
func (f *fakeDialect) executedSQL() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.executed))
	copy(out, f.executed)
	return out
}

// fakeProbe records probe activity. execFn decides each statement's
// duration and error; nil means instant success.
type fakeProbe struct {
	mu     sync.Mutex
	execFn func(sql string) (time.Duration, error)

	statements []string
	closed     bool
	closeErr   error
}

func (p *fakeProbe) Exec(ctx context.Context, sql string, params ...any) (time.Duration, error) {
	p.mu.Lock()
	p.statements = append(p.statements, sql)
	p.mu.Unlock()
	if p.execFn == nil {
		return time.Microsecond, nil
	}
	return p.execFn(sql)
}

func (p *fakeProbe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeErr
}

// twoTableDialect builds a fake backing a customers/orders schema with a
// resolvable foreign key, one secondary index, and an insert trigger.
func twoTableDialect() *fakeDialect {
	return &fakeDialect{
		tables: []string{"customers", "orders"},
		columns: map[string]port.TableMetadata{
			"customers": {
				Name: "customers",
				Columns: []port.ColumnMetadata{
					{Name: "id", Declared: "INTEGER", Semantic: domain.TypeInteger, Position: 1},
					{Name: "email", Declared: "TEXT", Semantic: domain.TypeText, Nullable: true, Position: 2},
				},
				PrimaryKey: []string{"id"},
			},
			"orders": {
				Name: "orders",
				Columns: []port.ColumnMetadata{
					{Name: "id", Declared: "INTEGER", Semantic: domain.TypeInteger, Position: 1},
					{Name: "customer_id", Declared: "INTEGER", Semantic: domain.TypeInteger, Position: 2},
					{Name: "total", Declared: "REAL", Semantic: domain.TypeDecimal, Nullable: true, Position: 3},
				},
				PrimaryKey: []string{"id"},
			},
		},
		fks: map[string][]port.ForeignKeyMetadata{
			"orders": {{
				Name:       "fk_orders_customer",
				Table:      "orders",
				Columns:    []string{"customer_id"},
				RefTable:   "customers",
				RefColumns: []string{"id"},
			}},
		},
		indexes: map[string][]port.IndexMetadata{
			"customers": {{
				Name:    "idx_customers_email",
				Table:   "customers",
				Columns: []string{"email"},
			}},
		},
		triggers: map[string][]port.TriggerMetadata{
			"orders": {{
				Name:   "orders_audit",
				Table:  "orders",
				Event:  domain.TriggerInsert,
				Timing: domain.TriggerAfter,
			}},
		},
	}
}

// buildGraph runs the catalog against a fake and returns just the graph.
func buildGraph(t testingT, dialect *fakeDialect) *domain.SchemaGraph {
	graph, _, err := NewCatalogBuilder(dialect, discardLogger(), 2).Build(context.Background())
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	return graph
}

// testingT is the subset of *testing.T the helpers need.
type testingT interface {
	Fatalf(format string, args ...any)
}
