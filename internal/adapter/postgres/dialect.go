// Package postgres implements the dialect port on top of a pgx connection
// pool. Introspection reads information_schema and pg_catalog; workload
// statements go through a parser-backed read-only guard.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

// Dialect analyzes one PostgreSQL schema (default "public").
type Dialect struct {
	pool         *pgxpool.Pool
	schema       string
	guard        *ReadOnlyGuard
	queryTimeout time.Duration
}

type Option func(*Dialect)

// WithSchema scopes discovery to a schema other than public.
func WithSchema(schema string) Option {
	return func(d *Dialect) { d.schema = schema }
}

// WithQueryTimeout bounds individual statement execution.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(d *Dialect) { d.queryTimeout = timeout }
}

// Open connects, verifies connectivity, and returns a ready dialect.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Dialect, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database (10s timeout): %w", err)
	}

	d := &Dialect{
		pool:         pool,
		schema:       "public",
		guard:        NewReadOnlyGuard(),
		queryTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Dialect) Name() string { return "postgres" }

// Close releases the underlying pool.
func (d *Dialect) Close() { d.pool.Close() }

func (d *Dialect) DiscoverTables(ctx context.Context) ([]string, error) {
	rows, err := d.pool.Query(ctx, queryListTables, d.schema)
	if err != nil {
		return nil, d.classify(fmt.Errorf("listing tables: %w", err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *Dialect) DiscoverColumns(ctx context.Context, table string) (port.TableMetadata, error) {
	meta := port.TableMetadata{Name: table}

	rows, err := d.pool.Query(ctx, queryColumns, d.schema, table)
	if err != nil {
		return meta, d.classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	for rows.Next() {
		var col port.ColumnMetadata
		if err := rows.Scan(&col.Name, &col.Declared, &col.Nullable, &col.Default, &col.Position); err != nil {
			return meta, &domain.DiscoveryError{Object: table, Reason: err}
		}
		col.Semantic = domain.SemanticFromDeclared(col.Declared)
		meta.Columns = append(meta.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return meta, &domain.DiscoveryError{Object: table, Reason: err}
	}

	pk, err := d.primaryKey(ctx, table)
	if err != nil {
		return meta, &domain.DiscoveryError{Object: table, Reason: err}
	}
	meta.PrimaryKey = pk
	return meta, nil
}

func (d *Dialect) primaryKey(ctx context.Context, table string) ([]string, error) {
	rows, err := d.pool.Query(ctx, queryPrimaryKey, d.schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying primary key: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning pk column: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (d *Dialect) DiscoverForeignKeys(ctx context.Context, table string) ([]port.ForeignKeyMetadata, error) {
	rows, err := d.pool.Query(ctx, queryForeignKeys, d.schema, table)
	if err != nil {
		return nil, d.classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	// One row per constraint column, ordered by ordinal position; group
	// adjacent rows of the same constraint into composite edges.
	byName := make(map[string]*port.ForeignKeyMetadata)
	var order []string
	for rows.Next() {
		var name, column, refTable, refColumn string
		var nullable bool
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &nullable); err != nil {
			return nil, &domain.DiscoveryError{Object: table, Reason: err}
		}
		fk, ok := byName[name]
		if !ok {
			fk = &port.ForeignKeyMetadata{Name: name, Table: table, RefTable: refTable}
			byName[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, column)
		fk.RefColumns = append(fk.RefColumns, refColumn)
		if nullable {
			fk.SourceNullable = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DiscoveryError{Object: table, Reason: err}
	}

	out := make([]port.ForeignKeyMetadata, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

func (d *Dialect) DiscoverIndexes(ctx context.Context, table string) ([]port.IndexMetadata, error) {
	rows, err := d.pool.Query(ctx, queryIndexes, d.schema, table)
	if err != nil {
		return nil, d.classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	var idxs []port.IndexMetadata
	for rows.Next() {
		var idx port.IndexMetadata
		var cols []string
		if err := rows.Scan(&idx.Name, &cols, &idx.Unique, &idx.Primary); err != nil {
			return nil, &domain.DiscoveryError{Object: table, Reason: err}
		}
		idx.Table = table
		idx.Columns = cols
		idxs = append(idxs, idx)
	}
	return idxs, rows.Err()
}

func (d *Dialect) DiscoverTriggers(ctx context.Context, table string) ([]port.TriggerMetadata, error) {
	rows, err := d.pool.Query(ctx, queryTriggers, d.schema, table)
	if err != nil {
		return nil, d.classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	var trs []port.TriggerMetadata
	for rows.Next() {
		var name, event, timing string
		if err := rows.Scan(&name, &event, &timing); err != nil {
			return nil, &domain.DiscoveryError{Object: table, Reason: err}
		}
		trs = append(trs, port.TriggerMetadata{
			Name:   name,
			Table:  table,
			Event:  domain.TriggerEvent(strings.ToLower(event)),
			Timing: domain.TriggerTiming(strings.ToLower(timing)),
		})
	}
	return trs, rows.Err()
}

// QueryTimed runs one guarded read-only statement. Placeholders arrive in
// portable "?" form and are rewritten to PostgreSQL's positional style.
func (d *Dialect) QueryTimed(ctx context.Context, sql string, params ...any) ([]map[string]any, time.Duration, error) {
	rewritten := RewritePlaceholders(sql)
	if err := d.guard.Validate(rewritten); err != nil {
		return nil, 0, &domain.ExecutionError{SQL: sql, Reason: err}
	}

	ctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
	defer cancel()

	started := time.Now()
	rows, err := d.pool.Query(ctx, rewritten, params...)
	if err != nil {
		return nil, 0, d.classify(&domain.ExecutionError{SQL: sql, Reason: err})
	}
	defer rows.Close()

	result, err := rowsToMaps(rows)
	elapsed := time.Since(started)
	if err != nil {
		return nil, 0, d.classify(&domain.ExecutionError{SQL: sql, Reason: err})
	}
	return result, elapsed, nil
}

func (d *Dialect) BeginProbe(ctx context.Context) (port.WriteProbe, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, d.classify(fmt.Errorf("beginning probe transaction: %w", err))
	}
	return &writeProbe{tx: tx}, nil
}

func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dialect) SyntheticValue(sem domain.SemanticType, seq int) any {
	return domain.SyntheticScalar(sem, seq)
}

func (d *Dialect) TypeName(sem domain.SemanticType) string {
	switch sem {
	case domain.TypeInteger:
		return "bigint"
	case domain.TypeDecimal:
		return "double precision"
	case domain.TypeBoolean:
		return "boolean"
	case domain.TypeDatetime:
		return "timestamp"
	case domain.TypeBinary:
		return "bytea"
	default:
		return "text"
	}
}

func (d *Dialect) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConnectionLost, err)
	}
	return nil
}

// classify tags closed-pool and network-level failures as connection loss so
// the engine can tell them from statement errors.
func (d *Dialect) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrConnectionLost) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "closed pool") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset") {
		return fmt.Errorf("%w: %w", domain.ErrConnectionLost, err)
	}
	return err
}

// writeProbe wraps a pgx transaction. Close always rolls back; the probe's
// synthetic rows never commit.
type writeProbe struct {
	tx     pgx.Tx
	closed bool
}

func (p *writeProbe) Exec(ctx context.Context, sql string, params ...any) (time.Duration, error) {
	started := time.Now()
	_, err := p.tx.Exec(ctx, RewritePlaceholders(sql), params...)
	if err != nil {
		return 0, &domain.ExecutionError{SQL: sql, Reason: err}
	}
	return time.Since(started), nil
}

func (p *writeProbe) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
