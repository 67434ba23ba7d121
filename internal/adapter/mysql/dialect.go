// Package mysql implements the dialect port for MySQL and MariaDB.
// Introspection reads information_schema scoped to the connected schema;
// execution rides the shared database/sql plumbing.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/tneupaney/dbanalyzer/internal/adapter/stdsql"
	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

type Dialect struct {
	stdsql.Conn
	schema string
}

// Open connects with a go-sql-driver DSN. The schema under analysis is the
// DSN's database name.
func Open(ctx context.Context, dsn string) (*Dialect, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("DSN must name a database")
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging mysql database: %w", err)
	}
	return &Dialect{
		Conn:   stdsql.Conn{DB: db, QueryTimeout: 30 * time.Second},
		schema: cfg.DBName,
	}, nil
}

func (d *Dialect) Name() string { return "mysql" }

func (d *Dialect) DiscoverTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := d.DB.QueryContext(ctx, query, d.schema)
	if err != nil {
		return nil, stdsql.Classify(fmt.Errorf("listing tables: %w", err))
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
	const query = `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable = 'YES',
			COALESCE(c.column_default, ''),
			c.ordinal_position,
			c.column_key = 'PRI'
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position`

	meta := port.TableMetadata{Name: table}
	rows, err := d.DB.QueryContext(ctx, query, d.schema, table)
	if err != nil {
		return meta, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	for rows.Next() {
		var col port.ColumnMetadata
		var isPK bool
		if err := rows.Scan(&col.Name, &col.Declared, &col.Nullable, &col.Default, &col.Position, &isPK); err != nil {
			return meta, &domain.DiscoveryError{Object: table, Reason: err}
		}
		col.Semantic = domain.SemanticFromDeclared(col.Declared)
		meta.Columns = append(meta.Columns, col)
		if isPK {
			meta.PrimaryKey = append(meta.PrimaryKey, col.Name)
		}
	}
	return meta, rows.Err()
}

func (d *Dialect) DiscoverForeignKeys(ctx context.Context, table string) ([]port.ForeignKeyMetadata, error) {
	const query = `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			c.is_nullable = 'YES'
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.columns c
			ON c.table_schema = kcu.table_schema
			AND c.table_name = kcu.table_name
			AND c.column_name = kcu.column_name
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position`

	rows, err := d.DB.QueryContext(ctx, query, d.schema, table)
	if err != nil {
		return nil, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

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
	const query = `
		SELECT
			s.index_name,
			s.column_name,
			s.non_unique = 0
		FROM information_schema.statistics s
		WHERE s.table_schema = ? AND s.table_name = ?
		ORDER BY s.index_name, s.seq_in_index`

	rows, err := d.DB.QueryContext(ctx, query, d.schema, table)
	if err != nil {
		return nil, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	byName := make(map[string]*port.IndexMetadata)
	var order []string
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &column, &unique); err != nil {
			return nil, &domain.DiscoveryError{Object: table, Reason: err}
		}
		idx, ok := byName[name]
		if !ok {
			idx = &port.IndexMetadata{
				Name:    name,
				Table:   table,
				Unique:  unique,
				Primary: name == "PRIMARY",
			}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DiscoveryError{Object: table, Reason: err}
	}

	out := make([]port.IndexMetadata, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

func (d *Dialect) DiscoverTriggers(ctx context.Context, table string) ([]port.TriggerMetadata, error) {
	const query = `
		SELECT
			t.trigger_name,
			t.event_manipulation,
			t.action_timing
		FROM information_schema.triggers t
		WHERE t.trigger_schema = ? AND t.event_object_table = ?
		ORDER BY t.trigger_name`

	rows, err := d.DB.QueryContext(ctx, query, d.schema, table)
	if err != nil {
		return nil, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
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

func (d *Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *Dialect) SyntheticValue(sem domain.SemanticType, seq int) any {
	switch v := domain.SyntheticScalar(sem, seq).(type) {
	case time.Time:
		return v.Format(domain.SyntheticTimeLayout)
	default:
		return v
	}
}

func (d *Dialect) TypeName(sem domain.SemanticType) string {
	switch sem {
	case domain.TypeInteger:
		return "BIGINT"
	case domain.TypeDecimal:
		return "DOUBLE"
	case domain.TypeBoolean:
		return "TINYINT(1)"
	case domain.TypeDatetime:
		return "DATETIME"
	case domain.TypeBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}
