// Package sqlite implements the dialect port for SQLite files. Introspection
// goes through the schema pragmas and sqlite_master; execution rides the
// shared database/sql plumbing.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tneupaney/dbanalyzer/internal/adapter/stdsql"
	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

type Dialect struct {
	stdsql.Conn
}

// Open connects to a SQLite database file. A "sqlite://" URL prefix is
// accepted and stripped.
func Open(ctx context.Context, path string) (*Dialect, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	// Analyzers read concurrently while the trigger probe holds a write
	// transaction; without a busy timeout those reads fail with SQLITE_BUSY.
	if strings.Contains(path, "?") {
		path += "&_busy_timeout=5000"
	} else {
		path += "?_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	return &Dialect{Conn: stdsql.Conn{DB: db, QueryTimeout: 30 * time.Second}}, nil
}

func (d *Dialect) Name() string { return "sqlite" }

func (d *Dialect) DiscoverTables(ctx context.Context) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
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
	meta := port.TableMetadata{Name: table}

	rows, err := d.DB.QueryContext(ctx, "PRAGMA table_info("+d.QuoteIdentifier(table)+")")
	if err != nil {
		return meta, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	// pk holds the 1-based position of the column inside the primary key,
	// zero for non-key columns.
	type pkCol struct {
		name string
		pos  int
	}
	var pkCols []pkCol
	for rows.Next() {
		var cid, notNull, pk int
		var name, declared string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return meta, &domain.DiscoveryError{Object: table, Reason: err}
		}
		meta.Columns = append(meta.Columns, port.ColumnMetadata{
			Name:     name,
			Declared: declared,
			Semantic: domain.SemanticFromDeclared(declared),
			Nullable: notNull == 0,
			Default:  dflt.String,
			Position: cid + 1,
		})
		if pk > 0 {
			pkCols = append(pkCols, pkCol{name: name, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return meta, &domain.DiscoveryError{Object: table, Reason: err}
	}

	sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].pos < pkCols[j].pos })
	for _, c := range pkCols {
		meta.PrimaryKey = append(meta.PrimaryKey, c.name)
	}
	return meta, nil
}

func (d *Dialect) DiscoverForeignKeys(ctx context.Context, table string) ([]port.ForeignKeyMetadata, error) {
	nullable, err := d.nullableColumns(ctx, table)
	if err != nil {
		return nil, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
	}

	rows, err := d.DB.QueryContext(ctx, "PRAGMA foreign_key_list("+d.QuoteIdentifier(table)+")")
	if err != nil {
		return nil, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	// One row per FK column; rows of the same id form one composite edge.
	// SQLite does not name FK constraints, so edges get synthesized names.
	byID := make(map[int]*port.ForeignKeyMetadata)
	var order []int
	for rows.Next() {
		var id, seq int
		var refTable, from string
		var to sql.NullString
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, &domain.DiscoveryError{Object: table, Reason: err}
		}
		fk, ok := byID[id]
		if !ok {
			fk = &port.ForeignKeyMetadata{
				Name:     fmt.Sprintf("fk_%s_%d", table, id),
				Table:    table,
				RefTable: refTable,
			}
			byID[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, from)
		fk.RefColumns = append(fk.RefColumns, to.String)
		if nullable[from] {
			fk.SourceNullable = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DiscoveryError{Object: table, Reason: err}
	}

	out := make([]port.ForeignKeyMetadata, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (d *Dialect) nullableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := d.DB.QueryContext(ctx, "PRAGMA table_info("+d.QuoteIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nullable := make(map[string]bool)
	for rows.Next() {
		var cid, notNull, pk int
		var name, declared string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		nullable[name] = notNull == 0
	}
	return nullable, rows.Err()
}

func (d *Dialect) DiscoverIndexes(ctx context.Context, table string) ([]port.IndexMetadata, error) {
	rows, err := d.DB.QueryContext(ctx, "PRAGMA index_list("+d.QuoteIdentifier(table)+")")
	if err != nil {
		return nil, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	type indexHead struct {
		name    string
		unique  bool
		primary bool
	}
	var heads []indexHead
	for rows.Next() {
		var seq, unique int
		var name, origin string
		var partial int
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, &domain.DiscoveryError{Object: table, Reason: err}
		}
		heads = append(heads, indexHead{name: name, unique: unique == 1, primary: origin == "pk"})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DiscoveryError{Object: table, Reason: err}
	}

	var idxs []port.IndexMetadata
	for _, h := range heads {
		cols, err := d.indexColumns(ctx, h.name)
		if err != nil {
			return nil, &domain.DiscoveryError{Object: table, Reason: err}
		}
		idxs = append(idxs, port.IndexMetadata{
			Name:    h.name,
			Table:   table,
			Columns: cols,
			Unique:  h.unique,
			Primary: h.primary,
		})
	}
	return idxs, nil
}

func (d *Dialect) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx, "PRAGMA index_info("+d.QuoteIdentifier(index)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type member struct {
		seqno int
		name  string
	}
	var members []member
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		// Expression index members have no column name; skip them.
		if name.Valid {
			members = append(members, member{seqno: seqno, name: name.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(members, func(i, j int) bool { return members[i].seqno < members[j].seqno })
	cols := make([]string, 0, len(members))
	for _, m := range members {
		cols = append(cols, m.name)
	}
	return cols, nil
}

func (d *Dialect) DiscoverTriggers(ctx context.Context, table string) ([]port.TriggerMetadata, error) {
	rows, err := d.DB.QueryContext(ctx,
		"SELECT name, sql FROM sqlite_master WHERE type = 'trigger' AND tbl_name = ? ORDER BY name", table)
	if err != nil {
		return nil, stdsql.Classify(&domain.DiscoveryError{Object: table, Reason: err})
	}
	defer rows.Close()

	var trs []port.TriggerMetadata
	for rows.Next() {
		var name string
		var body sql.NullString
		if err := rows.Scan(&name, &body); err != nil {
			return nil, &domain.DiscoveryError{Object: table, Reason: err}
		}
		event, timing := parseTriggerHead(body.String)
		trs = append(trs, port.TriggerMetadata{
			Name:   name,
			Table:  table,
			Event:  event,
			Timing: timing,
		})
	}
	return trs, rows.Err()
}

// parseTriggerHead extracts event and timing from a CREATE TRIGGER body.
// SQLite keeps only the original DDL text, so the head is parsed from it.
// Keyword matching starts after the trigger name token; the name itself may
// contain event words, and the body certainly does.
func parseTriggerHead(ddl string) (domain.TriggerEvent, domain.TriggerTiming) {
	fields := strings.Fields(strings.ToUpper(ddl))

	i := 0
	for i < len(fields) && fields[i] != "TRIGGER" {
		i++
	}
	i++
	if i+2 < len(fields) && fields[i] == "IF" && fields[i+1] == "NOT" && fields[i+2] == "EXISTS" {
		i += 3
	}
	i++ // trigger name

	event := domain.TriggerInsert
	timing := domain.TriggerAfter
	for ; i < len(fields); i++ {
		switch fields[i] {
		case "BEFORE":
			timing = domain.TriggerBefore
		case "AFTER":
			timing = domain.TriggerAfter
		case "INSERT":
			return domain.TriggerInsert, timing
		case "UPDATE":
			return domain.TriggerUpdate, timing
		case "DELETE":
			return domain.TriggerDelete, timing
		case "ON":
			return event, timing
		}
	}
	return event, timing
}

func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dialect) SyntheticValue(sem domain.SemanticType, seq int) any {
	switch v := domain.SyntheticScalar(sem, seq).(type) {
	case bool:
		// SQLite stores booleans as integers.
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return v.Format(domain.SyntheticTimeLayout)
	default:
		return v
	}
}

func (d *Dialect) TypeName(sem domain.SemanticType) string {
	switch sem {
	case domain.TypeInteger, domain.TypeBoolean:
		return "INTEGER"
	case domain.TypeDecimal:
		return "REAL"
	case domain.TypeBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}
