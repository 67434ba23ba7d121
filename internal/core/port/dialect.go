package port

import (
	"context"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
)

// ColumnMetadata is a column as reported by a backend, with its native type
// name already normalized to a semantic type.
type ColumnMetadata struct {
	Name     string
	Declared string
	Semantic domain.SemanticType
	Nullable bool
	Default  string
	Position int
}

// TableMetadata is one discovered table with its columns and primary key.
// Views and zero-column tables appear with empty sequences.
type TableMetadata struct {
	Name       string
	Columns    []ColumnMetadata
	PrimaryKey []string
}

// ForeignKeyMetadata is one discovered FK constraint. SourceNullable is true
// when any source column is nullable, which distinguishes intentional
// optionality from hard integrity requirements.
type ForeignKeyMetadata struct {
	Name           string
	Table          string
	Columns        []string
	RefTable       string
	RefColumns     []string
	SourceNullable bool
}

// IndexMetadata is one discovered index.
type IndexMetadata struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Primary bool
}

// TriggerMetadata is one discovered trigger.
type TriggerMetadata struct {
	Name   string
	Table  string
	Event  domain.TriggerEvent
	Timing domain.TriggerTiming
}

// WriteProbe is a transactional write scope used solely by the trigger
// overhead probe. Everything executed through it is rolled back by Close,
// which is the compensating cleanup for the probe's synthetic rows.
type WriteProbe interface {
	// Exec runs a statement inside the probe transaction and returns its
	// execution time.
	Exec(ctx context.Context, sql string, params ...any) (time.Duration, error)
	// Close rolls the probe transaction back. It must be called regardless
	// of success or failure.
	Close() error
}

// Dialect is the capability interface over one backend: metadata
// introspection, timed execution, identifier quoting, and synthetic value
// generation. Adding a backend means implementing this interface; the
// engine never changes.
//
// Discovery is per object: DiscoverTables lists names, the remaining calls
// resolve one table each, so a failing object is skipped with a
// domain.DiscoveryError while analysis continues on the rest.
type Dialect interface {
	// Name identifies the backend ("sqlite", "mysql", "postgres").
	Name() string

	DiscoverTables(ctx context.Context) ([]string, error)
	DiscoverColumns(ctx context.Context, table string) (TableMetadata, error)
	DiscoverForeignKeys(ctx context.Context, table string) ([]ForeignKeyMetadata, error)
	DiscoverIndexes(ctx context.Context, table string) ([]IndexMetadata, error)
	DiscoverTriggers(ctx context.Context, table string) ([]TriggerMetadata, error)

	// QueryTimed executes a read-only statement and reports rows plus the
	// observed round-trip time.
	QueryTimed(ctx context.Context, sql string, params ...any) ([]map[string]any, time.Duration, error)

	// BeginProbe opens the write scope for the trigger overhead probe.
	BeginProbe(ctx context.Context) (WriteProbe, error)

	// QuoteIdentifier quotes a table or column name for this backend.
	QuoteIdentifier(name string) string

	// SyntheticValue produces a plausible literal of the given semantic
	// type. It must be a pure function of sem and seq so that generated
	// workloads stay reproducible under a fixed seed.
	SyntheticValue(sem domain.SemanticType, seq int) any

	// TypeName maps a semantic type back to a native type name, used to
	// build the probe's scratch table with an identical column shape.
	TypeName(sem domain.SemanticType) string

	// Ping verifies connectivity; the engine uses it after execution
	// failures to tell transient errors from a lost connection.
	Ping(ctx context.Context) error
}
