package domain

import "fmt"

// Column describes a single discovered column.
type Column struct {
	Name     string       `json:"name"`
	Declared string       `json:"declared_type"`
	Semantic SemanticType `json:"semantic_type"`
	Nullable bool         `json:"nullable"`
	Default  string       `json:"default,omitempty"`
	Position int          `json:"position"`
}

// ForeignKey is a directed edge in the schema graph. Referenced tables are
// held by name only; resolution happens once at graph build time so that a
// pair of mutually referencing tables never forms an ownership cycle.
type ForeignKey struct {
	Name           string   `json:"name"`
	Table          string   `json:"table"`
	Columns        []string `json:"columns"`
	RefTable       string   `json:"referenced_table"`
	RefColumns     []string `json:"referenced_columns"`
	SourceNullable bool     `json:"source_nullable"`
}

// Index describes a discovered index.
type Index struct {
	Name    string   `json:"name"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// TriggerEvent is the statement kind that fires a trigger.
type TriggerEvent string

const (
	TriggerInsert TriggerEvent = "insert"
	TriggerUpdate TriggerEvent = "update"
	TriggerDelete TriggerEvent = "delete"
)

// TriggerTiming is when a trigger fires relative to its statement.
type TriggerTiming string

const (
	TriggerBefore TriggerTiming = "before"
	TriggerAfter  TriggerTiming = "after"
)

// Trigger describes a discovered trigger.
type Trigger struct {
	Name   string        `json:"name"`
	Table  string        `json:"table"`
	Event  TriggerEvent  `json:"event"`
	Timing TriggerTiming `json:"timing"`
}

// Table groups everything discovered about one table. Tables with zero
// columns or without a primary key stay in the graph with empty sequences.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	Indexes     []Index      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	Triggers    []Trigger    `json:"triggers,omitempty"`
}

// Column returns the named column, or nil when absent.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// FirstUniqueIndex returns the first unique non-primary index, or nil.
func (t *Table) FirstUniqueIndex() *Index {
	for i := range t.Indexes {
		if t.Indexes[i].Unique && !t.Indexes[i].Primary {
			return &t.Indexes[i]
		}
	}
	return nil
}

// InsertTriggers returns the table's insert-firing triggers.
func (t *Table) InsertTriggers() []Trigger {
	var out []Trigger
	for _, tr := range t.Triggers {
		if tr.Event == TriggerInsert {
			out = append(out, tr)
		}
	}
	return out
}

// SchemaGraph is the immutable in-memory model of a discovered database.
// It is built once per run and discarded afterwards, never persisted.
type SchemaGraph struct {
	Dialect string            `json:"dialect"`
	Tables  map[string]*Table `json:"tables"`
}

// NewSchemaGraph builds a graph from discovered tables.
func NewSchemaGraph(dialect string, tables []*Table) *SchemaGraph {
	g := &SchemaGraph{Dialect: dialect, Tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		g.Tables[t.Name] = t
	}
	return g
}

// Table returns the named table, or nil when absent.
func (g *SchemaGraph) Table(name string) *Table {
	return g.Tables[name]
}

// TableNames returns all table names in unspecified order.
func (g *SchemaGraph) TableNames() []string {
	names := make([]string, 0, len(g.Tables))
	for name := range g.Tables {
		names = append(names, name)
	}
	return names
}

// ForeignKeys returns every FK edge in the graph.
func (g *SchemaGraph) ForeignKeys() []ForeignKey {
	var fks []ForeignKey
	for _, t := range g.Tables {
		fks = append(fks, t.ForeignKeys...)
	}
	return fks
}

// ResolveForeignKeys verifies that every FK's referenced table and columns
// exist in the graph. Dangling edges are removed from their table and
// returned; discovery must stay total, so a broken reference is reported,
// never fatal.
func (g *SchemaGraph) ResolveForeignKeys() []ForeignKey {
	var unresolved []ForeignKey
	for _, t := range g.Tables {
		kept := t.ForeignKeys[:0]
		for _, fk := range t.ForeignKeys {
			if err := g.checkEdge(fk); err != nil {
				unresolved = append(unresolved, fk)
				continue
			}
			kept = append(kept, fk)
		}
		t.ForeignKeys = kept
	}
	return unresolved
}

func (g *SchemaGraph) checkEdge(fk ForeignKey) error {
	ref := g.Tables[fk.RefTable]
	if ref == nil {
		return fmt.Errorf("referenced table %q does not exist", fk.RefTable)
	}
	for _, col := range fk.RefColumns {
		if ref.Column(col) == nil {
			return fmt.Errorf("referenced column %q.%q does not exist", fk.RefTable, col)
		}
	}
	if len(fk.Columns) != len(fk.RefColumns) {
		return fmt.Errorf("column count mismatch on foreign key %q", fk.Name)
	}
	return nil
}
