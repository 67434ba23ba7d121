package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
	"golang.org/x/sync/errgroup"
)

// CatalogBuilder discovers a database's structure through a dialect adapter
// and assembles the immutable schema graph. Discovery is total: a failing
// object becomes a structural finding, never an aborted run.
type CatalogBuilder struct {
	dialect     port.Dialect
	logger      *slog.Logger
	concurrency int
}

func NewCatalogBuilder(dialect port.Dialect, logger *slog.Logger, concurrency int) *CatalogBuilder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CatalogBuilder{dialect: dialect, logger: logger, concurrency: concurrency}
}

// Build lists tables, resolves each table's columns, indexes, triggers, and
// outgoing foreign keys in parallel, then resolves FK edges against the
// finished graph. Unresolved edges are reported as findings and dropped.
func (b *CatalogBuilder) Build(ctx context.Context) (*domain.SchemaGraph, []domain.Finding, error) {
	names, err := b.dialect.DiscoverTables(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConnectionLost) {
			return nil, nil, err
		}
		return domain.NewSchemaGraph(b.dialect.Name(), nil), []domain.Finding{{
			Category:    domain.CategoryStructural,
			Severity:    domain.SeverityCritical,
			Subject:     "schema",
			Description: fmt.Sprintf("table discovery failed: %v", err),
		}}, nil
	}
	sort.Strings(names)

	var (
		mu       sync.Mutex
		tables   []*domain.Table
		findings []domain.Finding
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, name := range names {
		g.Go(func() error {
			table, tableFindings := b.resolveTable(gctx, name)
			mu.Lock()
			defer mu.Unlock()
			findings = append(findings, tableFindings...)
			if table != nil {
				tables = append(tables, table)
			}
			return nil
		})
	}
	// Workers never return errors; per-table failures become findings.
	_ = g.Wait()

	graph := domain.NewSchemaGraph(b.dialect.Name(), tables)
	for _, fk := range graph.ResolveForeignKeys() {
		findings = append(findings, domain.Finding{
			Category: domain.CategoryStructural,
			Severity: domain.SeverityWarning,
			Subject:  fmt.Sprintf("%s.%s", fk.Table, fk.Name),
			Description: fmt.Sprintf(
				"foreign key %s on table %s references %s(%v), which does not resolve in the discovered schema",
				fk.Name, fk.Table, fk.RefTable, fk.RefColumns),
		})
	}

	b.logger.InfoContext(ctx, "schema catalog built",
		slog.Int("tables", len(tables)),
		slog.Int("findings", len(findings)),
	)
	return graph, findings, nil
}

// resolveTable gathers one table's metadata. Columns are essential: if they
// cannot be discovered the table is skipped with a finding. Indexes,
// triggers, and foreign keys are enrichment; their failures degrade to
// findings while the table stays in the graph.
func (b *CatalogBuilder) resolveTable(ctx context.Context, name string) (*domain.Table, []domain.Finding) {
	var findings []domain.Finding

	meta, err := b.dialect.DiscoverColumns(ctx, name)
	if err != nil {
		return nil, append(findings, discoveryFinding(name, "columns", err))
	}

	table := &domain.Table{
		Name:       name,
		PrimaryKey: meta.PrimaryKey,
		Columns:    make([]domain.Column, 0, len(meta.Columns)),
	}
	for _, c := range meta.Columns {
		table.Columns = append(table.Columns, domain.Column{
			Name:     c.Name,
			Declared: c.Declared,
			Semantic: c.Semantic,
			Nullable: c.Nullable,
			Default:  c.Default,
			Position: c.Position,
		})
	}

	indexes, err := b.dialect.DiscoverIndexes(ctx, name)
	if err != nil {
		findings = append(findings, discoveryFinding(name, "indexes", err))
	}
	for _, idx := range indexes {
		table.Indexes = append(table.Indexes, domain.Index{
			Name:    idx.Name,
			Table:   name,
			Columns: idx.Columns,
			Unique:  idx.Unique,
			Primary: idx.Primary,
		})
	}

	triggers, err := b.dialect.DiscoverTriggers(ctx, name)
	if err != nil {
		findings = append(findings, discoveryFinding(name, "triggers", err))
	}
	for _, tr := range triggers {
		table.Triggers = append(table.Triggers, domain.Trigger{
			Name:   tr.Name,
			Table:  name,
			Event:  tr.Event,
			Timing: tr.Timing,
		})
	}

	fks, err := b.dialect.DiscoverForeignKeys(ctx, name)
	if err != nil {
		findings = append(findings, discoveryFinding(name, "foreign keys", err))
	}
	for _, fk := range fks {
		table.ForeignKeys = append(table.ForeignKeys, domain.ForeignKey{
			Name:           fk.Name,
			Table:          name,
			Columns:        fk.Columns,
			RefTable:       fk.RefTable,
			RefColumns:     fk.RefColumns,
			SourceNullable: fk.SourceNullable,
		})
	}

	return table, findings
}

func discoveryFinding(table, object string, err error) domain.Finding {
	return domain.Finding{
		Category:    domain.CategoryStructural,
		Severity:    domain.SeverityWarning,
		Subject:     table,
		Description: fmt.Sprintf("could not discover %s for table %s: %v", object, table, err),
	}
}
