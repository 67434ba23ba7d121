package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
	"github.com/tneupaney/dbanalyzer/internal/core/service"
)

// Server metadata
const serverName = "dbanalyzer"

// Tool descriptions
const (
	descAnalyze = "Run a full analysis of the connected database: schema discovery, " +
		"synthetic workload benchmarking, and index, integrity, security, trigger, and " +
		"join-cost analysis. Returns a report with per-table summaries, benchmark " +
		"latencies, and findings ranked by severity. The run is read-only except for a " +
		"trigger overhead probe whose writes are rolled back. Expect it to take a while " +
		"on large databases."

	descListTables = "List the tables the analyzer can see, with column, index, foreign " +
		"key, and trigger counts. Use this to check connectivity and scope before " +
		"launching a full analysis."

	descDescribeTable = "Describe one table's discovered structure: columns with " +
		"declared and semantic types, primary key, indexes, foreign keys, and triggers."

	descDescribeTableParam = "Name of the table to describe"
)

func RegisterTools(s *server.MCPServer, engine *service.Engine, dialect port.Dialect) {
	s.AddTool(
		mcp.NewTool("analyze_database",
			mcp.WithDescription(descAnalyze),
		),
		analyzeHandler(engine),
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription(descListTables),
		),
		listTablesHandler(dialect),
	)

	s.AddTool(
		mcp.NewTool("describe_table",
			mcp.WithDescription(descDescribeTable),
			mcp.WithString("table_name",
				mcp.Required(),
				mcp.Description(descDescribeTableParam),
			),
		),
		describeTableHandler(dialect),
	)
}

func analyzeHandler(engine *service.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report := engine.Run(ctx)

		data, err := json.Marshal(report)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

// tableEntry is the list_tables response shape.
type tableEntry struct {
	Name        string `json:"name"`
	Columns     int    `json:"columns"`
	Indexes     int    `json:"indexes"`
	ForeignKeys int    `json:"foreign_keys"`
	Triggers    int    `json:"triggers"`
}

func listTablesHandler(dialect port.Dialect) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := dialect.DiscoverTables(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tables: %v", err)), nil
		}

		entries := make([]tableEntry, 0, len(names))
		for _, name := range names {
			entry := tableEntry{Name: name}
			if meta, err := dialect.DiscoverColumns(ctx, name); err == nil {
				entry.Columns = len(meta.Columns)
			}
			if idxs, err := dialect.DiscoverIndexes(ctx, name); err == nil {
				entry.Indexes = len(idxs)
			}
			if fks, err := dialect.DiscoverForeignKeys(ctx, name); err == nil {
				entry.ForeignKeys = len(fks)
			}
			if trs, err := dialect.DiscoverTriggers(ctx, name); err == nil {
				entry.Triggers = len(trs)
			}
			entries = append(entries, entry)
		}

		data, err := json.Marshal(entries)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func describeTableHandler(dialect port.Dialect) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		meta, err := dialect.DiscoverColumns(ctx, tableName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to describe table: %v", err)), nil
		}

		table := &domain.Table{Name: tableName, PrimaryKey: meta.PrimaryKey}
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
		if idxs, err := dialect.DiscoverIndexes(ctx, tableName); err == nil {
			for _, i := range idxs {
				table.Indexes = append(table.Indexes, domain.Index{
					Name: i.Name, Table: i.Table, Columns: i.Columns, Unique: i.Unique, Primary: i.Primary,
				})
			}
		}
		if fks, err := dialect.DiscoverForeignKeys(ctx, tableName); err == nil {
			for _, fk := range fks {
				table.ForeignKeys = append(table.ForeignKeys, domain.ForeignKey{
					Name: fk.Name, Table: fk.Table, Columns: fk.Columns,
					RefTable: fk.RefTable, RefColumns: fk.RefColumns, SourceNullable: fk.SourceNullable,
				})
			}
		}
		if trs, err := dialect.DiscoverTriggers(ctx, tableName); err == nil {
			for _, tr := range trs {
				table.Triggers = append(table.Triggers, domain.Trigger{
					Name: tr.Name, Table: tr.Table, Event: tr.Event, Timing: tr.Timing,
				})
			}
		}

		data, err := json.Marshal(table)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}
