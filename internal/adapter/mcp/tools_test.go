package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
	"github.com/tneupaney/dbanalyzer/internal/core/service"
)

// --- mock dialect ---

type mockDialect struct {
	tables  []string
	columns map[string]port.TableMetadata
	indexes map[string][]port.IndexMetadata
	fks     map[string][]port.ForeignKeyMetadata
	err     error
}

func (m *mockDialect) Name() string { return "mock" }

func (m *mockDialect) DiscoverTables(context.Context) ([]string, error) {
	return m.tables, m.err
}

func (m *mockDialect) DiscoverColumns(_ context.Context, table string) (port.TableMetadata, error) {
	if m.err != nil {
		return port.TableMetadata{}, m.err
	}
	return m.columns[table], nil
}

func (m *mockDialect) DiscoverForeignKeys(_ context.Context, table string) ([]port.ForeignKeyMetadata, error) {
	return m.fks[table], m.err
}

func (m *mockDialect) DiscoverIndexes(_ context.Context, table string) ([]port.IndexMetadata, error) {
	return m.indexes[table], m.err
}

func (m *mockDialect) DiscoverTriggers(context.Context, string) ([]port.TriggerMetadata, error) {
	return nil, m.err
}

func (m *mockDialect) QueryTimed(context.Context, string, ...any) ([]map[string]any, time.Duration, error) {
	// One benign row satisfies every count and sample query the engine runs.
	row := map[string]any{
		"n": int64(1), "id": int64(1),
		"sampled": int64(0), "dist": int64(0),
		"orphans": int64(0), "dups": int64(0),
	}
	return []map[string]any{row}, time.Millisecond, nil
}

func (m *mockDialect) BeginProbe(context.Context) (port.WriteProbe, error) {
	return nil, fmt.Errorf("no probe on mock")
}

func (m *mockDialect) QuoteIdentifier(name string) string { return `"` + name + `"` }

func (m *mockDialect) SyntheticValue(sem domain.SemanticType, seq int) any {
	return domain.SyntheticScalar(sem, seq)
}

func (m *mockDialect) TypeName(domain.SemanticType) string { return "text" }

func (m *mockDialect) Ping(context.Context) error { return nil }

func singleTableDialect() *mockDialect {
	return &mockDialect{
		tables: []string{"users"},
		columns: map[string]port.TableMetadata{
			"users": {
				Name:       "users",
				PrimaryKey: []string{"id"},
				Columns: []port.ColumnMetadata{
					{Name: "id", Declared: "integer", Semantic: domain.TypeInteger, Position: 1},
					{Name: "name", Declared: "text", Semantic: domain.TypeText, Nullable: true, Position: 2},
				},
			},
		},
		indexes: map[string][]port.IndexMetadata{
			"users": {{Name: "users_pkey", Table: "users", Columns: []string{"id"}, Unique: true, Primary: true}},
		},
	}
}

// --- helpers ---

func callTool(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	session := server.NewInProcessSession("test", nil)
	require.NoError(t, s.RegisterSession(ctx, session))
	sessionCtx := s.WithContext(ctx, session)

	// Initialize session.
	initBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "init", "method": "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		},
	})
	s.HandleMessage(sessionCtx, initBytes)

	// Call tool.
	reqBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "call-1", "method": "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	})
	resp := s.HandleMessage(sessionCtx, reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result *mcp.CallToolResult       `json:"result"`
		Error  *struct{ Message string } `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	require.Nil(t, rpc.Error, "unexpected RPC error: %v", rpc.Error)
	require.NotNil(t, rpc.Result)
	return rpc.Result
}

func toolText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return ""
	}
	return tc.Text
}

func setupServer(dialect port.Dialect) *server.MCPServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := service.NewEngine(dialect, service.DefaultOptions(), logger, nil, nil)

	s := server.NewMCPServer("test", "0.1.0", server.WithToolCapabilities(true))
	RegisterTools(s, engine, dialect)
	return s
}

// --- tests ---

func TestListTables_HappyPath(t *testing.T) {
	s := setupServer(singleTableDialect())

	result := callTool(t, s, "list_tables", nil)
	require.False(t, result.IsError, toolText(result))

	var entries []tableEntry
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "users", entries[0].Name)
	assert.Equal(t, 2, entries[0].Columns)
	assert.Equal(t, 1, entries[0].Indexes)
	assert.Equal(t, 0, entries[0].ForeignKeys)
}

func TestListTables_Error(t *testing.T) {
	s := setupServer(&mockDialect{err: fmt.Errorf("permission denied")})

	result := callTool(t, s, "list_tables", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "failed to list tables")
}

func TestDescribeTable_HappyPath(t *testing.T) {
	s := setupServer(singleTableDialect())

	result := callTool(t, s, "describe_table", map[string]any{"table_name": "users"})
	require.False(t, result.IsError, toolText(result))

	var table domain.Table
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &table))
	assert.Equal(t, "users", table.Name)
	assert.Equal(t, []string{"id"}, table.PrimaryKey)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, domain.TypeInteger, table.Columns[0].Semantic)
	require.Len(t, table.Indexes, 1)
	assert.True(t, table.Indexes[0].Primary)
}

func TestDescribeTable_MissingTableName(t *testing.T) {
	s := setupServer(singleTableDialect())

	result := callTool(t, s, "describe_table", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "table_name is required")
}

func TestDescribeTable_WrongArgumentType(t *testing.T) {
	s := setupServer(singleTableDialect())

	result := callTool(t, s, "describe_table", map[string]any{"table_name": 42})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "table_name is required")
}

func TestDescribeTable_Error(t *testing.T) {
	s := setupServer(&mockDialect{err: fmt.Errorf("table not found")})

	result := callTool(t, s, "describe_table", map[string]any{"table_name": "nope"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "failed to describe table")
}

func TestAnalyzeDatabase_ReturnsReport(t *testing.T) {
	s := setupServer(singleTableDialect())

	result := callTool(t, s, "analyze_database", nil)
	require.False(t, result.IsError, toolText(result))

	var report port.Report
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &report))
	assert.Equal(t, "mock", report.Dialect)
	require.Len(t, report.Tables, 1)
	assert.Equal(t, "users", report.Tables[0].Name)
	assert.NotEmpty(t, report.Benchmarks)
}
