// Package mcp exposes the analysis engine over the Model Context Protocol
// so agent clients can trigger runs and inspect schemas over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
	"github.com/tneupaney/dbanalyzer/internal/core/service"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with tools and logging hooks.
func NewServer(version string, engine *service.Engine, dialect port.Dialect, logger *slog.Logger, tracer trace.Tracer) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithHooks(ToolCallHooks(logger, tracer)),
	)

	RegisterTools(s, engine, dialect)

	return s
}
