package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/tneupaney/dbanalyzer/internal/adapter/mcp"
)

func newMCPCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyzer as an MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			rt, err := setup(ctx, cmd, f)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			server := mcp.NewServer(version, rt.engine, rt.dialect, rt.logger, rt.tracer)
			stdioServer := mcpserver.NewStdioServer(server)

			rt.logger.Info("serving MCP over stdio")
			if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
				return fmt.Errorf("stdio server: %w", err)
			}

			rt.logger.Info("shutdown complete")
			return nil
		},
	}
}
