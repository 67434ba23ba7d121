package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(f *flags) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a full analysis and print the report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			rt, err := setup(ctx, cmd, f)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			report := rt.engine.Run(ctx)

			rt.logger.Info("analysis complete",
				slog.Int("tables", len(report.Tables)),
				slog.Int("findings", len(report.Findings)),
				slog.Int("critical", report.CriticalCount()),
				slog.Bool("partial", report.Partial),
				slog.Duration("duration", report.Duration),
			)

			enc := json.NewEncoder(os.Stdout)
			if pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}

			if report.CriticalCount() > 0 {
				// Nonzero exit lets CI gate on critical findings.
				return errCriticalFindings
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON report")
	return cmd
}
