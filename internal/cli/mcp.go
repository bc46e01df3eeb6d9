package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	maestromcp "github.com/valter-silva-au/maestro/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Maestro MCP server on stdio",
	Long: `Start the Maestro MCP (Model Context Protocol) server on stdio transport.

The server exposes Maestro functionality as MCP tools that AI coding assistants
can call: parse_manifest, list_handlers, rank_handlers, list_runs, get_metrics,
get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Registry == nil {
			return fmt.Errorf("handler registry not initialized")
		}

		srv := maestromcp.NewServer(Registry, RunHistory, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
