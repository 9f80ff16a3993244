package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	p3mcp "github.com/divyansh-cyber/AceE6data/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the p3 MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the p3 MCP server on stdio",
	Long: `Start the p3 MCP server on stdio transport.

The server exposes p3 functionality as MCP tools that AI coding assistants
can call: classify_query, summarize_queries, get_recent_analysis,
detect_anomaly, get_metrics, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query analyzer not initialized")
		}

		srv := p3mcp.NewServer(Queries, Monitor, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
