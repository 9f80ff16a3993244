package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/divyansh-cyber/AceE6data/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and Prometheus metrics",
	Long: `Serve the classifier, metrics history and anomaly detector over HTTP.

Routes:
  GET  /health
  POST /v1/queries/classify
  POST /v1/queries/summary
  GET  /v1/queries/recent
  GET  /v1/history?last=N
  GET  /v1/anomaly
  POST /v1/anomaly
  GET  /v1/alerts
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil || Queries == nil {
			return fmt.Errorf("services not initialized")
		}

		addr := serveAddr
		if addr == "" && Config != nil {
			addr = Config.Server.Addr
		}
		if addr == "" {
			addr = ":8080"
		}

		srv := api.NewServer(api.Deps{
			Monitor: Monitor,
			Queries: Queries,
			Alerts:  AlertEngine,
			Prom:    Prom,
			Logger:  Logger,
			Version: appVersion,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}
