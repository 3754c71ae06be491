package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/guardian-coverdrop/coverdrop-core/pkg/health"
)

var healthServePort int

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run or query the health-check HTTP server",
}

var healthServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the liveness/readiness/metrics HTTP server and block until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runHealthServe,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.AddCommand(healthServeCmd)

	healthServeCmd.Flags().IntVar(&healthServePort, "port", 8090, "listen port")
}

func runHealthServe(cmd *cobra.Command, args []string) error {
	server, err := health.StartHealthServer(healthServePort, "vault")
	if err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}

	fmt.Printf("health server listening on :%d (/health, /health/live, /health/ready, /metrics)\n", healthServePort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
