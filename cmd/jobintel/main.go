// Package main provides the jobintel CLI: ATS discovery, job posting
// collection and hiring change alerts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobintel",
	Short: "Job posting intelligence collector",
	Long: `jobintel detects which applicant tracking system a company uses, collects its open job postings,
records daily hiring snapshots and raises alerts on week-over-week hiring changes.

Configuration is read from the environment (DATABASE_URL, REDIS_URL, NATS_URL, JOBINTEL_*) and can be
overridden with a JSON file passed via --config.`,
	SilenceUsage: true,
}

var (
	configPath  string
	verbose     bool
	metricsAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (overrides environment)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs (e.g. :9090)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
