package main

import (
	"fmt"
	"log"

	"github.com/jonathan/hiring-signals/internal/collector"
	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect <company-id>",
	Short: "Collect job postings for one company",
	Long:  "Detect the company's ATS if needed, fetch and normalize its postings, close vanished ones, write today's snapshot and run change detection.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollect,
}

var collectAllCmd = &cobra.Command{
	Use:   "collect-all",
	Short: "Collect job postings for every company due for a crawl",
	Args:  cobra.NoArgs,
	RunE:  runCollectAll,
}

var (
	collectForce      bool
	collectLimit      int
	collectSkipRecent int
	collectWorkers    int
)

func init() {
	collectCmd.Flags().BoolVar(&collectForce, "force", false, "Re-run ATS detection even if a configuration exists")

	collectAllCmd.Flags().IntVar(&collectLimit, "limit", 0, "Maximum number of companies to crawl (0 = no limit)")
	collectAllCmd.Flags().IntVar(&collectSkipRecent, "skip-recent-hours", 20, "Skip companies crawled within this many hours")
	collectAllCmd.Flags().IntVar(&collectWorkers, "concurrency", 0, "Companies crawled in parallel (default from config)")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(collectAllCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	companyID, err := parseCompanyID(args[0])
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), func(a *app) error {
		res := a.collector.CollectCompany(cmd.Context(), companyID, collectForce)
		a.printer.PrintCollectionResult(res)
		if !res.Succeeded() {
			return fmt.Errorf("collection failed for %s", companyID)
		}
		return nil
	})
}

func runCollectAll(cmd *cobra.Command, _ []string) error {
	if collectLimit < 0 || collectSkipRecent < 0 {
		return fmt.Errorf("--limit and --skip-recent-hours must be non-negative")
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	if collectWorkers > 0 {
		cfg.Concurrency = collectWorkers
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.collector = a.collector.WithProgress(func(ev collector.ProgressEvent) {
		log.Print(progressLine(ev))
	})

	summary := a.collector.CollectAll(cmd.Context(), collectLimit, collectSkipRecent)
	a.printer.PrintSummary(summary)
	if summary.Error != "" {
		return fmt.Errorf("collection run failed: %s", summary.Error)
	}
	return nil
}

// progressLine formats one finished company; ev.Index is zero-based.
func progressLine(ev collector.ProgressEvent) string {
	status := "ok"
	if !ev.Result.Succeeded() {
		status = "failed: " + ev.Result.Error
	}
	return fmt.Sprintf("[COLLECT] [%d/%d] %s: %s", ev.Index+1, ev.Total, ev.Result.CompanyName, status)
}
