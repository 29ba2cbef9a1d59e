package main

import (
	"time"

	"github.com/spf13/cobra"
)

var detectChangesCmd = &cobra.Command{
	Use:   "detect-changes <company-id>",
	Short: "Compare a snapshot with the one a week earlier and raise alerts",
	Long:  "Re-run week-over-week change detection for a stored snapshot. Collection already does this for today's snapshot; use this to backfill.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetectChanges,
}

var detectDate string

func init() {
	detectChangesCmd.Flags().StringVarP(&detectDate, "date", "d", "", "Snapshot date YYYY-MM-DD (default today, UTC)")
	rootCmd.AddCommand(detectChangesCmd)
}

func runDetectChanges(cmd *cobra.Command, args []string) error {
	companyID, err := parseCompanyID(args[0])
	if err != nil {
		return err
	}
	date, err := parseDate(detectDate, time.Now())
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), func(a *app) error {
		alerts, err := a.changes.Detect(cmd.Context(), companyID, date)
		if err != nil {
			return err
		}
		a.printer.PrintAlerts(alerts)
		return nil
	})
}
