package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect stored hiring alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list <company-id>",
	Short: "List recent alerts for a company, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsList,
}

var (
	alertsLimit int
	alertsJSON  bool
)

func init() {
	alertsListCmd.Flags().IntVarP(&alertsLimit, "limit", "l", 20, "Maximum number of alerts to show")
	alertsListCmd.Flags().BoolVar(&alertsJSON, "json", false, "Print alerts as JSON")

	alertsCmd.AddCommand(alertsListCmd)
	rootCmd.AddCommand(alertsCmd)
}

func runAlertsList(cmd *cobra.Command, args []string) error {
	companyID, err := parseCompanyID(args[0])
	if err != nil {
		return err
	}
	if alertsLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	return withApp(cmd.Context(), func(a *app) error {
		alerts, err := a.db.ListAlerts(cmd.Context(), companyID, alertsLimit)
		if err != nil {
			return err
		}
		if alertsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(alerts)
		}
		a.printer.PrintAlerts(alerts)
		return nil
	})
}
