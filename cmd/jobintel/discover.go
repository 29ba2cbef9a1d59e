package main

import (
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <company-id>",
	Short: "Detect a company's ATS without collecting postings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	companyID, err := parseCompanyID(args[0])
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), func(a *app) error {
		res, err := a.collector.DiscoverATS(cmd.Context(), companyID)
		if err != nil {
			return err
		}
		a.printer.PrintDetection(res)
		return nil
	})
}
