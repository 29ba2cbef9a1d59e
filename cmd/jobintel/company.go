package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Manage tracked companies",
}

var companyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a tracked company",
	Long:  "Register a company by name. Re-adding an existing name (case and punctuation insensitive) updates its website and careers URL.",
	Args:  cobra.NoArgs,
	RunE:  runCompanyAdd,
}

var (
	companyName       string
	companyWebsite    string
	companyCareersURL string
)

func init() {
	companyAddCmd.Flags().StringVarP(&companyName, "name", "n", "", "Company name (required)")
	companyAddCmd.Flags().StringVarP(&companyWebsite, "website", "w", "", "Company website URL")
	companyAddCmd.Flags().StringVarP(&companyCareersURL, "careers-url", "c", "", "Careers page URL")

	_ = companyAddCmd.MarkFlagRequired("name")

	companyCmd.AddCommand(companyAddCmd)
	rootCmd.AddCommand(companyCmd)
}

func runCompanyAdd(cmd *cobra.Command, _ []string) error {
	if companyWebsite == "" && companyCareersURL == "" {
		return fmt.Errorf("at least one of --website or --careers-url is required")
	}

	return withApp(cmd.Context(), func(a *app) error {
		company, err := a.db.UpsertCompany(cmd.Context(), companyName, companyWebsite, companyCareersURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Company %s: %s\n", company.Name, company.ID)
		return nil
	})
}
