package cli

import (
	"github.com/spf13/cobra"

	"github.com/andy/invoicedesk/internal/app"
)

var appInstance *app.App

var rootCmd = &cobra.Command{
	Use:   "invoicedesk",
	Short: "Price, stock-check and issue product invoices",
	Long: `Invoicedesk builds invoices from your product catalog. Line items are
priced with per-item discount, tax and service charge rates, invoice-level
taxes and charges are applied to the subtotal, and stock is reserved when a
draft is submitted.

By default, running invoicedesk without arguments launches the interactive TUI.
Use subcommands for CLI operations.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior: launch TUI
		launchTUI(cmd, args)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

func init() {
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(customersCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(quotationsCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tuiCmd)
}
