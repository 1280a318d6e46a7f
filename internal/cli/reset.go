package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset data in the database",
	Long: `Reset data in the database.

Examples:
  invoicedesk reset draft       # Throw away the working draft
  invoicedesk reset invoices    # Delete all invoices and the working draft
  invoicedesk reset all         # Wipe everything: catalog, customers, invoices`,
}

var resetDraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Delete the working draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will discard the working draft. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := clearTables("active_draft"); err != nil {
			return err
		}
		fmt.Println("Working draft discarded.")
		return nil
	},
}

var resetInvoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Delete all invoices and the working draft",
	Long: `Delete all invoices and the working draft. Stock reserved by
committed invoices is not returned; adjust it with 'products stock'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL invoices and the working draft. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := clearTables("invoice_charges", "invoice_items", "invoices", "active_draft"); err != nil {
			return err
		}
		fmt.Println("All invoices have been deleted.")
		return nil
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete ALL data: customers, products, invoices, everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL data (customers, products, invoices, everything). Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		// Order matters due to foreign keys
		err := clearTables(
			"invoice_charges",
			"invoice_items",
			"invoices",
			"active_draft",
			"quotations",
			"projects",
			"products",
			"customers",
		)
		if err != nil {
			return err
		}
		fmt.Println("All data has been deleted.")
		return nil
	},
}

// clearTables deletes every row of each table in a single transaction
func clearTables(tables ...string) error {
	tx, err := appInstance.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	appInstance.Log.Info().Strs("tables", tables).Msg("tables cleared")
	return tx.Commit()
}

func confirmPrompt(message string) bool {
	fmt.Printf("%s [y/N] ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func init() {
	resetCmd.AddCommand(resetDraftCmd)
	resetCmd.AddCommand(resetInvoicesCmd)
	resetCmd.AddCommand(resetAllCmd)
}
