package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/service"
)

var invoicesCmd = &cobra.Command{
	Use:     "invoices",
	Aliases: []string{"invoice"},
	Short:   "Manage committed invoices",
	Long:    `List, inspect, and move committed invoices through their lifecycle.`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customerID, err := customerFilter(ctx, cmd)
		if err != nil {
			return err
		}

		var status *domain.InvoiceStatus
		if cmd.Flags().Changed("status") {
			statusStr, _ := cmd.Flags().GetString("status")
			s := domain.InvoiceStatus(statusStr)
			status = &s
		}

		invoices, err := appInstance.InvoiceService.ListInvoices(ctx, customerID, status)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Println("No invoices found")
			return nil
		}

		fmt.Printf("%-5s %-16s %-24s %-12s %12s %12s %-10s\n", "ID", "Number", "Customer", "Due", "Total", "Remaining", "Status")
		fmt.Println("------------------------------------------------------------------------------------------------")

		for _, invoice := range invoices {
			fmt.Printf("%-5d %-16s %-24s %-12s %12s %12s %-10s\n",
				invoice.ID,
				invoice.InvoiceNumber,
				truncate(invoice.CustomerName, 24),
				invoice.DueDate.Format("2006-01-02"),
				money(invoice.TotalAmount),
				money(invoice.RemainingAmount),
				invoice.Status,
			)
		}

		fmt.Printf("\nTotal: %d invoice(s)\n", len(invoices))
		return nil
	},
}

var invoicesCreateCmd = &cobra.Command{
	Use:   "create [order.yaml]",
	Short: "Create and commit an invoice from an order file",
	Long: `Create and commit an invoice in one step from a YAML order file.
The active draft is not touched.

Example order:
  customer: Acme Corp
  project: Office fit-out
  payment_terms: Net 30
  items:
    - sku: RTR-100
      quantity: 2
      discount_rate: 10
  additional_taxes:
    - name: Levy
      rate: 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read order: %w", err)
		}

		order, err := service.ParseOrder(data)
		if err != nil {
			return err
		}

		invoice, err := appInstance.InvoiceService.CreateFromOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		fmt.Printf("✓ Invoice committed: %s (ID: %d)\n", invoice.InvoiceNumber, invoice.ID)
		fmt.Printf("  Customer: %s\n", invoice.CustomerName)
		fmt.Printf("  Total: %s\n", money(invoice.TotalAmount))
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show [id_or_number]",
	Short: "Show invoice details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := lookupInvoice(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		fmt.Println(strings.Repeat("=", 96))
		fmt.Printf("Invoice: %s\n", invoice.InvoiceNumber)
		fmt.Println(strings.Repeat("=", 96))
		fmt.Printf("Customer: %s\n", invoice.CustomerName)
		if invoice.ProjectName != "" {
			fmt.Printf("Project: %s\n", invoice.ProjectName)
		}
		if invoice.QuotationRef != "" {
			fmt.Printf("Quotation: %s\n", invoice.QuotationRef)
		}
		fmt.Printf("Issued: %s  Due: %s\n", invoice.IssueDate.Format("2006-01-02"), invoice.DueDate.Format("2006-01-02"))
		fmt.Printf("Status: %s\n", invoice.Status)
		fmt.Println()

		if len(invoice.Items) > 0 {
			fmt.Printf("%-12s %-30s %5s %10s %10s %10s %12s\n", "SKU", "Product", "Qty", "Price", "Discount", "Tax", "Total")
			fmt.Println(strings.Repeat("-", 96))
			for _, it := range invoice.Items {
				fmt.Printf("%-12s %-30s %5d %10s %10s %10s %12s\n",
					truncate(it.SKU, 12),
					truncate(it.ProductName, 30),
					it.Quantity,
					money(it.UnitPrice),
					money(it.DiscountAmount),
					money(it.TaxAmount),
					money(it.TotalPrice),
				)
			}
			fmt.Println(strings.Repeat("-", 96))
		}

		for _, c := range invoice.AdditionalTaxes {
			fmt.Printf("Tax %s (%s%%): %s\n", c.Name, c.Rate, money(c.Amount))
		}
		for _, c := range invoice.AdditionalServiceCharges {
			fmt.Printf("Service %s (%s%%): %s\n", c.Name, c.Rate, money(c.Amount))
		}

		fmt.Printf("\n")
		fmt.Printf("Subtotal:        %12s\n", money(invoice.Subtotal))
		fmt.Printf("Tax:             %12s\n", money(invoice.TotalTaxAmount))
		fmt.Printf("Service charges: %12s\n", money(invoice.TotalServiceChargeAmount))
		fmt.Printf("Total:           %12s\n", money(invoice.TotalAmount))
		fmt.Printf("Paid:            %12s\n", money(invoice.PaidAmount))
		fmt.Printf("Remaining:       %12s\n", money(invoice.RemainingAmount))
		fmt.Println(strings.Repeat("=", 96))

		return nil
	},
}

var invoicesFinalizeCmd = &cobra.Command{
	Use:   "finalize [id]",
	Short: "Finalize a committed invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "invoice")
		if err != nil {
			return err
		}

		if err := appInstance.InvoiceService.Finalize(ctx, id); err != nil {
			return fmt.Errorf("failed to finalize invoice: %w", err)
		}

		fmt.Printf("✓ Invoice #%d finalized\n", id)
		return nil
	},
}

var invoicesMarkSentCmd = &cobra.Command{
	Use:   "mark-sent [id]",
	Short: "Mark an invoice as sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "invoice")
		if err != nil {
			return err
		}

		if err := appInstance.InvoiceService.MarkSent(ctx, id); err != nil {
			return fmt.Errorf("failed to mark invoice as sent: %w", err)
		}

		fmt.Printf("✓ Invoice #%d marked as sent\n", id)
		return nil
	},
}

var invoicesPayCmd = &cobra.Command{
	Use:   "pay [id] [amount]",
	Short: "Record a payment against an invoice",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "invoice")
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}

		dateStr, _ := cmd.Flags().GetString("date")
		paidDate := time.Now()
		if dateStr != "" {
			paidDate, err = parseDate(dateStr)
			if err != nil {
				return fmt.Errorf("invalid paid date: %w", err)
			}
		}

		invoice, err := appInstance.InvoiceService.RecordPayment(ctx, id, amount, paidDate)
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		fmt.Printf("✓ Payment of %s recorded on %s\n", money(amount), invoice.InvoiceNumber)
		fmt.Printf("  Remaining: %s (%s)\n", money(invoice.RemainingAmount), invoice.Status)
		return nil
	},
}

var invoicesCheckOverdueCmd = &cobra.Command{
	Use:   "check-overdue",
	Short: "Mark sent invoices past their due date as overdue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		n, err := appInstance.InvoiceService.CheckOverdue(ctx)
		if err != nil {
			return fmt.Errorf("failed to check overdue invoices: %w", err)
		}

		fmt.Printf("✓ %d invoice(s) marked overdue\n", n)
		return nil
	},
}

func lookupInvoice(ctx context.Context, idOrNumber string) (*domain.Invoice, error) {
	if id, err := parseID(idOrNumber, "invoice"); err == nil {
		return appInstance.InvoiceService.GetInvoice(ctx, id)
	}
	return appInstance.InvoiceService.GetByNumber(ctx, idOrNumber)
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesCreateCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesFinalizeCmd)
	invoicesCmd.AddCommand(invoicesMarkSentCmd)
	invoicesCmd.AddCommand(invoicesPayCmd)
	invoicesCmd.AddCommand(invoicesCheckOverdueCmd)

	invoicesListCmd.Flags().String("customer", "", "Filter by customer ID or name")
	invoicesListCmd.Flags().String("status", "", "Filter by status (draft, finalized, sent, paid, overdue)")

	invoicesPayCmd.Flags().String("date", "", "Payment date (defaults to today)")
}
