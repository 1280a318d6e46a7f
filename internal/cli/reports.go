package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Sales and stock reports",
}

var reportsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show headline sales numbers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		summary, err := appInstance.ReportService.GetSalesSummary(ctx)
		if err != nil {
			return fmt.Errorf("failed to build summary: %w", err)
		}

		fmt.Printf("Invoices:     %d\n", summary.InvoiceCount)
		fmt.Printf("Invoiced:     %s\n", money(summary.InvoicedTotal))
		fmt.Printf("Paid:         %s\n", money(summary.PaidTotal))
		fmt.Printf("Outstanding:  %s\n", money(summary.OutstandingTotal))
		fmt.Printf("Overdue:      %d invoice(s)\n", summary.OverdueCount)
		return nil
	},
}

var reportsOutstandingCmd = &cobra.Command{
	Use:   "outstanding",
	Short: "Show what each customer still owes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		balances, err := appInstance.ReportService.GetCustomerBalances(ctx)
		if err != nil {
			return fmt.Errorf("failed to load balances: %w", err)
		}

		if len(balances) == 0 {
			fmt.Println("Nothing outstanding")
			return nil
		}

		fmt.Printf("%-30s %8s %14s\n", "Customer", "Invoices", "Outstanding")
		fmt.Println("----------------------------------------------------------")
		for _, b := range balances {
			fmt.Printf("%-30s %8d %14s\n", truncate(b.CustomerName, 30), b.InvoiceCount, money(b.Outstanding))
		}
		total, err := appInstance.ReportService.GetOutstandingTotal(ctx)
		if err != nil {
			return fmt.Errorf("failed to load outstanding total: %w", err)
		}
		fmt.Println("----------------------------------------------------------")
		fmt.Printf("%-30s %8s %14s\n", "Total", "", money(total))
		return nil
	},
}

var reportsRevenueCmd = &cobra.Command{
	Use:   "revenue",
	Short: "Show invoiced revenue by month",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = time.Now().Year()
		}

		byMonth, err := appInstance.ReportService.GetRevenueByMonth(ctx, year)
		if err != nil {
			return fmt.Errorf("failed to load revenue: %w", err)
		}

		fmt.Printf("Revenue for %d\n", year)
		fmt.Println("---------------------------")
		total := decimal.Zero
		for m := time.January; m <= time.December; m++ {
			amount := byMonth[m]
			fmt.Printf("%-12s %14s\n", m.String(), money(amount))
			total = total.Add(amount)
		}
		fmt.Println("---------------------------")
		fmt.Printf("%-12s %14s\n", "Total", money(total))
		return nil
	},
}

var reportsLowStockCmd = &cobra.Command{
	Use:   "low-stock",
	Short: "List tracked products running low",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		products, err := appInstance.ReportService.GetLowStock(ctx)
		if err != nil {
			return fmt.Errorf("failed to load stock levels: %w", err)
		}

		if len(products) == 0 {
			fmt.Println("All tracked products are above the low stock threshold")
			return nil
		}

		fmt.Printf("%-14s %-30s %8s\n", "SKU", "Name", "Stock")
		fmt.Println("------------------------------------------------------")
		for _, p := range products {
			fmt.Printf("%-14s %-30s %8d\n", truncate(p.SKU, 14), truncate(p.Name, 30), p.CurrentStock)
		}
		return nil
	},
}

func init() {
	reportsCmd.AddCommand(reportsSummaryCmd)
	reportsCmd.AddCommand(reportsOutstandingCmd)
	reportsCmd.AddCommand(reportsRevenueCmd)
	reportsCmd.AddCommand(reportsLowStockCmd)

	reportsRevenueCmd.Flags().Int("year", 0, "Calendar year (defaults to this year)")
}
