package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/service"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Build the invoice draft",
	Long: `Edit the single in-progress invoice draft: add products, adjust
pricing, attach charges, then submit it to commit an invoice.

Any editing command starts a draft if none exists.`,
}

var draftStartCmd = &cobra.Command{
	Use:   "start [customer_id_or_name]",
	Short: "Start a new draft",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if _, err := appInstance.DraftService.Start(ctx); err != nil {
			return fmt.Errorf("failed to start draft: %w", err)
		}

		if len(args) == 1 {
			customerID, err := resolveCustomerID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve customer: %w", err)
			}
			if err := appInstance.DraftService.SetCustomer(ctx, customerID); err != nil {
				return fmt.Errorf("failed to set customer: %w", err)
			}
		}

		fmt.Println("✓ Draft started")
		return nil
	},
}

var draftShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"status"},
	Short:   "Show the current draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		m, err := appInstance.DraftService.Current(ctx)
		if err != nil {
			return err
		}

		printDraft(m)
		return nil
	},
}

var draftAddCmd = &cobra.Command{
	Use:   "add [sku_or_id] [quantity]",
	Short: "Add a product to the draft",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		product, err := resolveProduct(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve product: %w", err)
		}

		quantity := 1
		if len(args) == 2 {
			if quantity, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid quantity '%s'", args[1])
			}
		}

		item, err := appInstance.DraftService.AddItem(ctx, product.ID, quantity)
		if err != nil {
			return fmt.Errorf("failed to add item: %w", err)
		}

		fmt.Printf("✓ Added %d x %s (item %s)\n", item.Quantity, item.ProductName, shortID(item.ID))
		fmt.Printf("  Total: %s\n", money(item.TotalPrice))
		if item.IsStockTracked && item.Quantity > item.StockAvailable {
			fmt.Printf("  Warning: only %d in stock\n", item.StockAvailable)
		}
		return nil
	},
}

var draftUpdateCmd = &cobra.Command{
	Use:   "update [item] [field] [value]",
	Short: "Change one field of a line item",
	Long: `Change one field of a line item. Fields: quantity, unit_price,
discount_rate, tax_rate, service_charge_rate. Rates are percentages.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		m, err := appInstance.DraftService.Current(ctx)
		if err != nil {
			return err
		}
		itemID, err := findItemID(m, args[0])
		if err != nil {
			return err
		}
		field, err := draft.ParseItemField(args[1])
		if err != nil {
			return err
		}
		value, err := parseAmount(args[2])
		if err != nil {
			return err
		}

		item, err := appInstance.DraftService.UpdateItem(ctx, itemID, field, value)
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		fmt.Printf("✓ Updated %s %s\n", item.ProductName, field)
		fmt.Printf("  Total: %s\n", money(item.TotalPrice))
		return nil
	},
}

var draftRemoveCmd = &cobra.Command{
	Use:   "remove [item]",
	Short: "Remove a line item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		m, err := appInstance.DraftService.Current(ctx)
		if err != nil {
			return err
		}
		itemID, err := findItemID(m, args[0])
		if err != nil {
			return err
		}

		if err := appInstance.DraftService.RemoveItem(ctx, itemID); err != nil {
			return fmt.Errorf("failed to remove item: %w", err)
		}

		fmt.Printf("✓ Item %s removed\n", shortID(itemID))
		return nil
	},
}

var draftChargeCmd = &cobra.Command{
	Use:   "charge",
	Short: "Manage invoice-level taxes and service charges",
}

var draftChargeAddCmd = &cobra.Command{
	Use:   "add [tax|service] [name] [rate]",
	Short: "Add a charge applied to the whole subtotal",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		kind, err := domain.ParseChargeKind(args[0])
		if err != nil {
			return err
		}
		rate, err := parseAmount(args[2])
		if err != nil {
			return err
		}

		charge, err := appInstance.DraftService.AddCharge(ctx, kind, args[1], rate)
		if err != nil {
			return fmt.Errorf("failed to add charge: %w", err)
		}

		fmt.Printf("✓ Added %s %s at %s%% (charge %s)\n", kind, charge.Name, charge.Rate, shortID(charge.ID))
		return nil
	},
}

var draftChargeUpdateCmd = &cobra.Command{
	Use:   "update [charge] [rate]",
	Short: "Change a charge's rate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		m, err := appInstance.DraftService.Current(ctx)
		if err != nil {
			return err
		}
		chargeID, err := findChargeID(m, args[0])
		if err != nil {
			return err
		}
		rate, err := parseAmount(args[1])
		if err != nil {
			return err
		}

		charge, err := appInstance.DraftService.UpdateCharge(ctx, chargeID, rate)
		if err != nil {
			return fmt.Errorf("failed to update charge: %w", err)
		}

		fmt.Printf("✓ %s now at %s%%\n", charge.Name, charge.Rate)
		return nil
	},
}

var draftChargeRemoveCmd = &cobra.Command{
	Use:   "remove [charge]",
	Short: "Remove a charge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		m, err := appInstance.DraftService.Current(ctx)
		if err != nil {
			return err
		}
		chargeID, err := findChargeID(m, args[0])
		if err != nil {
			return err
		}

		if err := appInstance.DraftService.RemoveCharge(ctx, chargeID); err != nil {
			return fmt.Errorf("failed to remove charge: %w", err)
		}

		fmt.Printf("✓ Charge %s removed\n", shortID(chargeID))
		return nil
	},
}

var draftCustomerCmd = &cobra.Command{
	Use:   "customer [customer_id_or_name]",
	Short: "Set the draft's customer (clears project and quotation)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customerID, err := resolveCustomerID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve customer: %w", err)
		}

		if err := appInstance.DraftService.SetCustomer(ctx, customerID); err != nil {
			return fmt.Errorf("failed to set customer: %w", err)
		}

		fmt.Println("✓ Customer set")
		return nil
	},
}

var draftProjectCmd = &cobra.Command{
	Use:   "project [project_id|none]",
	Short: "Attach a project of the draft's customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		projectID, err := parseOptionalID(args[0], "project")
		if err != nil {
			return err
		}

		if err := appInstance.DraftService.SetProject(ctx, projectID); err != nil {
			return fmt.Errorf("failed to set project: %w", err)
		}

		fmt.Println("✓ Project updated")
		return nil
	},
}

var draftQuotationCmd = &cobra.Command{
	Use:   "quotation [quotation_id|none]",
	Short: "Attach a quotation of the draft's customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		quotationID, err := parseOptionalID(args[0], "quotation")
		if err != nil {
			return err
		}

		if err := appInstance.DraftService.SetQuotation(ctx, quotationID); err != nil {
			return fmt.Errorf("failed to set quotation: %w", err)
		}

		fmt.Println("✓ Quotation updated")
		return nil
	},
}

var draftTermsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Set payment, delivery, and warranty terms",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		m, err := appInstance.DraftService.Current(ctx)
		if err != nil && !errors.Is(err, service.ErrNoActiveDraft) {
			return err
		}

		var h draft.Header
		if m != nil {
			h = m.Header()
		}
		if cmd.Flags().Changed("payment") {
			h.PaymentTerms, _ = cmd.Flags().GetString("payment")
		}
		if cmd.Flags().Changed("delivery") {
			h.DeliveryTerms, _ = cmd.Flags().GetString("delivery")
		}
		if cmd.Flags().Changed("warranty") {
			h.WarrantyTerms, _ = cmd.Flags().GetString("warranty")
		}

		if err := appInstance.DraftService.SetTerms(ctx, h.PaymentTerms, h.DeliveryTerms, h.WarrantyTerms); err != nil {
			return fmt.Errorf("failed to set terms: %w", err)
		}

		fmt.Println("✓ Terms updated")
		return nil
	},
}

var draftNotesCmd = &cobra.Command{
	Use:   "notes [text]",
	Short: "Set free-form notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if err := appInstance.DraftService.SetNotes(ctx, strings.Join(args, " ")); err != nil {
			return fmt.Errorf("failed to set notes: %w", err)
		}

		fmt.Println("✓ Notes updated")
		return nil
	},
}

var draftDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Discard the draft without committing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		force, _ := cmd.Flags().GetBool("yes")
		if !force && !confirmPrompt("Discard the current draft?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.DraftService.Discard(ctx); err != nil {
			return fmt.Errorf("failed to discard draft: %w", err)
		}

		fmt.Println("✓ Draft discarded")
		return nil
	},
}

var draftSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate stock and commit the draft as an invoice",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := appInstance.DraftService.Submit(ctx)
		if err != nil {
			var stockErr *domain.InsufficientStockError
			if errors.As(err, &stockErr) {
				fmt.Println("✗ Draft rejected, not enough stock:")
				for _, v := range stockErr.Violations {
					fmt.Printf("  - %s\n", v)
				}
				return fmt.Errorf("fix the quantities above and submit again")
			}
			return fmt.Errorf("failed to submit draft: %w", err)
		}

		fmt.Printf("✓ Invoice committed: %s (ID: %d)\n", invoice.InvoiceNumber, invoice.ID)
		fmt.Printf("  Customer: %s\n", invoice.CustomerName)
		fmt.Printf("  Total: %s\n", money(invoice.TotalAmount))
		fmt.Printf("  Due: %s\n", invoice.DueDate.Format("2006-01-02"))
		return nil
	},
}

func printDraft(m *draft.Manager) {
	h := m.Header()
	totals := m.Totals()

	fmt.Println(strings.Repeat("=", 96))
	fmt.Printf("Draft (%s), started %s\n", m.State(), m.CreatedAt().Format("2006-01-02 15:04"))
	fmt.Println(strings.Repeat("=", 96))

	customer := h.CustomerName
	if customer == "" {
		customer = "(none)"
	}
	fmt.Printf("Customer: %s\n", customer)
	if h.ProjectName != "" {
		fmt.Printf("Project: %s\n", h.ProjectName)
	}
	if h.QuotationRef != "" {
		fmt.Printf("Quotation: %s\n", h.QuotationRef)
	}
	for label, v := range map[string]string{"Payment": h.PaymentTerms, "Delivery": h.DeliveryTerms, "Warranty": h.WarrantyTerms} {
		if v != "" {
			fmt.Printf("%s terms: %s\n", label, v)
		}
	}
	if h.Notes != "" {
		fmt.Printf("Notes: %s\n", h.Notes)
	}
	fmt.Println()

	items := m.Items()
	if len(items) == 0 {
		fmt.Println("No items")
	} else {
		fmt.Printf("%-9s %-12s %-26s %5s %10s %6s %6s %6s %12s\n",
			"Item", "SKU", "Product", "Qty", "Price", "Disc%", "Tax%", "Svc%", "Total")
		fmt.Println(strings.Repeat("-", 96))
		for _, it := range items {
			fmt.Printf("%-9s %-12s %-26s %5d %10s %6s %6s %6s %12s\n",
				shortID(it.ID),
				truncate(it.SKU, 12),
				truncate(it.ProductName, 26),
				it.Quantity,
				money(it.UnitPrice),
				it.DiscountRate.String(),
				it.TaxRate.String(),
				it.ServiceChargeRate.String(),
				money(it.TotalPrice),
			)
		}
		fmt.Println(strings.Repeat("-", 96))
	}

	for _, c := range totals.AdditionalTaxes {
		fmt.Printf("%-9s Tax %s (%s%%): %s\n", shortID(c.ID), c.Name, c.Rate, money(c.Amount))
	}
	for _, c := range totals.AdditionalServiceCharges {
		fmt.Printf("%-9s Service %s (%s%%): %s\n", shortID(c.ID), c.Name, c.Rate, money(c.Amount))
	}

	fmt.Println()
	fmt.Printf("Subtotal:        %12s\n", money(totals.Subtotal))
	fmt.Printf("Tax:             %12s\n", money(totals.TotalTaxAmount))
	fmt.Printf("Service charges: %12s\n", money(totals.TotalServiceChargeAmount))
	fmt.Printf("Total:           %12s\n", money(totals.TotalAmount))

	if violations := m.Violations(); len(violations) > 0 {
		fmt.Println()
		fmt.Println("Stock problems:")
		for _, v := range violations {
			fmt.Printf("  - %s\n", v)
		}
	}
	fmt.Println(strings.Repeat("=", 96))
}

func init() {
	draftCmd.AddCommand(draftStartCmd)
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftAddCmd)
	draftCmd.AddCommand(draftUpdateCmd)
	draftCmd.AddCommand(draftRemoveCmd)
	draftCmd.AddCommand(draftChargeCmd)
	draftCmd.AddCommand(draftCustomerCmd)
	draftCmd.AddCommand(draftProjectCmd)
	draftCmd.AddCommand(draftQuotationCmd)
	draftCmd.AddCommand(draftTermsCmd)
	draftCmd.AddCommand(draftNotesCmd)
	draftCmd.AddCommand(draftDiscardCmd)
	draftCmd.AddCommand(draftSubmitCmd)

	draftChargeCmd.AddCommand(draftChargeAddCmd)
	draftChargeCmd.AddCommand(draftChargeUpdateCmd)
	draftChargeCmd.AddCommand(draftChargeRemoveCmd)

	draftTermsCmd.Flags().String("payment", "", "Payment terms")
	draftTermsCmd.Flags().String("delivery", "", "Delivery terms")
	draftTermsCmd.Flags().String("warranty", "", "Warranty terms")

	draftDiscardCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")
}
