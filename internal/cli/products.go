package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/andy/invoicedesk/internal/domain"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Manage the product catalog",
	Long:    `List, add, edit, and restock catalog products.`,
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all products",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		products, err := appInstance.ProductRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}

		if len(products) == 0 {
			fmt.Println("No products found")
			return nil
		}

		fmt.Printf("%-5s %-14s %-30s %12s %8s %-8s\n", "ID", "SKU", "Name", "Price", "Stock", "Tracking")
		fmt.Println("----------------------------------------------------------------------------------")

		for _, p := range products {
			fmt.Printf("%-5d %-14s %-30s %12s %8d %-8s\n",
				p.ID,
				truncate(p.SKU, 14),
				truncate(p.Name, 30),
				money(p.SellingPrice),
				p.CurrentStock,
				tracking(p),
			)
		}

		fmt.Printf("\nTotal: %d product(s)\n", len(products))
		return nil
	},
}

var productsShowCmd = &cobra.Command{
	Use:   "show [id_or_sku]",
	Short: "Show product details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProduct(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}

		fmt.Printf("Product #%d\n", p.ID)
		fmt.Printf("  Name:         %s\n", p.Name)
		fmt.Printf("  SKU:          %s\n", p.SKU)
		if p.MainCategoryName != "" {
			fmt.Printf("  Category:     %s", p.MainCategoryName)
			if p.SubCategoryName != "" {
				fmt.Printf(" / %s", p.SubCategoryName)
			}
			fmt.Println()
		}
		if p.Manufacturer != "" {
			fmt.Printf("  Manufacturer: %s\n", p.Manufacturer)
		}
		if p.ModelNumber != "" {
			fmt.Printf("  Model:        %s\n", p.ModelNumber)
		}
		fmt.Printf("  Price:        %s\n", money(p.SellingPrice))
		fmt.Printf("  Stock:        %d\n", p.CurrentStock)
		fmt.Printf("  Tracking:     %s\n", tracking(p))
		return nil
	},
}

var productsAddCmd = &cobra.Command{
	Use:   "add [sku] [name] [price]",
	Short: "Add a new product",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		price, err := parseAmount(args[2])
		if err != nil {
			return err
		}

		p := domain.NewProduct(args[1], args[0], price)
		p.MainCategoryName, _ = cmd.Flags().GetString("category")
		p.SubCategoryName, _ = cmd.Flags().GetString("subcategory")
		p.Manufacturer, _ = cmd.Flags().GetString("manufacturer")
		p.ModelNumber, _ = cmd.Flags().GetString("model")
		p.CurrentStock, _ = cmd.Flags().GetInt("stock")
		p.IsSerialTracked, _ = cmd.Flags().GetBool("serial")
		p.IsBatchTracked, _ = cmd.Flags().GetBool("batch")

		if err := appInstance.ProductRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		fmt.Printf("✓ Product created: %s %s (ID: %d)\n", p.SKU, p.Name, p.ID)
		return nil
	},
}

var productsEditCmd = &cobra.Command{
	Use:   "edit [id_or_sku]",
	Short: "Edit a product's catalog fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProduct(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}

		fields := map[string]*string{
			"name":         &p.Name,
			"category":     &p.MainCategoryName,
			"subcategory":  &p.SubCategoryName,
			"manufacturer": &p.Manufacturer,
			"model":        &p.ModelNumber,
		}
		for flag, field := range fields {
			if cmd.Flags().Changed(flag) {
				*field, _ = cmd.Flags().GetString(flag)
			}
		}
		if cmd.Flags().Changed("price") {
			s, _ := cmd.Flags().GetString("price")
			if p.SellingPrice, err = parseAmount(s); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("serial") {
			p.IsSerialTracked, _ = cmd.Flags().GetBool("serial")
		}
		if cmd.Flags().Changed("batch") {
			p.IsBatchTracked, _ = cmd.Flags().GetBool("batch")
		}

		if err := appInstance.ProductRepo.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		fmt.Printf("✓ Product updated: %s\n", p.SKU)
		return nil
	},
}

var productsStockCmd = &cobra.Command{
	Use:   "stock [id_or_sku] [delta]",
	Short: "Adjust on-hand stock by a signed amount (e.g. +10, -2)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProduct(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}

		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid stock delta '%s'", args[1])
		}

		if err := appInstance.ProductRepo.AdjustStock(ctx, p.ID, delta); err != nil {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}

		fmt.Printf("✓ Stock for %s: %d -> %d\n", p.SKU, p.CurrentStock, p.CurrentStock+delta)
		return nil
	},
}

func tracking(p *domain.Product) string {
	switch {
	case p.IsSerialTracked && p.IsBatchTracked:
		return "serial+batch"
	case p.IsSerialTracked:
		return "serial"
	case p.IsBatchTracked:
		return "batch"
	default:
		return "-"
	}
}

func init() {
	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsShowCmd)
	productsCmd.AddCommand(productsAddCmd)
	productsCmd.AddCommand(productsEditCmd)
	productsCmd.AddCommand(productsStockCmd)

	for _, c := range []*cobra.Command{productsAddCmd, productsEditCmd} {
		c.Flags().String("category", "", "Main category")
		c.Flags().String("subcategory", "", "Sub category")
		c.Flags().String("manufacturer", "", "Manufacturer")
		c.Flags().String("model", "", "Model number")
		c.Flags().Bool("serial", false, "Stock is tracked by serial number")
		c.Flags().Bool("batch", false, "Stock is tracked by batch")
	}
	productsAddCmd.Flags().Int("stock", 0, "Initial on-hand stock")
	productsEditCmd.Flags().String("name", "", "New name")
	productsEditCmd.Flags().String("price", "", "New selling price")
}
