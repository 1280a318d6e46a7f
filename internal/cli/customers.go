package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/invoicedesk/internal/domain"
)

var customersCmd = &cobra.Command{
	Use:     "customers",
	Aliases: []string{"customer"},
	Short:   "Manage customers",
	Long:    `List, add, edit, and archive customers.`,
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		includeArchived, _ := cmd.Flags().GetBool("archived")

		customers, err := appInstance.CustomerRepo.List(ctx, includeArchived)
		if err != nil {
			return fmt.Errorf("failed to list customers: %w", err)
		}

		if len(customers) == 0 {
			fmt.Println("No customers found")
			return nil
		}

		fmt.Printf("%-5s %-30s %-28s %-10s\n", "ID", "Name", "Email", "Status")
		fmt.Println("------------------------------------------------------------------------------")

		for _, customer := range customers {
			status := "Active"
			if customer.IsArchived {
				status = "Archived"
			}
			fmt.Printf("%-5d %-30s %-28s %-10s\n",
				customer.ID,
				truncate(customer.Name, 30),
				truncate(customer.Email, 28),
				status,
			)
		}

		fmt.Printf("\nTotal: %d customer(s)\n", len(customers))
		return nil
	},
}

var customersAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customer := domain.NewCustomer(args[0])
		customer.Email, _ = cmd.Flags().GetString("email")
		customer.Phone, _ = cmd.Flags().GetString("phone")
		customer.Address, _ = cmd.Flags().GetString("address")
		customer.Notes, _ = cmd.Flags().GetString("notes")

		if err := appInstance.CustomerRepo.Create(ctx, customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}

		fmt.Printf("✓ Customer created: %s (ID: %d)\n", customer.Name, customer.ID)
		return nil
	},
}

var customersEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit an existing customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "customer")
		if err != nil {
			return err
		}

		customer, err := appInstance.CustomerRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get customer: %w", err)
		}

		fields := map[string]*string{
			"name":    &customer.Name,
			"email":   &customer.Email,
			"phone":   &customer.Phone,
			"address": &customer.Address,
			"notes":   &customer.Notes,
		}
		for flag, field := range fields {
			if cmd.Flags().Changed(flag) {
				*field, _ = cmd.Flags().GetString(flag)
			}
		}

		if err := appInstance.CustomerRepo.Update(ctx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}

		fmt.Printf("✓ Customer updated: %s\n", customer.Name)
		return nil
	},
}

var customersArchiveCmd = &cobra.Command{
	Use:   "archive [id]",
	Short: "Archive a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "customer")
		if err != nil {
			return err
		}

		if err := appInstance.CustomerRepo.Archive(ctx, id); err != nil {
			return fmt.Errorf("failed to archive customer: %w", err)
		}

		fmt.Printf("✓ Customer archived (ID: %d)\n", id)
		return nil
	},
}

var customersUnarchiveCmd = &cobra.Command{
	Use:   "unarchive [id]",
	Short: "Unarchive a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "customer")
		if err != nil {
			return err
		}

		if err := appInstance.CustomerRepo.Unarchive(ctx, id); err != nil {
			return fmt.Errorf("failed to unarchive customer: %w", err)
		}

		fmt.Printf("✓ Customer unarchived (ID: %d)\n", id)
		return nil
	},
}

func init() {
	customersCmd.AddCommand(customersListCmd)
	customersCmd.AddCommand(customersAddCmd)
	customersCmd.AddCommand(customersEditCmd)
	customersCmd.AddCommand(customersArchiveCmd)
	customersCmd.AddCommand(customersUnarchiveCmd)

	customersListCmd.Flags().Bool("archived", false, "Include archived customers")

	for _, c := range []*cobra.Command{customersAddCmd, customersEditCmd} {
		c.Flags().String("email", "", "Customer email")
		c.Flags().String("phone", "", "Customer phone")
		c.Flags().String("address", "", "Billing address")
		c.Flags().String("notes", "", "Notes about the customer")
	}
	customersEditCmd.Flags().String("name", "", "New name")
}
