package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/invoicedesk/internal/domain"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage customer projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customerID, err := customerFilter(ctx, cmd)
		if err != nil {
			return err
		}

		projects, err := appInstance.ProjectRepo.List(ctx, customerID)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects found")
			return nil
		}

		fmt.Printf("%-5s %-10s %-40s\n", "ID", "Customer", "Name")
		fmt.Println("-------------------------------------------------------")
		for _, p := range projects {
			fmt.Printf("%-5d %-10d %-40s\n", p.ID, p.CustomerID, truncate(p.Name, 40))
		}
		return nil
	},
}

var projectsAddCmd = &cobra.Command{
	Use:   "add [customer_id_or_name] [name]",
	Short: "Add a project for a customer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customerID, err := resolveCustomerID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve customer: %w", err)
		}

		project := &domain.Project{CustomerID: customerID, Name: args[1]}
		if err := appInstance.ProjectRepo.Create(ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		fmt.Printf("✓ Project created: %s (ID: %d)\n", project.Name, project.ID)
		return nil
	},
}

var quotationsCmd = &cobra.Command{
	Use:   "quotations",
	Short: "Manage quotation references",
}

var quotationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quotations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customerID, err := customerFilter(ctx, cmd)
		if err != nil {
			return err
		}

		quotations, err := appInstance.QuotationRepo.List(ctx, customerID)
		if err != nil {
			return fmt.Errorf("failed to list quotations: %w", err)
		}

		if len(quotations) == 0 {
			fmt.Println("No quotations found")
			return nil
		}

		fmt.Printf("%-5s %-10s %-30s %-12s\n", "ID", "Customer", "Reference", "Created")
		fmt.Println("-------------------------------------------------------------")
		for _, q := range quotations {
			fmt.Printf("%-5d %-10d %-30s %-12s\n",
				q.ID, q.CustomerID, truncate(q.Reference, 30), q.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var quotationsAddCmd = &cobra.Command{
	Use:   "add [customer_id_or_name] [reference]",
	Short: "Record a quotation reference for a customer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customerID, err := resolveCustomerID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve customer: %w", err)
		}

		quotation := &domain.Quotation{CustomerID: customerID, Reference: args[1]}
		if err := appInstance.QuotationRepo.Create(ctx, quotation); err != nil {
			return fmt.Errorf("failed to create quotation: %w", err)
		}

		fmt.Printf("✓ Quotation recorded: %s (ID: %d)\n", quotation.Reference, quotation.ID)
		return nil
	},
}

func customerFilter(ctx context.Context, cmd *cobra.Command) (*int64, error) {
	if !cmd.Flags().Changed("customer") {
		return nil, nil
	}
	s, _ := cmd.Flags().GetString("customer")
	id, err := resolveCustomerID(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}
	return &id, nil
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsAddCmd)
	quotationsCmd.AddCommand(quotationsListCmd)
	quotationsCmd.AddCommand(quotationsAddCmd)

	projectsListCmd.Flags().String("customer", "", "Filter by customer ID or name")
	quotationsListCmd.Flags().String("customer", "", "Filter by customer ID or name")
}
