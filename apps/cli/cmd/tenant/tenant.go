package tenant

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/atlasdesk/atlasdesk/apps/cli/runtime"
)

// Command groups tenant registry operations.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage the tenant registry",
	}
	cmd.AddCommand(createCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(deactivateCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var displayName string

	c := &cobra.Command{
		Use:   "create",
		Short: "Register a new tenant and provision its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			id := uuid.New()
			rec, err := rt.Registry.Create(ctx, id, displayName)
			if err != nil {
				return err
			}
			if err := rt.Recovery.RecreateStructure(ctx, rec.TenantID); err != nil {
				return fmt.Errorf("provision schema for %s: %w", rec.TenantID, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s created (schema %s).\n", rec.TenantID, rec.SchemaName)
			return nil
		},
	}

	c.Flags().StringVar(&displayName, "display-name", "", "Human readable tenant name")
	return c
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			records, err := rt.Registry.ListActive(ctx)
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", rec.TenantID, rec.SchemaName, rec.DisplayName)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d active tenants.\n", len(records))
			return nil
		},
	}
}

func deactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <tenant-id>",
		Short: "Mark a tenant inactive; its schema is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}
			if err := rt.Registry.SetActive(ctx, id, false); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s deactivated.\n", id)
			return nil
		},
	}
}
