package indexes

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlasdesk/atlasdesk/apps/cli/runtime"
	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// Command groups index provisioning operations.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Apply and verify tenant index catalogs",
	}
	cmd.AddCommand(ensureCommand())
	cmd.AddCommand(verifyCommand())
	return cmd
}

func ensureCommand() *cobra.Command {
	var all bool

	c := &cobra.Command{
		Use:   "ensure [tenant-id]",
		Short: "Apply the index catalog to one tenant schema, or all with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			var schemas []string
			if all {
				records, err := rt.Registry.ListActive(ctx)
				if err != nil {
					return err
				}
				for _, rec := range records {
					schemas = append(schemas, rec.SchemaName)
				}
			} else {
				if len(args) != 1 {
					return fmt.Errorf("a tenant id is required unless --all is set")
				}
				id, err := rt.Validator.Validate(ctx, args[0], "cli_indexes_ensure")
				if err != nil {
					return err
				}
				schemas = append(schemas, tenant.SchemaName(id))
			}

			for _, schema := range schemas {
				applied, failures, err := rt.Indexes.EnsureIndexes(ctx, schema)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d indexes applied, %d failed.\n", schema, applied, len(failures))
			}
			return nil
		},
	}

	c.Flags().BoolVar(&all, "all", false, "Apply to every active tenant")
	return c
}

func verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <tenant-id>",
		Short: "Check one tenant schema against the index catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := rt.Validator.Validate(ctx, args[0], "cli_indexes_verify")
			if err != nil {
				return err
			}

			complete, err := rt.Indexes.Verify(ctx, tenant.SchemaName(id))
			if err != nil {
				return err
			}
			if !complete {
				fmt.Fprintf(cmd.OutOrStdout(), "Index set INCOMPLETE for tenant %s.\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index set complete for tenant %s.\n", id)
			return nil
		},
	}
}
