package bootstrap

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlasdesk/atlasdesk/apps/cli/runtime"
	"github.com/atlasdesk/atlasdesk/platform/persistence"
)

// Command creates the admin schema and the tenant registry table. Idempotent;
// safe to run on every deploy.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the admin schema and tenant registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := persistence.BootstrapAdminSchema(ctx, rt.Pool, rt.Config.AdminSchema); err != nil {
				return fmt.Errorf("bootstrap admin schema: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Admin schema %q ready.\n", rt.Config.AdminSchema)
			return nil
		},
	}
}
