package recovery

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlasdesk/atlasdesk/apps/cli/runtime"
)

// Command groups schema diagnosis and recovery operations.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Diagnose and repair tenant schemas",
	}
	cmd.AddCommand(diagnoseCommand())
	cmd.AddCommand(runCommand())
	cmd.AddCommand(restoreCommand())
	cmd.AddCommand(seedCommand())
	return cmd
}

func diagnoseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Sweep all active tenants for missing or corrupt schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.Recovery.Diagnose(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Healthy: %d\n", len(report.Healthy))
			for _, id := range report.Missing {
				fmt.Fprintf(cmd.OutOrStdout(), "MISSING: %s\n", id)
			}
			for _, c := range report.Corrupt {
				fmt.Fprintf(cmd.OutOrStdout(), "CORRUPT: %s (%v)\n", c.TenantID, c.Issues)
			}
			if !report.Degraded() {
				fmt.Fprintln(cmd.OutOrStdout(), "All tenant schemas healthy.")
			}
			return nil
		},
	}
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run complete recovery across all active tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, err := rt.Recovery.PerformCompleteRecovery(ctx)
			if err != nil {
				return err
			}

			for _, outcome := range summary.Tenants {
				line := fmt.Sprintf("%s: %s", outcome.TenantID, outcome.State)
				if outcome.Restored {
					line += " (restored from backup)"
				}
				if outcome.Seeded {
					line += " (demo data seeded)"
				}
				if outcome.Err != "" {
					line += " ERROR: " + outcome.Err
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d, failed %d (of %d).\n",
				summary.Recovered, summary.Failed, len(summary.Tenants))
			return nil
		},
	}
}

func restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <tenant-id>",
		Short: "Recreate one tenant's structure and restore from its newest backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := rt.Validator.Validate(ctx, args[0], "cli_recovery_restore")
			if err != nil {
				return err
			}

			if err := rt.Recovery.RecreateStructure(ctx, id); err != nil {
				return err
			}
			restored, err := rt.Recovery.RecoverFromBackup(ctx, id)
			if err != nil {
				return err
			}
			if !restored {
				fmt.Fprintf(cmd.OutOrStdout(), "No usable backup for %s; run `recovery seed %s` to seed demo data.\n", id, id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s restored from backup.\n", id)
			return nil
		},
	}
}

func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <tenant-id>",
		Short: "Seed the minimal demo data set into one tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := runtime.New(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := rt.Validator.Validate(ctx, args[0], "cli_recovery_seed")
			if err != nil {
				return err
			}

			seeded, err := rt.Recovery.SeedDemoData(ctx, id)
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s already has data; nothing seeded.\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Demo data seeded for tenant %s.\n", id)
			return nil
		},
	}
}
