package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the AtlasDesk admin CLI. Subcommands
// (bootstrap, tenant, indexes, recovery) are attached here.
var rootCmd = &cobra.Command{
	Use:           "atlasdesk",
	Short:         "AtlasDesk platform admin CLI",
	Long:          "Administrative utilities for the AtlasDesk tenant data layer (bootstrap, tenant registry, index provisioning, schema recovery).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
