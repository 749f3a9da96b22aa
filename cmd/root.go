package cmd

import (
	"github.com/spf13/cobra"
)

var (
	DbPath string
)

// RegisterCommands adds all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(dependentsCmd())
	rootCmd.AddCommand(depsCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(pushCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(viewCmd())
}
