package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "structurize",
	Short: "Rewrite a CFG into structured control flow",
	Long: `structurize rewrites an arbitrary reducible-or-irreducible control-flow
graph into a form satisfying structured control flow rules: explicit
selection_merge/loop_merge annotations with unique merge and continue
targets.`,
}

// Execute runs the CLI's root command.
func Execute() error {
	return rootCmd.Execute()
}
