// Command tola is the CLI entry point: init/build/serve/validate/fix.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tola:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tola",
		Short: "tola builds and serves a Typst/Markdown static site",
	}
	root.AddCommand(newInitCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newFixCmd())
	return root
}
