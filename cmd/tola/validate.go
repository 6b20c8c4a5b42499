package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	tola "github.com/tola-rs/tola"
)

func newValidateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run link and asset checks across the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tola.LoadSiteConfig(filepath.Join(dir, "tola.toml"))
			if err != nil {
				return err
			}
			orch := tola.NewOrchestrator(dir, cfg)
			report, conflicts, err := orch.Validate()
			if err != nil {
				return err
			}
			fmt.Print(report.String())
			if !report.Empty() || len(conflicts) > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "site root directory")
	return cmd
}
