package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	tola "github.com/tola-rs/tola"
)

func newBuildCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tola.LoadSiteConfig(filepath.Join(dir, "tola.toml"))
			if err != nil {
				return err
			}
			orch := tola.NewOrchestrator(dir, cfg)
			if err := orch.Build(); err != nil {
				return err
			}
			fmt.Println("tola: build complete ->", orch.OutputDir())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "site root directory")
	return cmd
}
