package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	tola "github.com/tola-rs/tola"
)

func newInitCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new tola site in the given directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to scaffold the site in")
	return cmd
}

func runInit(dir string) error {
	cfg := tola.DefaultSiteConfig()

	dirs := []string{
		filepath.Join(dir, cfg.ContentRoot),
		filepath.Join(dir, cfg.StaticDir),
		filepath.Join(dir, cfg.LayoutsDir),
		filepath.Join(dir, "templates"),
		filepath.Join(dir, "utils"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("tola init: %w", err)
		}
	}

	configPath := filepath.Join(dir, "tola.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := tola.WriteSiteConfig(configPath, cfg); err != nil {
			return fmt.Errorf("tola init: write config: %w", err)
		}
	}

	indexPath := filepath.Join(dir, cfg.ContentRoot, "index.typ")
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		sample := "#import \"/templates/tola.typ\": page\n\n#show: page.with(title: \"Welcome\")\n\n= Welcome to tola\n\nEdit content/index.typ to get started.\n"
		if err := os.WriteFile(indexPath, []byte(sample), 0644); err != nil {
			return fmt.Errorf("tola init: write sample page: %w", err)
		}
	}

	results, err := tola.RunFix(dir, func(string) bool { return true })
	if err != nil {
		return fmt.Errorf("tola init: fix: %w", err)
	}
	for _, r := range results {
		fmt.Println(tola.FormatFixResult(r))
	}

	fmt.Println("tola: initialized site in", dir)
	return nil
}
