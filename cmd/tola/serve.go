package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	tola "github.com/tola-rs/tola"
)

func newServeCmd() *cobra.Command {
	var dir string
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build and serve the site, rebuilding on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tola.LoadSiteConfig(filepath.Join(dir, "tola.toml"))
			if err != nil {
				return err
			}
			if addr == "" {
				addr = fmt.Sprintf(":%d", cfg.Serve.Port)
			}
			orch := tola.NewOrchestrator(dir, cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			fmt.Println("tola: serving on", addr)
			return orch.Serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "site root directory")
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from tola.toml serve.port)")
	return cmd
}
