package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	tola "github.com/tola-rs/tola"
)

func newFixCmd() *cobra.Command {
	var dir string
	var yes bool
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Check and repair the embedded Typst helper files",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := confirmPrompt
			if yes {
				confirm = func(string) bool { return true }
			}
			results, err := tola.RunFix(dir, confirm)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("tola fix: no tracked files found (no templates/ or utils/ directory)")
				return nil
			}
			for _, r := range results {
				fmt.Println(tola.FormatFixResult(r))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "site root directory")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "create missing files without prompting")
	return cmd
}

func confirmPrompt(name string) bool {
	fmt.Printf("tola fix: create %s? [y/N] ", name)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
