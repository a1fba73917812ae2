package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/orbit/internal/config"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(ui.Subtle.Sprintf("# %s", config.Path()))
				if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
					ui.Bad.Printf("  Failed to encode config: %v\n", err)
					os.Exit(1)
				}
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default configuration if none exists",
			Run: func(cmd *cobra.Command, args []string) {
				if err := config.EnsureExists(); err != nil {
					ui.Bad.Printf("  Failed to write config: %v\n", err)
					os.Exit(1)
				}
				ui.Good.Printf("  %s Config at %s\n", ui.StatusIcon(true), config.Path())
			},
		},
	)

	return cmd
}
