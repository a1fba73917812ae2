package cmd

import (
	"fmt"
	"os"

	"github.com/msalah0e/orbit/internal/cache"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the settled layout cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show cache location and size",
			Run: func(cmd *cobra.Command, args []string) {
				count, size, err := cache.Size()
				if err != nil {
					ui.Bad.Printf("  Failed to read cache: %v\n", err)
					os.Exit(1)
				}
				ui.Banner("layout cache")
				fmt.Printf("  Location: %s\n", cache.Dir())
				fmt.Printf("  Layouts:  %d\n", count)
				fmt.Printf("  Size:     %s\n", formatBytes(size))
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached layout",
			Run: func(cmd *cobra.Command, args []string) {
				if err := cache.Clear(); err != nil {
					ui.Bad.Printf("  Failed to clear cache: %v\n", err)
					os.Exit(1)
				}
				ui.Good.Printf("  %s Layout cache cleared\n", ui.StatusIcon(true))
			},
		},
	)

	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
