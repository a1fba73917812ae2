package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/msalah0e/orbit/internal/activity"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
)

func actlogCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"activity", "logs"},
		Short:   "Activity log of layout runs and store changes",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("activity log")

			entries, err := activity.Read(count)
			if err != nil || len(entries) == 0 {
				fmt.Println("  No activity recorded yet.")
				fmt.Println("  Activity is logged by `orbit layout` and `orbit store`")
				return
			}

			var rows [][]string
			for _, e := range entries {
				rows = append(rows, []string{
					e.Timestamp.Format("Jan 02 15:04"),
					e.Action,
					truncateLog(e.Source, 28),
					runSummary(e),
					truncateLog(e.Details, 30),
				})
			}
			ui.Table([]string{"Time", "Action", "Source", "Run", "Details"}, rows)
			fmt.Printf("\n  Showing %d most recent entries\n", len(entries))
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "Number of entries to show")

	cmd.AddCommand(
		actlogSearchCmd(),
		actlogClearCmd(),
		actlogExportCmd(),
		actlogStatsCmd(),
	)

	return cmd
}

func runSummary(e activity.Entry) string {
	if e.Action != "layout" {
		return "-"
	}
	if e.Cached {
		return "cached"
	}
	return fmt.Sprintf("%d frames, %s, %s", e.Frames, e.Reason,
		formatDuration(time.Duration(e.Duration*float64(time.Second))))
}

func actlogSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search activity log entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			results, err := activity.Search(args[0], 50)
			if err != nil || len(results) == 0 {
				fmt.Printf("  No entries matching %q\n", args[0])
				return
			}

			ui.Banner("search results")
			var rows [][]string
			for _, e := range results {
				rows = append(rows, []string{
					e.Timestamp.Format("Jan 02 15:04"),
					e.Action,
					truncateLog(e.Source, 28),
					truncateLog(e.Details, 40),
				})
			}
			ui.Table([]string{"Time", "Action", "Source", "Details"}, rows)
			fmt.Printf("\n  %d results\n", len(results))
		},
	}
}

func actlogClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the activity log",
		Run: func(cmd *cobra.Command, args []string) {
			if err := activity.Clear(); err != nil {
				ui.Bad.Printf("  Failed to clear: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Activity log cleared\n", ui.StatusIcon(true))
		},
	}
}

func actlogExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export activity log as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := activity.Read(0)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			data, _ := json.MarshalIndent(entries, "", "  ")
			fmt.Println(string(data))
		},
	}
}

func actlogStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show activity statistics",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("activity stats")

			entries, err := activity.Read(0)
			if err != nil || len(entries) == 0 {
				fmt.Println("  No activity data")
				return
			}

			actionCounts := make(map[string]int)
			reasonCounts := make(map[string]int)
			var runs, cached, frames int
			for _, e := range entries {
				actionCounts[e.Action]++
				if e.Action != "layout" {
					continue
				}
				runs++
				if e.Cached {
					cached++
					continue
				}
				frames += e.Frames
				reasonCounts[e.Reason]++
			}

			fmt.Printf("  Total entries: %d\n\n", len(entries))

			ui.Heading("By action")
			for _, action := range sortedKeys(actionCounts) {
				fmt.Printf("    %-20s %d\n", action, actionCounts[action])
			}

			if runs == 0 {
				return
			}
			fmt.Println()
			ui.Heading("Layout runs")
			fmt.Printf("    %-20s %d\n", "cache hits", cached)
			for _, reason := range sortedKeys(reasonCounts) {
				fmt.Printf("    %-20s %d\n", reason, reasonCounts[reason])
			}
			if simulated := runs - cached; simulated > 0 {
				fmt.Printf("\n  Average frames: %.1f\n", float64(frames)/float64(simulated))
			}
		},
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

func truncateLog(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
