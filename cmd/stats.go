package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:               "stats <file>",
		Short:             "Show node and edge counts",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityFileCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			g, _ := loadGraph(args[0])
			stats := g.GetStats()

			if asJSON {
				data, _ := json.MarshalIndent(stats, "", "  ")
				fmt.Println(string(data))
				return
			}

			ui.Banner("graph statistics")
			fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-16s", "Nodes"), stats.Nodes)
			fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-16s", "Edges"), stats.Edges)
			for _, o := range []graph.Origin{graph.OriginRoot, graph.OriginExplicit, graph.OriginKeyword} {
				fmt.Printf("  %s  %d\n", ui.Subtle.Sprintf("%-16s", "  "+string(o)), stats.ByOrigin[o])
			}

			kinds := make([]string, 0, len(stats.Kinds))
			for k := range stats.Kinds {
				kinds = append(kinds, string(k))
			}
			sort.Strings(kinds)
			fmt.Println()
			ui.Heading("By kind")
			for _, k := range kinds {
				fmt.Printf("  %s  %d\n", ui.Subtle.Sprintf("%-16s", "  "+k), stats.Kinds[graph.Kind(k)])
			}

			if unreachable := len(g.Nodes) - len(g.Reachable()); unreachable > 0 {
				fmt.Printf("\n  %s %d nodes unreachable from root\n", ui.WarnIcon(), unreachable)
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
