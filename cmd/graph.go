package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/msalah0e/orbit/internal/entity"
	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
)

func loadGraph(path string) (*graph.Graph, []graph.Entity) {
	entities, err := entity.LoadFile(path)
	if err != nil {
		ui.Bad.Printf("  Failed to load entities: %v\n", err)
		os.Exit(1)
	}
	return graph.Build(entities, cfg.GraphOptions()), entities
}

func showCmd() *cobra.Command {
	var settled bool

	cmd := &cobra.Command{
		Use:   "show <file> <id>",
		Short: "Show a node and its links",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			g, entities := loadGraph(args[0])
			if settled {
				r, err := settleEntities(entities, false)
				if err != nil {
					ui.Bad.Printf("  Failed to settle: %v\n", err)
					os.Exit(1)
				}
				g = r.Graph
			}

			out, err := graph.RenderShow(g, args[1],
				func(s string) string { return ui.Brand.Sprint(s) },
				func(s string) string { return ui.Subtle.Sprint(s) },
				func(s string) string { return ui.Info.Sprint(s) },
			)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			fmt.Println()
			fmt.Print(out)
			fmt.Println()
		},
	}

	cmd.Flags().BoolVar(&settled, "settled", false, "Report positions after the simulation settles")
	return cmd
}

func linksCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "links <file>",
		Short: "Show links derived from shared [keywords]",
		Long: `Entities whose descriptions share a bracketed keyword are related.
With --write the derived links are merged into each entity's explicit_links.

  orbit links projects.toml
  orbit links projects.toml --write`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityFileCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			entities, err := entity.LoadFile(args[0])
			if err != nil {
				ui.Bad.Printf("  Failed to load entities: %v\n", err)
				os.Exit(1)
			}

			ui.Banner("keyword links")
			derived := graph.DeriveLinks(entities)
			if len(derived) == 0 {
				fmt.Println("  No entities share a keyword.")
				return
			}

			var rows [][]string
			for _, e := range entities {
				related, ok := derived[e.ID]
				if !ok {
					continue
				}
				rows = append(rows, []string{
					e.ID,
					strings.Join(graph.ExtractKeywords(e.Description), ", "),
					strings.Join(related, ", "),
				})
			}
			ui.Table([]string{"Entity", "Keywords", "Related"}, rows)

			if !write {
				return
			}
			merged, changed := graph.MergeLinks(entities)
			if changed == 0 {
				fmt.Printf("\n  %s Links already up to date\n", ui.StatusIcon(true))
				return
			}
			if err := entity.SaveFile(args[0], merged); err != nil {
				ui.Bad.Printf("  Failed to write %s: %v\n", args[0], err)
				os.Exit(1)
			}
			ui.Good.Printf("\n  %s Updated links of %d entities in %s\n", ui.StatusIcon(true), changed, args[0])
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Merge derived links into the file")
	return cmd
}
