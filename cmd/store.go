package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/msalah0e/orbit/internal/activity"
	"github.com/msalah0e/orbit/internal/entity"
	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/store"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
)

func openStore() *store.DB {
	db, err := store.Open(cfg.StorePath())
	if err != nil {
		ui.Bad.Printf("  Failed to open store: %v\n", err)
		os.Exit(1)
	}
	return db
}

func storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the local entity store",
		Long: `Keep entities in a local SQLite database instead of files.

  orbit store import projects.toml
  orbit store list
  orbit store relink           # write keyword links back to every entity
  orbit store export out.yaml
  orbit serve --store          # live view of the store`,
	}

	cmd.AddCommand(
		storeImportCmd(),
		storeListCmd(),
		storeRemoveCmd(),
		storeRelinkCmd(),
		storeExportCmd(),
	)

	return cmd
}

func storeImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "import <file>...",
		Short:             "Import entities from files",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: entityFileCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			files, err := entity.Expand(args)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			var all []graph.Entity
			failed := 0
			for _, f := range files {
				entities, err := entity.LoadFile(f)
				if err != nil {
					fmt.Printf("  %s %s %s\n", ui.StatusIcon(false), f, ui.Subtle.Sprint(err))
					failed++
					continue
				}
				fmt.Printf("  %s %s %s\n", ui.StatusIcon(true), f, ui.Subtle.Sprintf("(%d entities)", len(entities)))
				all = append(all, entities...)
			}
			if failed > 0 {
				ui.Bad.Printf("\n  %d of %d files failed to load, nothing imported\n", failed, len(files))
				os.Exit(1)
			}

			db := openStore()
			defer db.Close()
			if err := db.PutAll(all); err != nil {
				ui.Bad.Printf("  Failed to import: %v\n", err)
				os.Exit(1)
			}
			_ = activity.Log("import", db.Path(), fmt.Sprintf("%d entities from %d files", len(all), len(files)))
			ui.Good.Printf("\n  Imported %d entities\n", len(all))
		},
	}
}

func storeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored entities",
		Run: func(cmd *cobra.Command, args []string) {
			db := openStore()
			defer db.Close()

			entities, err := db.List()
			if err != nil {
				ui.Bad.Printf("  Failed to list: %v\n", err)
				os.Exit(1)
			}

			ui.Banner("entity store")
			if len(entities) == 0 {
				fmt.Println("  Store is empty. Import a file:")
				ui.Info.Println("  orbit store import projects.toml")
				return
			}

			var rows [][]string
			for _, e := range entities {
				kind := string(e.Kind)
				if kind == "" {
					kind = string(graph.KindProject)
				}
				rows = append(rows, []string{e.ID, e.Label(), kind, strconv.Itoa(len(e.ExplicitLinks))})
			}
			ui.Table([]string{"ID", "Name", "Kind", "Links"}, rows)
			fmt.Printf("\n  %d entities in %s\n", len(entities), ui.Subtle.Sprint(db.Path()))
		},
	}
}

func storeRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an entity",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			db := openStore()
			defer db.Close()

			err := db.Delete(args[0])
			if errors.Is(err, store.ErrEntityNotFound) {
				ui.Warn.Printf("  %s No entity %q\n", ui.WarnIcon(), args[0])
				os.Exit(1)
			}
			if err != nil {
				ui.Bad.Printf("  Failed to remove: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Removed %s\n", ui.StatusIcon(true), args[0])
		},
	}
}

func storeRelinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relink",
		Short: "Merge keyword-derived links into every stored entity",
		Run: func(cmd *cobra.Command, args []string) {
			db := openStore()
			defer db.Close()

			changed, err := db.UpdateAllLinks()
			if err != nil {
				ui.Bad.Printf("  Failed to relink: %v\n", err)
				os.Exit(1)
			}
			_ = activity.Log("relink", db.Path(), fmt.Sprintf("%d entities changed", changed))
			if changed == 0 {
				fmt.Printf("  %s Links already up to date\n", ui.StatusIcon(true))
				return
			}
			ui.Good.Printf("  %s Updated links of %d entities\n", ui.StatusIcon(true), changed)
		},
	}
}

func storeExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write stored entities to a JSON, YAML or TOML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			db := openStore()
			defer db.Close()

			entities, err := db.List()
			if err != nil {
				ui.Bad.Printf("  Failed to list: %v\n", err)
				os.Exit(1)
			}
			if err := entity.SaveFile(args[0], entities); err != nil {
				ui.Bad.Printf("  Failed to export: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Exported %d entities to %s\n", ui.StatusIcon(true), len(entities), args[0])
		},
	}
}
