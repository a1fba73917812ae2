package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/msalah0e/orbit/internal/activity"
	"github.com/msalah0e/orbit/internal/cache"
	"github.com/msalah0e/orbit/internal/entity"
	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/layout"
	"github.com/msalah0e/orbit/internal/parallel"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// run is one settled layout.
type run struct {
	Graph   *graph.Graph
	Summary layout.Summary
	Cached  bool
	Elapsed time.Duration
}

// settleEntities builds and settles a graph, consulting the layout cache unless
// noCache is set.
func settleEntities(entities []graph.Entity, noCache bool) (*run, error) {
	params, opts := cfg.Params(), cfg.GraphOptions()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid physics config: %w", err)
	}
	start := time.Now()

	key := cache.Key(entities, opts, params)
	if !noCache {
		entry, ok, err := cache.Get(key)
		if err != nil {
			logger.Warn("cache read failed", zap.Error(err))
		}
		if ok {
			return &run{Graph: entry.Graph, Summary: entry.Summary, Cached: true, Elapsed: time.Since(start)}, nil
		}
	}

	e := layout.New(params, layout.WithLogger(logger))
	e.Load(graph.Build(entities, opts))
	sum := e.Settle()
	g := e.Snapshot()

	if err := cache.Put(key, g, sum); err != nil {
		logger.Warn("cache write failed", zap.Error(err))
	}
	return &run{Graph: g, Summary: sum, Elapsed: time.Since(start)}, nil
}

func layoutFile(path string, noCache bool) (*run, error) {
	entities, err := entity.LoadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := settleEntities(entities, noCache)
	if err != nil {
		return nil, err
	}
	if err := activity.LogRun(path, r.Summary.Frames, string(r.Summary.Reason), r.Cached, r.Elapsed); err != nil {
		logger.Debug("activity log write failed", zap.Error(err))
	}
	return r, nil
}

func render(g *graph.Graph, format, selected string) ([]byte, error) {
	switch format {
	case "json":
		data, err := g.ExportJSON()
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "dot":
		return []byte(g.ExportDOT()), nil
	case "svg":
		return []byte(g.ExportSVG(selected)), nil
	}
	return nil, fmt.Errorf("unknown format %q (want json, dot or svg)", format)
}

func outputPath(input, dir, format string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+"."+format)
}

func describe(r *run) string {
	s := fmt.Sprintf("%d frames, %s", r.Summary.Frames, r.Summary.Reason)
	if r.Cached {
		s += ", cached"
	}
	return ui.Subtle.Sprint("(" + s + ")")
}

func layoutCmd() *cobra.Command {
	var (
		format   string
		outDir   string
		noCache  bool
		selected string
	)

	cmd := &cobra.Command{
		Use:   "layout <file|glob>...",
		Short: "Settle entity files into graph layouts",
		Long: `Build a graph from each entity file, run the simulation to rest and export it.

  orbit layout projects.toml                  # JSON to stdout
  orbit layout projects.toml --format svg --select web > graph.svg
  orbit layout 'boards/**/*.yaml' --out build # one file per input, in parallel`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: entityFileCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := render(&graph.Graph{}, format, ""); err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			files, err := entity.Expand(args)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			if len(files) == 1 && outDir == "" {
				r, err := layoutFile(files[0], noCache)
				if err != nil {
					ui.Bad.Printf("  Failed to lay out %s: %v\n", files[0], err)
					os.Exit(1)
				}
				data, err := render(r.Graph, format, selected)
				if err != nil {
					ui.Bad.Printf("  Failed to export: %v\n", err)
					os.Exit(1)
				}
				os.Stdout.Write(data)
				return
			}

			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					ui.Bad.Printf("  Failed to create %s: %v\n", outDir, err)
					os.Exit(1)
				}
			}

			ui.Banner(fmt.Sprintf("layout · %d files", len(files)))

			tasks := make([]parallel.Task, len(files))
			for i, path := range files {
				path := path
				tasks[i] = parallel.Task{
					Name: path,
					Fn: func(context.Context) (string, error) {
						r, err := layoutFile(path, noCache)
						if err != nil {
							return "", err
						}
						data, err := render(r.Graph, format, selected)
						if err != nil {
							return "", err
						}
						out := outputPath(path, outDir, format)
						if err := os.WriteFile(out, data, 0o644); err != nil {
							return "", err
						}
						return "→ " + out + " " + describe(r), nil
					},
				}
			}

			concurrency := 1
			if cfg.Parallel.Enabled {
				concurrency = cfg.Parallel.Concurrency
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			results := parallel.Run(ctx, os.Stdout, tasks, concurrency)
			failed := parallel.Failed(results)
			fmt.Printf("\n  %d laid out", len(results)-failed)
			if failed > 0 {
				fmt.Printf(" · %d failed\n", failed)
				os.Exit(1)
			}
			fmt.Println()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: json, dot or svg")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write one file per input into this directory")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Always run the simulation, ignoring cached layouts")
	cmd.Flags().StringVar(&selected, "select", "", "Highlight edges of this node (svg)")
	_ = cmd.RegisterFlagCompletionFunc("format", formatCompletionFunc)

	return cmd
}
