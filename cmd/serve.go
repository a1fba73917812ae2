package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msalah0e/orbit/internal/entity"
	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/serve"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		file      string
		fromStore bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live, draggable layout in the browser",
		Long: `Start an HTTP server with a live view of the graph. Every browser tab gets its
own simulation; dragging a node moves it and the rest of the graph reacts.

  orbit serve --file projects.toml
  orbit serve --store --addr :8080`,
		Run: func(cmd *cobra.Command, args []string) {
			if (file == "") == !fromStore {
				ui.Bad.Println("  Pass exactly one of --file or --store")
				os.Exit(1)
			}

			var source serve.Source
			label := file
			if fromStore {
				db := openStore()
				defer db.Close()
				source = db.List
				label = db.Path()
			} else {
				source = func() ([]graph.Entity, error) { return entity.LoadFile(file) }
			}
			if _, err := source(); err != nil {
				ui.Bad.Printf("  Failed to load entities: %v\n", err)
				os.Exit(1)
			}

			if addr == "" {
				addr = cfg.Serve.Addr
			}
			srv := serve.New(source, serve.Options{
				Params:        cfg.Params(),
				Graph:         cfg.GraphOptions(),
				FrameInterval: time.Duration(cfg.Serve.FrameIntervalMS) * time.Millisecond,
				Logger:        logger,
			})

			ui.Banner("serve")
			fmt.Printf("  Source:   %s\n", ui.Brand.Sprint(label))
			fmt.Printf("  Open:     %s\n", ui.Info.Sprintf("http://%s/", addr))
			fmt.Println(ui.Subtle.Sprint("  Ctrl-C to stop"))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				ui.Bad.Printf("  Server failed: %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&file, "file", "", "Entity file to serve")
	cmd.Flags().BoolVar(&fromStore, "store", false, "Serve the local entity store")
	return cmd
}
