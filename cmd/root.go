package cmd

import (
	"github.com/msalah0e/orbit/internal/config"
	"github.com/msalah0e/orbit/internal/observability"
	"github.com/msalah0e/orbit/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.3.0"

var (
	cfg      *config.Config
	logger   = zap.NewNop()
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "orbit",
	Short: "orbit · force-directed project graphs",
	Long: ui.Brand.Sprint(ui.Orbit+" orbit") + " · lay out your projects as a relationship graph\n" +
		ui.Subtle.Sprint("Links come from explicit references and shared [keywords]"),
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger = observability.New(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.SetVersionTemplate("orbit {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		layoutCmd(),
		linksCmd(),
		showCmd(),
		statsCmd(),
		storeCmd(),
		serveCmd(),
		configCmd(),
		actlogCmd(),
		cacheCmd(),
		completionCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
