// meshforge - triangle mesh cleaner and vertex cache optimizer.
//
// Loads OBJ, STL and glTF/GLB models, repairs their topology, reorders
// faces and vertices for the GPU post-transform cache, and writes OBJ or
// GLB again.
//
// Commands:
//
//	optimize    - Clean and optimize one or more models
//	validate    - Report topology defects
//	info        - Display model information
//	config init - Write the default config file
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/taigrr/meshforge/internal/config"
	"github.com/taigrr/meshforge/internal/logger"
)

var version = "dev"

// cfg is the merged configuration, set before any command runs.
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := fang.Execute(ctx, newRootCmd(), fang.WithVersion(version))
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "meshforge",
		Short: "Triangle mesh cleaner and vertex cache optimizer",
		Long: `meshforge - triangle mesh cleaner and vertex cache optimizer

Repairs mesh topology (bowties, one-sided and back-facing adjacency,
degenerate faces) and reorders faces and vertices for the GPU vertex
cache. Reads OBJ, STL, glTF and GLB; writes OBJ and GLB.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.ApplyFlags(loaded, cmd.Flags()); err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			return logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./meshforge.yaml, then the user config dir)")
	config.AddLoggingFlags(root.PersistentFlags())

	root.AddCommand(
		newOptimizeCmd(),
		newValidateCmd(),
		newInfoCmd(),
		newConfigCmd(),
	)
	return root
}
