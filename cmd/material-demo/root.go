package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-material/internal/demo"
	"github.com/goliatone/go-material/pkg/config"
	"github.com/goliatone/go-material/pkg/logging"
	"github.com/goliatone/go-material/pkg/prompt"
)

// app carries the state shared by every subcommand once the root command
// has loaded the configuration.
type app struct {
	configFile string
	envFiles   []string

	cfg     *config.Config
	logger  *zap.Logger
	prompts prompt.Driver
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "material-demo",
		Short:         "Material frontend demo site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Config file (yaml, json or toml)")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "Dotenv files to load (default .env)")

	root.AddCommand(
		a.newServeCmd(),
		a.newLoadDataCmd(),
		a.newDumpDataCmd(),
		a.newCreateCmd(),
	)
	return root
}

func (a *app) load() error {
	if err := config.LoadDotEnv(a.envFiles...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.Config{
		Level:       logging.ParseLevel(cfg.Log.Level),
		Development: cfg.Log.Development,
	}.New()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// open connects the demo models to the configured store.
func (a *app) open(ctx context.Context) (*demo.App, func() error, error) {
	return demo.Open(ctx, a.cfg.Database, a.logger)
}
