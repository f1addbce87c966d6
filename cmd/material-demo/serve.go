package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-material/internal/demo"
)

const serveExample = `  # In-memory store with sample records
  material-demo serve --seed

  # PostgreSQL
  MATERIAL_DATABASE_DSN=postgres://localhost/material?sslmode=disable material-demo serve`

func (a *app) newServeCmd() *cobra.Command {
	var (
		addr string
		seed bool
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the demo site",
		Example: serveExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			site, closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if seed {
				n, err := site.Seed(ctx)
				if err != nil {
					return err
				}
				a.logger.Info("demo: seeded sample records", zap.Int("records", n))
			}

			srv, err := demo.NewServer(ctx, *a.cfg, site, a.logger)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Addr
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides the addr setting)")
	cmd.Flags().BoolVar(&seed, "seed", false, "Load the bundled sample records before serving")
	return cmd
}
