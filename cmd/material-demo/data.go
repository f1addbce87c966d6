package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-material/pkg/fixtures"
)

func (a *app) newLoadDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loaddata <file>",
		Short: "Load records from a YAML fixture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			site, closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := site.LoadFixtures(ctx, f)
			if err != nil {
				return err
			}
			cmd.Printf("Installed %d object(s) from %s\n", n, args[0])
			return nil
		},
	}
}

func (a *app) newDumpDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dumpdata [app.model...]",
		Short: "Write records as a YAML fixture to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			site, closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			models := site.Models()
			if len(args) > 0 {
				models = nil
				registry := site.Registry()
				for _, label := range args {
					m, ok := registry.Lookup(label)
					if !ok {
						return fmt.Errorf("%w: %q", fixtures.ErrUnknownModel, label)
					}
					models = append(models, m)
				}
			}
			return fixtures.Dump(ctx, cmd.OutOrStdout(), models...)
		},
	}
}
