package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-material/pkg/fixtures"
	"github.com/goliatone/go-material/pkg/prompt"
)

func (a *app) newCreateCmd() *cobra.Command {
	var attempts int
	cmd := &cobra.Command{
		Use:     "create <app.model>",
		Short:   "Create a record interactively",
		Example: "  material-demo create geo.city",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			site, closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			m, ok := site.Registry().Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: %q", fixtures.ErrUnknownModel, args[0])
			}
			rec, err := prompt.Create(ctx, a.driver(cmd), m, nil, attempts)
			if err != nil {
				return err
			}
			cmd.Printf("Created %s #%d\n", m.Meta().Label(), rec.PrimaryKey())
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", prompt.DefaultAttempts, "Rounds allowed to fix validation errors")
	return cmd
}

// driver returns the injected driver, else the terminal one writing to the
// command output.
func (a *app) driver(cmd *cobra.Command) prompt.Driver {
	if a.prompts != nil {
		return a.prompts
	}
	return prompt.NewSurveyDriver(cmd.OutOrStdout())
}
