package demo

import (
	"context"
	"embed"
	"io"

	"github.com/goliatone/go-material/pkg/fixtures"
)

//go:embed fixtures/demo.yaml
var seedFixtures embed.FS

// Registry resolves the demo model labels for fixtures.
func (a *App) Registry() fixtures.Models {
	return fixtures.NewModels(a.Models()...)
}

// LoadFixtures saves the records of r. On PostgreSQL the id sequences are
// moved past the loaded primary keys afterwards.
func (a *App) LoadFixtures(ctx context.Context, r io.Reader) (int, error) {
	n, err := fixtures.Load(ctx, a.Registry(), r)
	if err != nil || a.sql == nil {
		return n, err
	}
	if err := ResetSequences(ctx, a.sql.DB()); err != nil {
		return n, err
	}
	return n, nil
}

// Seed loads the bundled sample records.
func (a *App) Seed(ctx context.Context) (int, error) {
	f, err := seedFixtures.Open("fixtures/demo.yaml")
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return a.LoadFixtures(ctx, f)
}
