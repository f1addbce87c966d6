// Package fixtures loads and dumps records in the YAML fixture format:
//
//	- model: geo.country
//	  pk: 1
//	  fields:
//	    name: Portugal
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-material/pkg/model"
)

// ErrUnknownModel is returned for entries naming an unregistered model.
var ErrUnknownModel = errors.New("fixtures: unknown model")

// Registry resolves "<app>.<model>" labels.
type Registry interface {
	Lookup(label string) (model.Model, bool)
}

// Models is a Registry over a fixed set of models.
type Models map[string]model.Model

// NewModels indexes models by label.
func NewModels(models ...model.Model) Models {
	out := make(Models, len(models))
	for _, m := range models {
		out[m.Meta().Label()] = m
	}
	return out
}

func (m Models) Lookup(label string) (model.Model, bool) {
	found, ok := m[strings.ToLower(strings.TrimSpace(label))]
	return found, ok
}

// Entry is one fixture record.
type Entry struct {
	Model  string         `yaml:"model"`
	PK     int64          `yaml:"pk,omitempty"`
	Fields map[string]any `yaml:"fields"`
}

// Load saves every entry of r in one transaction of the first entry's
// manager, so all models must share a database. It returns the number of
// records saved.
func Load(ctx context.Context, reg Registry, r io.Reader) (int, error) {
	var entries []Entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("fixtures: decode: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	models := make([]model.Model, len(entries))
	for i, entry := range entries {
		m, ok := reg.Lookup(entry.Model)
		if !ok {
			return 0, fmt.Errorf("%w: %q (entry %d)", ErrUnknownModel, entry.Model, i)
		}
		models[i] = m
	}

	saved := 0
	err := models[0].Manager().Atomic(ctx, func(ctx context.Context) error {
		for i, entry := range entries {
			rec := models[i].New()
			if err := model.Assign(rec, entry.Fields); err != nil {
				return fmt.Errorf("fixtures: entry %d (%s): %w", i, entry.Model, err)
			}
			rec.SetPrimaryKey(entry.PK)
			if err := models[i].Manager().Save(ctx, rec); err != nil {
				return fmt.Errorf("fixtures: save entry %d (%s): %w", i, entry.Model, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// Dump writes every record of models as fixture entries.
func Dump(ctx context.Context, w io.Writer, models ...model.Model) error {
	var entries []Entry
	for _, m := range models {
		recs, err := m.Manager().All(ctx).Records(ctx)
		if err != nil {
			return fmt.Errorf("fixtures: dump %s: %w", m.Meta().Label(), err)
		}
		for _, rec := range recs {
			fields := model.Values(rec)
			delete(fields, "id")
			entries = append(entries, Entry{Model: m.Meta().Label(), PK: rec.PrimaryKey(), Fields: fields})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Model < entries[j].Model })

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("fixtures: encode: %w", err)
	}
	return enc.Close()
}
