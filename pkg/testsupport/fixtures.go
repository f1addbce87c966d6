// Package testsupport holds fixtures shared by package tests: a small record
// type with its model, golden file readers and output capture.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/store/memory"
)

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// CaptureTemplateOutput runs render against a buffer and returns the rendered
// string along with what was written.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}

// Widget is the record type used across view and viewset tests.
type Widget struct {
	model.Base
	Name   string `db:"name" json:"name"`
	Colour string `db:"colour" json:"colour"`
	Stock  int    `db:"stock" json:"stock"`
}

func (w *Widget) String() string { return w.Name }

// WidgetMeta names the widget model "shop.widget".
var WidgetMeta = model.Meta{AppLabel: "shop", ModelName: "widget"}

// NewWidgetModel returns a widget model on a fresh memory database, seeded
// with the given names.
func NewWidgetModel(t *testing.T, names ...string) (model.Model, *memory.DB) {
	t.Helper()

	db := memory.NewDB()
	m := model.Define(WidgetMeta, func() model.Record { return &Widget{} }, db.Manager("shop_widget"))
	for _, name := range names {
		if err := m.Manager().Save(context.Background(), &Widget{Name: name, Colour: "red", Stock: 1}); err != nil {
			t.Fatalf("seed widget %q: %v", name, err)
		}
	}
	return m, db
}

// CountRecords fails the test when the manager cannot count.
func CountRecords(t *testing.T, m model.Model) int {
	t.Helper()

	n, err := m.Manager().All(context.Background()).Count(context.Background())
	if err != nil {
		t.Fatalf("count %s: %v", m.Meta().Label(), err)
	}
	return n
}
