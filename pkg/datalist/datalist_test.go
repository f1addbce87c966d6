package datalist_test

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-material/pkg/datalist"
	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/store/memory"
)

type ocean struct {
	model.Base
	Name string `db:"name"`
	Area int64  `db:"area"`
}

func (o *ocean) Badge() template.HTML {
	return template.HTML(fmt.Sprintf(`<span class="badge" onclick="x()">%d</span><script>alert(1)</script>`, o.Area))
}

func seedOceans(t *testing.T, n int) model.Model {
	t.Helper()
	m := model.Define(model.Meta{AppLabel: "geo", ModelName: "ocean"},
		func() model.Record { return &ocean{} }, memory.NewDB().Manager("geo_ocean"))
	for i := 1; i <= n; i++ {
		if err := m.Manager().Save(context.Background(), &ocean{Name: fmt.Sprintf("Ocean <%d>", i), Area: int64(i * 10)}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return m
}

func TestHeaders(t *testing.T) {
	m := seedOceans(t, 0)
	dl := datalist.New(m.Meta(), m.Manager().All(context.Background()),
		datalist.WithListDisplay(datalist.StrColumn, "area", "density"),
		datalist.WithLinks(datalist.StrColumn),
		datalist.WithSources(datalist.Columns{"density": {Label: "People / km²", Value: func(model.Record) any { return 0 }}}),
	)

	want := []datalist.Header{
		{Name: "__str__", Label: "Ocean", Linked: true},
		{Name: "area", Label: "Area"},
		{Name: "density", Label: "People / km²"},
	}
	if diff := cmp.Diff(want, dl.Headers()); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultDisplayIsStr(t *testing.T) {
	m := seedOceans(t, 1)
	ctx := context.Background()
	dl := datalist.New(m.Meta(), m.Manager().All(ctx))
	rows, err := dl.Data(ctx, 0, 10)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if diff := cmp.Diff([][]string{{"Ocean object (1)"}}, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDataPagingEscapingAndLinks(t *testing.T) {
	m := seedOceans(t, 5)
	ctx := context.Background()
	dl := datalist.New(m.Meta(), m.Manager().All(ctx),
		datalist.WithListDisplay("name", "area"),
		datalist.WithLinks("name"),
		datalist.WithLinkFunc(func(rec model.Record) string {
			return fmt.Sprintf("/geo/ocean/%d/change/", rec.PrimaryKey())
		}),
	)

	rows, err := dl.Data(ctx, 3, 15)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	want := [][]string{
		{`<a href="/geo/ocean/4/change/">Ocean &lt;4&gt;</a>`, "40"},
		{`<a href="/geo/ocean/5/change/">Ocean &lt;5&gt;</a>`, "50"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	total, _ := dl.Total(ctx)
	filtered, _ := dl.TotalFiltered(ctx)
	if total != 5 || filtered != 5 {
		t.Fatalf("total=%d filtered=%d", total, filtered)
	}

	past, err := dl.Data(ctx, 10, 15)
	if err != nil || len(past) != 0 {
		t.Fatalf("expected empty page, got %v, %v", past, err)
	}
}

func TestPageSizeProperty(t *testing.T) {
	m := seedOceans(t, 7)
	ctx := context.Background()
	dl := datalist.New(m.Meta(), m.Manager().All(ctx), datalist.WithListDisplay("name"))
	for start := 0; start <= 9; start++ {
		for length := 1; length <= 9; length++ {
			rows, err := dl.Data(ctx, start, length)
			if err != nil {
				t.Fatalf("data: %v", err)
			}
			want := min(length, max(7-start, 0))
			if len(rows) != want {
				t.Fatalf("start=%d length=%d: got %d rows, want %d", start, length, len(rows), want)
			}
		}
	}
}

func TestHTMLColumnsAreSanitized(t *testing.T) {
	m := seedOceans(t, 1)
	ctx := context.Background()
	dl := datalist.New(m.Meta(), m.Manager().All(ctx), datalist.WithListDisplay("badge"))
	rows, err := dl.Data(ctx, 0, 1)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	want := `<span class="badge">10</span>`
	if rows[0][0] != want {
		t.Fatalf("got %q want %q", rows[0][0], want)
	}
}

func TestUnknownColumn(t *testing.T) {
	m := seedOceans(t, 1)
	ctx := context.Background()
	dl := datalist.New(m.Meta(), m.Manager().All(ctx), datalist.WithListDisplay("missing"))
	if _, err := dl.Data(ctx, 0, 1); !errors.Is(err, model.ErrImproperlyConfigured) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
