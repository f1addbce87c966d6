// Package datalist turns a queryset into the header and row payload consumed
// by the datatable widget of the list view.
package datalist

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/goliatone/go-material/pkg/model"
)

// StrColumn renders the record's default text.
const StrColumn = "__str__"

// Column is a computed list column. Label defaults to the humanized column
// name. Value may return template.HTML to emit sanitized markup.
type Column struct {
	Label string
	Value func(rec model.Record) any
}

// Source provides named computed columns. Views and viewsets implement it.
type Source interface {
	ListColumn(name string) (Column, bool)
}

// Columns is a Source backed by a map.
type Columns map[string]Column

func (c Columns) ListColumn(name string) (Column, bool) {
	col, ok := c[name]
	return col, ok
}

// LinkFunc returns the URL a linked cell points to.
type LinkFunc func(rec model.Record) string

// Header describes one rendered column.
type Header struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Linked bool   `json:"linked"`
}

// Options configures a DataList.
type Options struct {
	Sources     []Source
	ListDisplay []string
	Links       []string
	Link        LinkFunc
}

type OptionFn func(*Options)

func NewOptions(fns ...OptionFn) Options {
	opts := Options{}
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if len(opts.ListDisplay) == 0 {
		opts.ListDisplay = []string{StrColumn}
	}
	var sources []Source
	for _, src := range opts.Sources {
		if src != nil {
			sources = append(sources, src)
		}
	}
	opts.Sources = sources
	return opts
}

// WithSources sets the column sources, consulted in order.
func WithSources(sources ...Source) OptionFn {
	return func(o *Options) {
		o.Sources = append(o.Sources, sources...)
	}
}

func WithListDisplay(columns ...string) OptionFn {
	return func(o *Options) {
		o.ListDisplay = append([]string{}, columns...)
	}
}

// WithLinks selects the columns rendered as links to the record.
func WithLinks(columns ...string) OptionFn {
	return func(o *Options) {
		o.Links = append([]string{}, columns...)
	}
}

func WithLinkFunc(fn LinkFunc) OptionFn {
	return func(o *Options) {
		o.Link = fn
	}
}

// DataList renders one queryset. It is built per request.
type DataList struct {
	meta model.Meta
	qs   model.QuerySet
	opts Options
}

// New builds a DataList over qs.
func New(meta model.Meta, qs model.QuerySet, fns ...OptionFn) *DataList {
	return &DataList{meta: meta, qs: qs, opts: NewOptions(fns...)}
}

// Options returns the resolved options.
func (d *DataList) Options() Options { return d.opts }

// Headers returns the header row.
func (d *DataList) Headers() []Header {
	out := make([]Header, 0, len(d.opts.ListDisplay))
	for _, name := range d.opts.ListDisplay {
		out = append(out, Header{Name: name, Label: d.label(name), Linked: d.linked(name)})
	}
	return out
}

func (d *DataList) label(name string) string {
	if col, ok := d.column(name); ok && col.Label != "" {
		return col.Label
	}
	if name == StrColumn {
		return model.Capitalize(d.meta.VerboseName)
	}
	return model.Humanize(name)
}

func (d *DataList) linked(name string) bool {
	for _, link := range d.opts.Links {
		if link == name {
			return true
		}
	}
	return false
}

func (d *DataList) column(name string) (Column, bool) {
	for _, src := range d.opts.Sources {
		if col, ok := src.ListColumn(name); ok && col.Value != nil {
			return col, true
		}
	}
	return Column{}, false
}

// Total counts all rows.
func (d *DataList) Total(ctx context.Context) (int, error) {
	return d.qs.Count(ctx)
}

// TotalFiltered counts the rows left after filtering. Filtering is not
// supported, so it equals Total.
func (d *DataList) TotalFiltered(ctx context.Context) (int, error) {
	return d.Total(ctx)
}

// Data renders at most length rows starting at start. Each row holds one
// HTML cell per displayed column.
func (d *DataList) Data(ctx context.Context, start, length int) ([][]string, error) {
	if start < 0 {
		start = 0
	}
	if length < 0 {
		length = 0
	}
	recs, err := d.qs.Slice(ctx, start, length)
	if err != nil {
		return nil, fmt.Errorf("datalist: load page: %w", err)
	}
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row, err := d.Row(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Row renders the displayed cells of one record.
func (d *DataList) Row(rec model.Record) ([]string, error) {
	row := make([]string, 0, len(d.opts.ListDisplay))
	for _, name := range d.opts.ListDisplay {
		cell, err := d.cell(rec, name)
		if err != nil {
			return nil, err
		}
		row = append(row, cell)
	}
	return row, nil
}

func (d *DataList) cell(rec model.Record, name string) (string, error) {
	value, err := d.value(rec, name)
	if err != nil {
		return "", err
	}
	cell := format(value)
	if d.linked(name) && d.opts.Link != nil {
		if href := d.opts.Link(rec); href != "" {
			cell = fmt.Sprintf(`<a href="%s">%s</a>`, template.HTMLEscapeString(href), cell)
		}
	}
	return cell, nil
}

func (d *DataList) value(rec model.Record, name string) (any, error) {
	if col, ok := d.column(name); ok {
		return col.Value(rec), nil
	}
	if name == StrColumn {
		return model.Display(d.meta, rec), nil
	}
	if v, ok := model.Lookup(rec, name); ok {
		return v, nil
	}
	return nil, model.Improperly("datalist: %s has no column %q", d.meta.Label(), name)
}

func format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case template.HTML:
		return sanitizeMarkup(string(v))
	case string:
		return template.HTMLEscapeString(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return template.HTMLEscapeString(v.Format("2006-01-02 15:04"))
	case fmt.Stringer:
		return template.HTMLEscapeString(v.String())
	default:
		return template.HTMLEscapeString(strings.TrimSpace(fmt.Sprint(v)))
	}
}
