// Package material exposes the built-in Material templates and static assets
// and assembles renderers that let applications override them.
package material

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/goliatone/go-material/pkg/render/template/gotemplate"
	"github.com/goliatone/go-material/pkg/views"
)

// EmbeddedTemplates exposes the built-in view templates so callers can reuse
// or extend them without importing the views package directly.
func EmbeddedTemplates() fs.FS {
	return views.TemplatesFS()
}

// Templates layers overlays over the built-in templates. The first layer
// holding a name wins, so an application can ship "geo/country_list.html"
// or replace "material/frontend/views/base.html".
func Templates(overlays ...fs.FS) fs.FS {
	layers := make(overlayFS, 0, len(overlays)+1)
	for _, overlay := range overlays {
		if overlay != nil {
			layers = append(layers, overlay)
		}
	}
	return append(layers, views.TemplatesFS())
}

// Defaults seeded as template globals by NewRenderer.
const (
	DefaultStaticURL = "/static/"
	DefaultSiteTitle = "Material"
)

// RendererOptions configures NewRenderer.
type RendererOptions struct {
	// Dir holds templates on disk that take precedence over every layer.
	Dir       string
	Overlays  []fs.FS
	StaticURL string
	SiteTitle string
}

type RendererOptionFn func(*RendererOptions)

func NewRendererOptions(fns ...RendererOptionFn) RendererOptions {
	opts := RendererOptions{}
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.StaticURL == "" {
		opts.StaticURL = DefaultStaticURL
	}
	if !strings.HasSuffix(opts.StaticURL, "/") {
		opts.StaticURL += "/"
	}
	if opts.SiteTitle == "" {
		opts.SiteTitle = DefaultSiteTitle
	}
	return opts
}

func WithTemplatesDir(dir string) RendererOptionFn {
	return func(o *RendererOptions) {
		o.Dir = strings.TrimSpace(dir)
	}
}

// WithOverlays adds template layers; earlier layers win.
func WithOverlays(overlays ...fs.FS) RendererOptionFn {
	return func(o *RendererOptions) {
		o.Overlays = append(o.Overlays, overlays...)
	}
}

// WithStaticURL sets the "static_url" global the built-in templates load
// material.css and datatable.js from.
func WithStaticURL(url string) RendererOptionFn {
	return func(o *RendererOptions) {
		o.StaticURL = strings.TrimSpace(url)
	}
}

// WithSiteTitle sets the "site_title" global appended to page titles.
func WithSiteTitle(title string) RendererOptionFn {
	return func(o *RendererOptions) {
		o.SiteTitle = strings.TrimSpace(title)
	}
}

// NewRenderer returns the pongo2 engine over Templates(overlays...).
func NewRenderer(fns ...RendererOptionFn) (*gotemplate.Engine, error) {
	opts := NewRendererOptions(fns...)
	engineOpts := []gotemplate.Option{
		gotemplate.WithFS(Templates(opts.Overlays...)),
		gotemplate.WithGlobals(map[string]any{
			"static_url": opts.StaticURL,
			"site_title": opts.SiteTitle,
		}),
	}
	if opts.Dir != "" {
		engineOpts = append(engineOpts, gotemplate.WithBaseDir(opts.Dir))
	}
	return gotemplate.New(engineOpts...)
}

type overlayFS []fs.FS

func (o overlayFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, layer := range o {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
