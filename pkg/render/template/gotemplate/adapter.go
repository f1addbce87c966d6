package gotemplate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-material/pkg/render/template"
)

// Extension is appended to template names that lack it.
const Extension = ".html"

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	baseDir string
	files   fs.FS
	globals map[string]any
}

// WithBaseDir loads templates from a directory on disk. Files found there
// take precedence over WithFS.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from files.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.files = files
	}
}

// WithGlobals seeds values every template sees. Later calls override
// earlier keys.
func WithGlobals(globals map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(globals))
		}
		for key, value := range globals {
			if key = strings.TrimSpace(key); key != "" {
				cfg.globals[key] = value
			}
		}
	}
}

// Engine renders Django-syntax templates through a pongo2 template set.
type Engine struct {
	set     *pongo2.TemplateSet
	baseDir string
	files   fs.FS

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

var _ template.Renderer = (*Engine)(nil)

// New builds an Engine. At least one of WithBaseDir and WithFS is required.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.baseDir == "" && cfg.files == nil {
		return nil, errors.New("gotemplate: need a base dir or an fs.FS")
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.files != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.files))
	}

	set := pongo2.NewSet("material", loaders...)
	if len(cfg.globals) > 0 {
		globals, err := toContext(cfg.globals)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: globals: %w", err)
		}
		set.Globals.Update(globals)
	}
	registerFilters()

	return &Engine{
		set:     set,
		baseDir: cfg.baseDir,
		files:   cfg.files,
		cache:   make(map[string]*pongo2.Template),
	}, nil
}

// SelectTemplate returns the first candidate that exists.
func (e *Engine) SelectTemplate(candidates ...string) (string, error) {
	for _, name := range candidates {
		name = strings.TrimSpace(name)
		if name != "" && e.exists(withExt(name)) {
			return name, nil
		}
	}
	return "", template.NotFound(candidates)
}

// RenderTemplate renders name with data and copies the output to out.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	path := withExt(name)
	tmpl, err := e.load(path)
	if err != nil {
		return "", err
	}
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: context for %q: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(ctx, &buf); err != nil {
		return "", fmt.Errorf("gotemplate: execute %q: %w", path, err)
	}
	for _, w := range out {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (e *Engine) exists(path string) bool {
	if e.baseDir != "" {
		if info, err := os.Stat(filepath.Join(e.baseDir, filepath.FromSlash(path))); err == nil && !info.IsDir() {
			return true
		}
	}
	if e.files != nil {
		if info, err := fs.Stat(e.files, path); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func (e *Engine) load(path string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.cache[path]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.cache[path]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load %q: %w", path, err)
	}
	e.cache[path] = tmpl
	return tmpl, nil
}

func withExt(name string) string {
	if strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}

// toContext round-trips data through JSON so struct json tags name the
// template keys. Numbers keep their literal form.
func toContext(data any) (pongo2.Context, error) {
	if data == nil {
		return pongo2.Context{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("template data must be an object: %w", err)
	}
	return pongo2.Context(out), nil
}
