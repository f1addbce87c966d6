package material

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func TestStaticFSContainsDatatableScript(t *testing.T) {
	data, err := fs.ReadFile(StaticFS(), "datatable.js")
	if err != nil {
		t.Fatalf("expected datatable script to be readable: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected datatable script to have content")
	}
}

func TestStaticHandlerStripsPrefix(t *testing.T) {
	rec := httptest.NewRecorder()
	StaticHandler("static").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/material.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTemplatesOverlayWins(t *testing.T) {
	overlay := fstest.MapFS{
		"material/frontend/views/delete.html": {Data: []byte("custom delete")},
		"geo/country_list.html":               {Data: []byte("countries")},
	}
	fsys := Templates(overlay)

	data, err := fs.ReadFile(fsys, "material/frontend/views/delete.html")
	if err != nil || string(data) != "custom delete" {
		t.Fatalf("expected overlay delete template, got %q (%v)", data, err)
	}
	if _, err := fs.ReadFile(fsys, "geo/country_list.html"); err != nil {
		t.Fatalf("expected overlay-only template: %v", err)
	}
	base, err := fs.ReadFile(fsys, "material/frontend/views/base.html")
	if err != nil || !strings.Contains(string(base), "<!DOCTYPE html>") {
		t.Fatalf("expected built-in base template, got %v", err)
	}
	if _, err := fsys.Open("missing.html"); err == nil {
		t.Fatalf("expected missing template to fail")
	}
}

func TestNewRendererUsesOverlay(t *testing.T) {
	overlay := fstest.MapFS{
		"geo/country_list.html": {Data: []byte(`{% extends "material/frontend/views/base.html" %}{% block content %}hello {{ name }}{% endblock %}`)},
	}
	engine, err := NewRenderer(WithOverlays(overlay))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	name, err := engine.SelectTemplate("geo/country_list.html", "material/frontend/views/list.html")
	if err != nil || name != "geo/country_list.html" {
		t.Fatalf("unexpected selection %q (%v)", name, err)
	}
	out, err := engine.RenderTemplate(name, map[string]any{"name": "world"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "hello world") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNewRendererSeedsGlobals(t *testing.T) {
	engine, err := NewRenderer(WithStaticURL("/assets"), WithSiteTitle("Atlas"))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out, err := engine.RenderTemplate("material/frontend/views/list.html", map[string]any{
		"view": map[string]any{"verbose_name": "Emergency contact", "verbose_name_plural": "emergency contacts", "add_url": "/add/"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`<title>Emergency contacts | Atlas</title>`,
		`href="/assets/material.css"`,
		`src="/assets/datatable.js"`,
		`>Add emergency contact</a>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("list page missing %q:\n%s", want, out)
		}
	}
}

func TestNewRendererDefaults(t *testing.T) {
	opts := NewRendererOptions()
	if opts.StaticURL != DefaultStaticURL || opts.SiteTitle != DefaultSiteTitle {
		t.Fatalf("unexpected defaults %+v", opts)
	}
}
