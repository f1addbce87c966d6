package views

import (
	"embed"
	"io/fs"
)

//go:embed templates/material/frontend/views/*.html
var embeddedTemplates embed.FS

//go:embed static/*
var embeddedStatic embed.FS

// TemplatesFS exposes the built-in templates, rooted so that names start
// with "material/frontend/views/".
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// StaticFS exposes the stylesheet and datatable script the templates link.
func StaticFS() fs.FS {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return embeddedStatic
	}
	return sub
}
