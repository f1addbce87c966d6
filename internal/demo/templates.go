package demo

import (
	"embed"
	"io/fs"
)

//go:embed templates/demo/*.html
var embeddedTemplates embed.FS

// TemplatesFS holds the pages the demo adds to the built-in views.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}
