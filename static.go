package material

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/goliatone/go-material/pkg/views"
)

// StaticFS exposes the stylesheet and datatable script the templates link.
//
// Typical mount:
//
//	router.PathPrefix("/static/").Handler(material.StaticHandler("/static/"))
func StaticFS() fs.FS {
	return views.StaticFS()
}

// StaticHandler serves StaticFS under prefix.
func StaticHandler(prefix string) http.Handler {
	prefix = "/" + strings.Trim(prefix, "/") + "/"
	if prefix == "//" {
		prefix = "/"
	}
	return http.StripPrefix(prefix, http.FileServerFS(StaticFS()))
}
