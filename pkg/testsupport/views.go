package testsupport

import (
	"fmt"
	"testing"

	material "github.com/goliatone/go-material"
	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/render/template/gotemplate"
	"github.com/goliatone/go-material/pkg/views"
)

// NewRenderer returns the default Material renderer.
func NewRenderer(t *testing.T) *gotemplate.Engine {
	t.Helper()

	engine, err := material.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	return engine
}

// ViewSet is a fixed-route views.ViewSet mounted at Base.
type ViewSet struct {
	Base string
	Deny bool
}

func (s ViewSet) HasPerm(auth.User) bool { return !s.Deny }

func (s ViewSet) Reverse(route views.Route, pk ...int64) (string, error) {
	switch {
	case route == views.RouteList:
		return s.Base, nil
	case route == views.RouteAdd:
		return s.Base + "add/", nil
	case len(pk) == 0:
		return "", fmt.Errorf("route %q needs a primary key", route)
	case route == views.RouteChange:
		return fmt.Sprintf("%s%d/change/", s.Base, pk[0]), nil
	case route == views.RouteDelete:
		return fmt.Sprintf("%s%d/delete/", s.Base, pk[0]), nil
	default:
		return "", fmt.Errorf("route %q is not mounted", route)
	}
}
