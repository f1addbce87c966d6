// Package viewset binds the generic views to one model and describes the
// routes a frontend mounts for it.
package viewset

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/datalist"
	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/render/template"
	"github.com/goliatone/go-material/pkg/views"
)

// ErrNotMounted is returned when reversing routes of a viewset no frontend
// registered.
var ErrNotMounted = errors.New("viewset: not mounted")

// Reverser resolves namespaced route names, "<app>:<model>_<route>".
type Reverser interface {
	Reverse(name string, pk ...int64) (string, error)
}

// Views optionally implement these to receive viewset options.
type (
	ListDisplaySetter interface {
		SetListDisplay(columns []string)
	}
	ListDisplayLinksSetter interface {
		SetListDisplayLinks(columns []string)
	}
	LinksDisabledSetter interface {
		SetLinksDisabled(disabled bool)
	}
)

// ModelViewSet wires the list, create, update, delete and optional detail
// views of one model.
type ModelViewSet struct {
	Model model.Model

	ListView   views.Class
	CreateView views.Class
	UpdateView views.Class
	DeleteView views.Class
	// DetailView adds the "<pk>/" route when set.
	DetailView views.Class

	ListDisplay      Option[[]string]
	ListDisplayLinks Option[[]string]
	// LinksDisabled turns list links off entirely.
	LinksDisabled Option[bool]
	Columns       datalist.Columns
	Policy        Policy

	// PermFunc replaces the default check: the model's view or change
	// permission.
	PermFunc func(user auth.User) bool

	reverser Reverser
}

// OptionFn configures a ModelViewSet.
type OptionFn func(*ModelViewSet)

// New returns a viewset with the default view classes.
func New(m model.Model, fns ...OptionFn) *ModelViewSet {
	vs := &ModelViewSet{
		Model:      m,
		ListView:   views.List(),
		CreateView: views.Create(),
		UpdateView: views.Update(),
		DeleteView: views.Delete(),
	}
	for _, fn := range fns {
		if fn != nil {
			fn(vs)
		}
	}
	return vs
}

func WithListDisplay(columns ...string) OptionFn {
	return func(vs *ModelViewSet) {
		vs.ListDisplay = Set(append([]string(nil), columns...))
	}
}

func WithListDisplayLinks(columns ...string) OptionFn {
	return func(vs *ModelViewSet) {
		vs.ListDisplayLinks = Set(append([]string(nil), columns...))
	}
}

// WithoutLinks disables list links.
func WithoutLinks() OptionFn {
	return func(vs *ModelViewSet) {
		vs.LinksDisabled = Set(true)
	}
}

func WithColumns(columns datalist.Columns) OptionFn {
	return func(vs *ModelViewSet) {
		vs.Columns = columns
	}
}

func WithPolicy(p Policy) OptionFn {
	return func(vs *ModelViewSet) {
		vs.Policy = p
	}
}

func WithPermFunc(fn func(user auth.User) bool) OptionFn {
	return func(vs *ModelViewSet) {
		vs.PermFunc = fn
	}
}

// WithViews overrides view classes; nil arguments keep the current class.
func WithViews(list, create, update, del views.Class) OptionFn {
	return func(vs *ModelViewSet) {
		if list != nil {
			vs.ListView = list
		}
		if create != nil {
			vs.CreateView = create
		}
		if update != nil {
			vs.UpdateView = update
		}
		if del != nil {
			vs.DeleteView = del
		}
	}
}

func WithDetailView(class views.Class) OptionFn {
	return func(vs *ModelViewSet) {
		vs.DetailView = class
	}
}

var (
	_ views.ViewSet   = (*ModelViewSet)(nil)
	_ datalist.Source = (*ModelViewSet)(nil)
)

// Namespace is the route namespace, the model's app label.
func (vs *ModelViewSet) Namespace() string { return vs.Model.Meta().AppLabel }

// RouteName returns "<app>:<model>_<route>".
func (vs *ModelViewSet) RouteName(route views.Route) string {
	meta := vs.Model.Meta()
	return meta.AppLabel + ":" + meta.ModelName + "_" + string(route)
}

// HasPerm is the viewset-level permission check views fall back to.
func (vs *ModelViewSet) HasPerm(user auth.User) bool {
	if vs.PermFunc != nil {
		return vs.PermFunc(user)
	}
	if user == nil || !user.IsAuthenticated() {
		return false
	}
	meta := vs.Model.Meta()
	return user.HasPerm(auth.Codename(meta, "view")) || user.HasPerm(auth.Codename(meta, "change"))
}

// ListColumn serves the viewset's computed columns to its views.
func (vs *ModelViewSet) ListColumn(name string) (datalist.Column, bool) {
	return vs.Columns.ListColumn(name)
}

// Bind attaches the reverser used by Reverse. Frontends call it when
// mounting the viewset.
func (vs *ModelViewSet) Bind(r Reverser) { vs.reverser = r }

// Reverse resolves one of this viewset's routes.
func (vs *ModelViewSet) Reverse(route views.Route, pk ...int64) (string, error) {
	if vs.reverser == nil {
		return "", fmt.Errorf("%w: %s", ErrNotMounted, vs.Model.Meta().Label())
	}
	return vs.reverser.Reverse(vs.RouteName(route), pk...)
}

// Route is one mountable endpoint. Path is relative to the viewset prefix.
type Route struct {
	Name    string
	Kind    views.Route
	Path    string
	Methods []string
	Handler http.Handler
}

// Env carries the collaborators shared by every view of the viewset.
type Env struct {
	Renderer template.Renderer
	Logger   *zap.Logger
	Observer views.SaveObserver
}

var (
	readMethods   = []string{http.MethodGet, http.MethodHead}
	writeMethods  = []string{http.MethodGet, http.MethodHead, http.MethodPost}
	changeMethods = []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut}
)

// Routes instantiates every view class and returns the routes in mounting
// order: list, add, change, delete, then detail.
func (vs *ModelViewSet) Routes(env Env) ([]Route, error) {
	if vs.Model == nil {
		return nil, model.Improperly("viewset has no model")
	}
	viewEnv := views.Env{
		Model:    vs.Model,
		ViewSet:  vs,
		Renderer: env.Renderer,
		Logger:   env.Logger,
		Observer: env.Observer,
	}

	specs := []struct {
		route   views.Route
		path    string
		class   views.Class
		methods []string
	}{
		{views.RouteList, "/", vs.ListView, readMethods},
		{views.RouteAdd, "/add/", vs.CreateView, writeMethods},
		{views.RouteChange, "/{pk}/change/", vs.UpdateView, changeMethods},
		{views.RouteDelete, "/{pk}/delete/", vs.DeleteView, writeMethods},
		{views.RouteDetail, "/{pk}/", vs.DetailView, readMethods},
	}

	routes := make([]Route, 0, len(specs))
	for _, spec := range specs {
		if spec.class == nil {
			if spec.route == views.RouteDetail {
				continue
			}
			return nil, model.Improperly("viewset %s has no %s view class", vs.Model.Meta().Label(), spec.route)
		}
		handler := spec.class(viewEnv)
		if handler == nil {
			return nil, model.Improperly("viewset %s: %s view class returned nil", vs.Model.Meta().Label(), spec.route)
		}
		vs.propagate(handler)
		routes = append(routes, Route{
			Name:    vs.RouteName(spec.route),
			Kind:    spec.route,
			Path:    spec.path,
			Methods: append([]string(nil), spec.methods...),
			Handler: handler,
		})
	}
	return routes, nil
}

func (vs *ModelViewSet) propagate(handler http.Handler) {
	if s, ok := handler.(ListDisplaySetter); ok {
		if columns, set := vs.ListDisplay.Get(); set {
			s.SetListDisplay(columns)
		} else if vs.Policy == PropagateAlways {
			s.SetListDisplay([]string{datalist.StrColumn})
		}
	}
	if s, ok := handler.(ListDisplayLinksSetter); ok {
		if columns, set := vs.ListDisplayLinks.Get(); set {
			s.SetListDisplayLinks(columns)
		}
	}
	if s, ok := handler.(LinksDisabledSetter); ok {
		if disabled, set := vs.LinksDisabled.Get(); set {
			s.SetLinksDisabled(disabled)
		}
	}
}
