package views

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/datalist"
	"github.com/goliatone/go-material/pkg/forms"
	"github.com/goliatone/go-material/pkg/model"
)

// DefaultPaginateBy is the page size of the first rendered page.
const DefaultPaginateBy = 15

// ListTemplate is the fallback list template.
const ListTemplate = "material/frontend/views/list.html"

// PermFunc decides whether user may use a view. obj is nil on list and
// create views.
type PermFunc func(user auth.User, obj model.Record) bool

// DefaultDatatableConfig returns the widget settings merged under per-view
// overrides.
func DefaultDatatableConfig(paginateBy int) map[string]any {
	return map[string]any{
		"processing":     false,
		"serverSide":     true,
		"ajax":           ".",
		"ordering":       false,
		"info":           false,
		"bFilter":        false,
		"bAutoWidth":     false,
		"bLengthChange":  false,
		"iDisplayLength": paginateBy,
		"oLanguage": map[string]any{
			"oPaginate": map[string]any{
				"sNext":     "&rang;",
				"sPrevious": "&lang;",
			},
		},
		"responsive": map[string]any{
			"details": false,
		},
	}
}

// ListView renders a datatable over a queryset and answers the widget's
// AJAX page requests.
type ListView struct {
	Env

	// QuerySet overrides the model's default manager.
	QuerySet         func(ctx context.Context) model.QuerySet
	PaginateBy       int
	DatatableConfig  map[string]any
	ListDisplay      []string
	ListDisplayLinks []string
	LinksDisabled    bool
	Columns          datalist.Columns
	TemplateName     string
	PermFunc         PermFunc
}

var _ datalist.Source = (*ListView)(nil)

// NewListView returns a list view with defaults.
func NewListView(env Env) *ListView {
	return &ListView{Env: env, PaginateBy: DefaultPaginateBy}
}

// List returns the class building list views customised by fns.
func List(fns ...func(*ListView)) Class {
	return func(env Env) http.Handler {
		v := NewListView(env)
		for _, fn := range fns {
			if fn != nil {
				fn(v)
			}
		}
		return v
	}
}

func (v *ListView) SetListDisplay(columns []string) {
	v.ListDisplay = append([]string(nil), columns...)
}

func (v *ListView) SetListDisplayLinks(columns []string) {
	v.ListDisplayLinks = append([]string(nil), columns...)
}

func (v *ListView) SetLinksDisabled(disabled bool) { v.LinksDisabled = disabled }

// ListColumn serves the view's own computed columns.
func (v *ListView) ListColumn(name string) (datalist.Column, bool) {
	return v.Columns.ListColumn(name)
}

// HasPerm applies PermFunc, then the viewset check.
func (v *ListView) HasPerm(user auth.User) bool {
	if v.PermFunc != nil {
		return v.PermFunc(user, nil)
	}
	return v.viewsetPerm(user)
}

func (v *ListView) queryset(ctx context.Context) (model.QuerySet, error) {
	if v.QuerySet != nil {
		if qs := v.QuerySet(ctx); qs != nil {
			return qs, nil
		}
	}
	if v.Model != nil && v.Model.Manager() != nil {
		return v.Model.Manager().All(ctx), nil
	}
	return nil, model.Improperly("list view is missing a queryset; set QuerySet or Model")
}

func (v *ListView) listDisplay() []string {
	if len(v.ListDisplay) == 0 {
		return []string{datalist.StrColumn}
	}
	return v.ListDisplay
}

// links picks the linked columns: none when disabled, the explicit ones,
// else the first displayed column.
func (v *ListView) links() []string {
	if v.LinksDisabled {
		return nil
	}
	if len(v.ListDisplayLinks) > 0 {
		return v.ListDisplayLinks
	}
	return v.listDisplay()[:1]
}

// DataList builds the per-request list over qs.
func (v *ListView) DataList(qs model.QuerySet) *datalist.DataList {
	sources := []datalist.Source{v}
	if src, ok := v.ViewSet.(datalist.Source); ok {
		sources = append(sources, src)
	}
	return datalist.New(v.meta(), qs,
		datalist.WithSources(sources...),
		datalist.WithListDisplay(v.listDisplay()...),
		datalist.WithLinks(v.links()...),
		datalist.WithLinkFunc(func(rec model.Record) string {
			return v.reverse(RouteChange, rec.PrimaryKey())
		}),
	)
}

func (v *ListView) paginateBy() int {
	if v.PaginateBy <= 0 {
		return DefaultPaginateBy
	}
	return v.PaginateBy
}

// Config merges DatatableConfig over the defaults.
func (v *ListView) Config() map[string]any {
	config := DefaultDatatableConfig(v.paginateBy())
	for key, value := range v.DatatableConfig {
		config[key] = value
	}
	return config
}

func (v *ListView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		v.fail(w, r, ErrMethodNotAllowed)
		return
	}
	if !v.HasPerm(auth.UserFrom(r.Context())) {
		v.fail(w, r, ErrPermissionDenied)
		return
	}
	qs, err := v.queryset(r.Context())
	if err != nil {
		v.fail(w, r, err)
		return
	}
	list := v.DataList(qs)
	if IsAjax(r) {
		v.serveJSON(w, r, list)
		return
	}
	v.serveHTML(w, r, list)
}

// Page is the JSON answer to a datatable request.
type Page struct {
	Draw            int        `json:"draw"`
	RecordsTotal    int        `json:"recordsTotal"`
	RecordsFiltered int        `json:"recordsFiltered"`
	Data            [][]string `json:"data"`
}

func (v *ListView) serveJSON(w http.ResponseWriter, r *http.Request, list *datalist.DataList) {
	req, errs := forms.ParseDatatableRequest(r.URL.Query())
	if errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": errs})
		return
	}
	page, err := v.page(r.Context(), list, req)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (v *ListView) page(ctx context.Context, list *datalist.DataList, req forms.DatatableRequest) (Page, error) {
	total, err := list.Total(ctx)
	if err != nil {
		return Page{}, err
	}
	filtered, err := list.TotalFiltered(ctx)
	if err != nil {
		return Page{}, err
	}
	data, err := list.Data(ctx, req.Start, req.Length)
	if err != nil {
		return Page{}, err
	}
	return Page{Draw: req.Draw, RecordsTotal: total, RecordsFiltered: filtered, Data: data}, nil
}

func (v *ListView) serveHTML(w http.ResponseWriter, r *http.Request, list *datalist.DataList) {
	config, err := json.Marshal(v.Config())
	if err != nil {
		v.fail(w, r, fmt.Errorf("views: encode datatable config: %w", err))
		return
	}
	page, err := v.page(r.Context(), list, forms.DatatableRequest{Length: v.paginateBy()})
	if err != nil {
		v.fail(w, r, err)
		return
	}

	data := v.baseContext(r, nil)
	data["headers"] = list.Headers()
	data["data"] = page.Data
	data["total"] = page.RecordsTotal
	data["datatable_config"] = string(config)
	v.render(w, r, v.candidates(v.TemplateName, []string{"_list"}, ListTemplate), data, http.StatusOK)
}
