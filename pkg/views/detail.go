package views

import (
	"net/http"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/datalist"
	"github.com/goliatone/go-material/pkg/model"
)

const DetailTemplate = "material/frontend/views/detail.html"

// DetailView shows the columns of one record read-only.
type DetailView struct {
	Env

	// Fields defaults to every column.
	Fields       []string
	TemplateName string
	PermFunc     PermFunc
}

func NewDetailView(env Env) *DetailView {
	return &DetailView{Env: env}
}

// Detail returns the class building detail views customised by fns.
func Detail(fns ...func(*DetailView)) Class {
	return func(env Env) http.Handler {
		v := NewDetailView(env)
		for _, fn := range fns {
			if fn != nil {
				fn(v)
			}
		}
		return v
	}
}

// DetailRow is one label/value line of the detail page.
type DetailRow struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

func (v *DetailView) rows(obj model.Record) ([]DetailRow, error) {
	names := v.Fields
	if len(names) == 0 {
		for _, col := range model.Columns(obj) {
			names = append(names, col.Name)
		}
	}
	var sources []datalist.Source
	if src, ok := v.ViewSet.(datalist.Source); ok {
		sources = append(sources, src)
	}
	list := datalist.New(v.meta(), nil, datalist.WithSources(sources...), datalist.WithListDisplay(names...))
	cells, err := list.Row(obj)
	if err != nil {
		return nil, err
	}
	headers := list.Headers()
	out := make([]DetailRow, 0, len(cells))
	for i, cell := range cells {
		out = append(out, DetailRow{Name: headers[i].Name, Label: headers[i].Label, Value: cell})
	}
	return out, nil
}

func (v *DetailView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		v.fail(w, r, ErrMethodNotAllowed)
		return
	}
	obj, err := v.objectFromRequest(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	allowed := v.viewsetPerm
	if v.PermFunc != nil {
		allowed = func(user auth.User) bool { return v.PermFunc(user, obj) }
	}
	if !allowed(auth.UserFrom(r.Context())) {
		v.fail(w, r, ErrPermissionDenied)
		return
	}
	rows, err := v.rows(obj)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	data := v.baseContext(r, obj)
	data["rows"] = rows
	v.render(w, r, v.candidates(v.TemplateName, []string{"_detail"}, DetailTemplate), data, http.StatusOK)
}
