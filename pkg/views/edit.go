package views

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/forms"
	"github.com/goliatone/go-material/pkg/model"
)

const (
	CreateTemplate = "material/frontend/views/create.html"
	UpdateTemplate = "material/frontend/views/update.html"
)

// InitialFunc seeds an unbound form. obj is nil when creating.
type InitialFunc func(r *http.Request, obj model.Record) map[string]any

// FormsetInitialFunc seeds the rows of an unbound formset.
type FormsetInitialFunc func(r *http.Request, obj model.Record) []map[string]any

// ExtraFormFactory builds a named extra form. data is nil on GET.
type ExtraFormFactory func(r *http.Request, prefix string, obj model.Record, data url.Values, initial map[string]any) forms.Component

// ExtraModelForm builds extra forms creating a record of m alongside the
// primary one.
func ExtraModelForm(m model.Model, spec *forms.Spec) ExtraFormFactory {
	return func(_ *http.Request, prefix string, _ model.Record, data url.Values, initial map[string]any) forms.Component {
		opts := []forms.Option{forms.WithPrefix(prefix), forms.WithInitial(initial)}
		if data != nil {
			opts = append(opts, forms.WithData(data))
		}
		return forms.NewModelForm(m, spec, nil, opts...)
	}
}

// SaveModelFunc persists the primary record built from the primary form.
type SaveModelFunc func(ctx context.Context, form *forms.ModelForm) (model.Record, error)

// FormView is the composite form flow shared by CreateView and UpdateView.
// Components implementing forms.RelatedSaver are saved after the primary
// record.
type FormView struct {
	Env

	// Form defaults to Fields, or every model field.
	Form    *forms.Spec
	Fields  []string
	Initial InitialFunc

	ExtraForms         map[string]*forms.Spec
	ExtraFormFactories map[string]ExtraFormFactory
	ExtraFormInitial   map[string]InitialFunc

	Formsets       map[string]*forms.FormSetSpec
	FormsetInitial map[string]FormsetInitialFunc

	Inlines map[string]*forms.InlineSpec

	SuccessURL   string
	TemplateName string
	SaveModel    SaveModelFunc
	PermFunc     PermFunc
}

// submission is the request-scoped set of bound components.
type submission struct {
	form     *forms.ModelForm
	extras   map[string]forms.Component
	formsets map[string]forms.Component
	inlines  map[string]forms.Component
}

func (v *FormView) hasPerm(user auth.User, obj model.Record) bool {
	if v.PermFunc != nil {
		return v.PermFunc(user, obj)
	}
	return v.viewsetPerm(user)
}

func (v *FormView) primarySpec() *forms.Spec {
	if v.Form != nil {
		return v.Form
	}
	return &forms.Spec{Fields: forms.FieldsFor(v.Model, v.Fields...)}
}

func (v *FormView) build(r *http.Request, obj model.Record, data url.Values) (*submission, error) {
	if v.Model == nil {
		return nil, model.Improperly("form view has no model")
	}
	s := &submission{
		extras:   make(map[string]forms.Component, len(v.ExtraForms)+len(v.ExtraFormFactories)),
		formsets: make(map[string]forms.Component, len(v.Formsets)),
		inlines:  make(map[string]forms.Component, len(v.Inlines)),
	}

	var opts []forms.Option
	if data != nil {
		opts = append(opts, forms.WithData(data))
	}
	if v.Initial != nil {
		opts = append(opts, forms.WithInitial(v.Initial(r, obj)))
	}
	s.form = forms.NewModelForm(v.Model, v.primarySpec(), obj, opts...)

	for name, spec := range v.ExtraForms {
		if _, custom := v.ExtraFormFactories[name]; custom {
			continue
		}
		initial := v.extraInitial(r, name, obj)
		fopts := []forms.Option{forms.WithPrefix(name), forms.WithInitial(initial)}
		if data != nil {
			fopts = append(fopts, forms.WithData(data))
		}
		s.extras[name] = spec.New(fopts...)
	}
	for name, factory := range v.ExtraFormFactories {
		comp := factory(r, name, obj, data, v.extraInitial(r, name, obj))
		if comp == nil {
			return nil, model.Improperly("extra form factory %q returned nil", name)
		}
		s.extras[name] = comp
	}

	for name, spec := range v.Formsets {
		var initial []map[string]any
		if fn := v.FormsetInitial[name]; fn != nil {
			initial = fn(r, obj)
		}
		s.formsets[name] = spec.New(name, data, initial)
	}

	for name, spec := range v.Inlines {
		inline, err := spec.New(r.Context(), name, obj, data)
		if err != nil {
			return nil, err
		}
		s.inlines[name] = inline
	}
	return s, nil
}

func (v *FormView) extraInitial(r *http.Request, name string, obj model.Record) map[string]any {
	if fn := v.ExtraFormInitial[name]; fn != nil {
		return fn(r, obj)
	}
	return nil
}

// valid validates every component so each collects its errors.
func (s *submission) valid() bool {
	ok := s.form.IsValid()
	for _, group := range s.groups() {
		for _, comp := range group {
			if !comp.IsValid() {
				ok = false
			}
		}
	}
	return ok
}

func (s *submission) groups() []map[string]forms.Component {
	return []map[string]forms.Component{s.extras, s.formsets, s.inlines}
}

func (v *FormView) save(ctx context.Context, s *submission) (model.Record, error) {
	var saved model.Record
	err := v.Model.Manager().Atomic(ctx, func(ctx context.Context) error {
		rec, err := v.saveModel(ctx, s.form)
		if err != nil {
			return err
		}
		for _, group := range s.groups() {
			for _, name := range sortedNames(group) {
				saver, ok := group[name].(forms.RelatedSaver)
				if !ok {
					continue
				}
				if err := saver.SaveRelated(ctx, rec); err != nil {
					return fmt.Errorf("views: save %q: %w", name, err)
				}
			}
		}
		saved = rec
		return nil
	})
	if v.Observer != nil {
		v.Observer.ObserveSave(v.meta().Label(), err)
	}
	return saved, err
}

func (v *FormView) saveModel(ctx context.Context, form *forms.ModelForm) (model.Record, error) {
	if v.SaveModel != nil {
		return v.SaveModel(ctx, form)
	}
	rec, err := form.Save(ctx, false)
	if err != nil {
		return nil, err
	}
	if err := v.Model.Manager().Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// applyValidationError routes each key to the component whose prefix it
// carries, else to the primary form.
func (s *submission) applyValidationError(verr *model.ValidationError) {
	for key, msgs := range verr.Fields {
		target := forms.Component(s.form)
		for _, group := range s.groups() {
			for _, comp := range group {
				prefix := comp.Prefix()
				if prefix != "" && (key == prefix || strings.HasPrefix(key, prefix+"-")) {
					target = comp
				}
			}
		}
		target.AddError(key, msgs...)
	}
}

func (s *submission) context() map[string]any {
	return map[string]any{
		"form":        s.form.Context(),
		"extra_forms": contexts(s.extras),
		"formsets":    contexts(s.formsets),
		"inlines":     contexts(s.inlines),
	}
}

func contexts(group map[string]forms.Component) map[string]any {
	out := make(map[string]any, len(group))
	for name, comp := range group {
		out[name] = comp.Context()
	}
	return out
}

func sortedNames(group map[string]forms.Component) []string {
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (v *FormView) successURL() string {
	if v.SuccessURL != "" {
		return v.SuccessURL
	}
	return v.reverse(RouteList)
}

// serve runs the shared GET/POST flow for obj, nil when creating.
func (v *FormView) serve(w http.ResponseWriter, r *http.Request, obj model.Record, candidates []string) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s, err := v.build(r, obj, nil)
		if err != nil {
			v.fail(w, r, err)
			return
		}
		v.renderForms(w, r, obj, s, candidates)
	case http.MethodPost, http.MethodPut:
		if err := r.ParseForm(); err != nil {
			v.fail(w, r, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}
		s, err := v.build(r, obj, r.PostForm)
		if err != nil {
			v.fail(w, r, err)
			return
		}
		if !s.valid() {
			v.renderForms(w, r, obj, s, candidates)
			return
		}
		if _, err := v.save(r.Context(), s); err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				s.applyValidationError(verr)
				v.renderForms(w, r, obj, s, candidates)
				return
			}
			v.logger().Error("views: save failed",
				zap.String("model", v.meta().Label()),
				zap.Error(err),
			)
			v.fail(w, r, err)
			return
		}
		http.Redirect(w, r, v.successURL(), http.StatusFound)
	default:
		v.fail(w, r, ErrMethodNotAllowed)
	}
}

func (v *FormView) renderForms(w http.ResponseWriter, r *http.Request, obj model.Record, s *submission, candidates []string) {
	data := v.baseContext(r, obj)
	for key, value := range s.context() {
		data[key] = value
	}
	v.render(w, r, candidates, data, http.StatusOK)
}

// CreateView adds a record.
type CreateView struct {
	FormView
}

func NewCreateView(env Env) *CreateView {
	return &CreateView{FormView: FormView{Env: env}}
}

// Create returns the class building create views customised by fns.
func Create(fns ...func(*CreateView)) Class {
	return func(env Env) http.Handler {
		v := NewCreateView(env)
		for _, fn := range fns {
			if fn != nil {
				fn(v)
			}
		}
		return v
	}
}

func (v *CreateView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !v.hasPerm(auth.UserFrom(r.Context()), nil) {
		v.fail(w, r, ErrPermissionDenied)
		return
	}
	v.serve(w, r, nil, v.candidates(v.TemplateName, []string{"_create", "_form"}, CreateTemplate))
}

// UpdateView edits the record named by the pk route variable.
type UpdateView struct {
	FormView
}

func NewUpdateView(env Env) *UpdateView {
	return &UpdateView{FormView: FormView{Env: env}}
}

// Update returns the class building update views customised by fns.
func Update(fns ...func(*UpdateView)) Class {
	return func(env Env) http.Handler {
		v := NewUpdateView(env)
		for _, fn := range fns {
			if fn != nil {
				fn(v)
			}
		}
		return v
	}
}

func (v *UpdateView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obj, err := v.objectFromRequest(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if !v.hasPerm(auth.UserFrom(r.Context()), obj) {
		v.fail(w, r, ErrPermissionDenied)
		return
	}
	v.serve(w, r, obj, v.candidates(v.TemplateName, []string{"_update", "_form"}, UpdateTemplate))
}
