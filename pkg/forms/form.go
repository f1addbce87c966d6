package forms

import (
	"errors"
	"net/url"
	"strings"

	"github.com/goliatone/go-material/pkg/model"
)

// Spec declares a form: its fields and an optional cross-field check run
// after every field has been cleaned.
type Spec struct {
	Fields []Field
	Clean  func(f *Form) error
}

// Option configures a form instance.
type Option func(*Form)

// WithPrefix namespaces every input name as "<prefix>-<name>".
func WithPrefix(prefix string) Option {
	return func(f *Form) {
		f.prefix = strings.TrimSpace(prefix)
	}
}

// WithData binds the form to submitted values.
func WithData(data url.Values) Option {
	return func(f *Form) {
		if data == nil {
			data = url.Values{}
		}
		f.data = data
	}
}

// WithInitial seeds the values rendered by an unbound form and used to
// detect changes on a bound one.
func WithInitial(initial map[string]any) Option {
	return func(f *Form) {
		for key, value := range initial {
			f.initial[key] = value
		}
	}
}

// WithEmptyPermitted lets an unchanged bound form validate without data.
func WithEmptyPermitted(permitted bool) Option {
	return func(f *Form) {
		f.emptyPermitted = permitted
	}
}

func withFields(fields ...Field) Option {
	return func(f *Form) {
		f.fields = append(f.fields, fields...)
	}
}

// New instantiates the form.
func (s *Spec) New(opts ...Option) *Form {
	f := &Form{
		spec:    s,
		initial: make(map[string]any),
	}
	if s != nil {
		f.fields = append(f.fields, s.Fields...)
		for _, field := range s.Fields {
			if field.Initial != nil {
				f.initial[field.Name] = field.Initial
			}
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Form is one instance of a Spec. It is not safe for concurrent use; views
// build one per request.
type Form struct {
	spec           *Spec
	fields         []Field
	prefix         string
	data           url.Values
	initial        map[string]any
	emptyPermitted bool

	validated bool
	cleaned   map[string]any
	errors    map[string][]string
}

var _ Component = (*Form)(nil)

// Prefix returns the input name prefix.
func (f *Form) Prefix() string { return f.prefix }

// IsBound reports whether the form received submitted data.
func (f *Form) IsBound() bool { return f.data != nil }

// Fields returns the declared fields.
func (f *Form) Fields() []Field { return append([]Field(nil), f.fields...) }

// Initial returns the initial value of a field.
func (f *Form) Initial(name string) any { return f.initial[name] }

// AddPrefix returns the submitted key for a field.
func (f *Form) AddPrefix(name string) string {
	if f.prefix == "" {
		return name
	}
	return f.prefix + "-" + name
}

// IsValid cleans the form on first call. Unbound forms are never valid.
func (f *Form) IsValid() bool {
	if !f.IsBound() {
		return false
	}
	f.fullClean()
	return len(f.errors) == 0
}

// Errors returns the collected messages keyed by field name, with form-level
// messages under NonFieldErrors.
func (f *Form) Errors() map[string][]string {
	if f.IsBound() {
		f.fullClean()
	}
	return f.errors
}

// NonFieldErrors returns the form-level messages.
func (f *Form) NonFieldErrors() []string {
	return f.Errors()[NonFieldErrors]
}

// CleanedData returns the parsed values of a valid form.
func (f *Form) CleanedData() map[string]any {
	if f.IsBound() {
		f.fullClean()
	}
	return f.cleaned
}

// AddError attaches messages to a field. Keys that do not name a field of
// this form (after prefix and path normalisation) land in NonFieldErrors.
func (f *Form) AddError(field string, messages ...string) {
	names := make([]string, 0, len(f.fields))
	for _, fd := range f.fields {
		names = append(names, fd.Name)
	}
	mapping := MapErrors(f.prefix, names, map[string][]string{field: messages})
	if f.errors == nil {
		f.errors = make(map[string][]string)
	}
	for name, msgs := range mapping.Fields {
		f.errors[name] = MergeErrors(f.errors[name], msgs...)
		delete(f.cleaned, name)
	}
	if len(mapping.Form) > 0 {
		f.errors[NonFieldErrors] = MergeErrors(f.errors[NonFieldErrors], mapping.Form...)
	}
}

// HasChanged reports whether submitted data differs from the initial values.
func (f *Form) HasChanged() bool {
	if !f.IsBound() {
		return false
	}
	for _, field := range f.fields {
		key := f.AddPrefix(field.Name)
		_, present := f.data[key]
		raw := f.data.Get(key)
		initial := f.initial[field.Name]
		if field.Kind == KindBoolean {
			if (present && truthy(raw)) != truthy(stringify(initial)) {
				return true
			}
			continue
		}
		if strings.TrimSpace(raw) != strings.TrimSpace(stringify(initial)) {
			return true
		}
	}
	return false
}

func (f *Form) fullClean() {
	if f.validated {
		return
	}
	f.validated = true
	f.cleaned = make(map[string]any, len(f.fields))
	f.errors = make(map[string][]string)

	if f.emptyPermitted && !f.HasChanged() {
		f.errors = nil
		return
	}

	for _, field := range f.fields {
		key := f.AddPrefix(field.Name)
		_, present := f.data[key]
		value, msgs := field.clean(f.data.Get(key), present)
		if len(msgs) > 0 {
			f.errors[field.Name] = msgs
			continue
		}
		f.cleaned[field.Name] = value
	}

	if f.spec != nil && f.spec.Clean != nil {
		if err := f.spec.Clean(f); err != nil {
			f.applyError(err)
		}
	}
	if len(f.errors) == 0 {
		f.errors = nil
	}
}

func (f *Form) applyError(err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		for key, msgs := range verr.Fields {
			f.AddError(key, msgs...)
		}
		return
	}
	f.AddError(NonFieldErrors, err.Error())
}

// ApplyValidationError copies the messages of a save-time validation error
// onto the form.
func (f *Form) ApplyValidationError(err error) {
	if err != nil {
		f.applyError(err)
	}
}

func (f *Form) value(field Field) string {
	if f.IsBound() {
		return f.data.Get(f.AddPrefix(field.Name))
	}
	return stringify(f.initial[field.Name])
}

func (f *Form) checked(field Field) bool {
	if f.IsBound() {
		key := f.AddPrefix(field.Name)
		_, present := f.data[key]
		return present && truthy(f.data.Get(key))
	}
	return truthy(stringify(f.initial[field.Name]))
}

// FieldContext is the template view of one input.
type FieldContext struct {
	Name      string   `json:"name"`
	HTMLName  string   `json:"html_name"`
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Kind      Kind     `json:"kind"`
	InputType string   `json:"input_type"`
	Value     string   `json:"value"`
	Checked   bool     `json:"checked"`
	Required  bool     `json:"required"`
	HelpText  string   `json:"help_text,omitempty"`
	Choices   []Choice `json:"choices,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// FormContext is the template view of a form.
type FormContext struct {
	Prefix         string         `json:"prefix"`
	Fields         []FieldContext `json:"fields"`
	Hidden         []FieldContext `json:"hidden"`
	NonFieldErrors []string       `json:"non_field_errors,omitempty"`
	Bound          bool           `json:"bound"`
}

// Context renders the form state for templates.
func (f *Form) Context() any { return f.FormContext() }

// FormContext is Context with its concrete type.
func (f *Form) FormContext() FormContext {
	errs := f.errors
	out := FormContext{
		Prefix:         f.prefix,
		Fields:         []FieldContext{},
		Hidden:         []FieldContext{},
		NonFieldErrors: errs[NonFieldErrors],
		Bound:          f.IsBound(),
	}
	for _, field := range f.fields {
		htmlName := f.AddPrefix(field.Name)
		fc := FieldContext{
			Name:      field.Name,
			HTMLName:  htmlName,
			ID:        "id_" + htmlName,
			Label:     field.label(),
			Kind:      field.Kind,
			InputType: field.inputType(),
			Value:     f.value(field),
			Checked:   field.Kind == KindBoolean && f.checked(field),
			Required:  field.required(),
			HelpText:  field.HelpText,
			Choices:   field.Choices,
			Errors:    errs[field.Name],
		}
		if field.Kind == KindHidden {
			out.Hidden = append(out.Hidden, fc)
			continue
		}
		out.Fields = append(out.Fields, fc)
	}
	return out
}
