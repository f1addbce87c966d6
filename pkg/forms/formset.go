package forms

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-material/pkg/model"
)

// Management form keys, submitted as "<prefix>-<key>".
const (
	TotalFormCount   = "TOTAL_FORMS"
	InitialFormCount = "INITIAL_FORMS"
	MinNumFormCount  = "MIN_NUM_FORMS"
	MaxNumFormCount  = "MAX_NUM_FORMS"

	// DeletionField marks a row for removal when CanDelete is set.
	DeletionField = "DELETE"

	// DefaultMaxNum bounds MaxNum and AbsoluteMax when unset.
	DefaultMaxNum = 1000
)

const msgManagementForm = "ManagementForm data is missing or has been tampered with."

// FormSetOptions mirror the class attributes of a formset definition.
type FormSetOptions struct {
	Extra       int
	MinNum      int
	MaxNum      int
	AbsoluteMax int
	CanDelete   bool
	ValidateMin bool
	ValidateMax bool
}

type FormSetOptionFn func(*FormSetOptions)

func DefaultFormSetOptions() FormSetOptions {
	return FormSetOptions{
		Extra:       1,
		MaxNum:      DefaultMaxNum,
		AbsoluteMax: DefaultMaxNum,
		CanDelete:   true,
	}
}

func NewFormSetOptions(fns ...FormSetOptionFn) FormSetOptions {
	opts := DefaultFormSetOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.Extra < 0 {
		opts.Extra = 0
	}
	if opts.MinNum < 0 {
		opts.MinNum = 0
	}
	if opts.MaxNum <= 0 {
		opts.MaxNum = DefaultMaxNum
	}
	if opts.AbsoluteMax <= 0 {
		opts.AbsoluteMax = DefaultMaxNum
	}
	if opts.AbsoluteMax < opts.MaxNum {
		opts.AbsoluteMax = opts.MaxNum
	}
	return opts
}

func WithExtra(n int) FormSetOptionFn {
	return func(o *FormSetOptions) {
		if o == nil {
			return
		}
		o.Extra = n
	}
}

func WithMinNum(n int) FormSetOptionFn {
	return func(o *FormSetOptions) {
		if o == nil {
			return
		}
		o.MinNum = n
	}
}

func WithMaxNum(n int) FormSetOptionFn {
	return func(o *FormSetOptions) {
		if o == nil {
			return
		}
		o.MaxNum = n
	}
}

func WithAbsoluteMax(n int) FormSetOptionFn {
	return func(o *FormSetOptions) {
		if o == nil {
			return
		}
		o.AbsoluteMax = n
	}
}

func WithCanDelete(enabled bool) FormSetOptionFn {
	return func(o *FormSetOptions) {
		if o == nil {
			return
		}
		o.CanDelete = enabled
	}
}

func WithValidateMin(enabled bool) FormSetOptionFn {
	return func(o *FormSetOptions) {
		if o == nil {
			return
		}
		o.ValidateMin = enabled
	}
}

func WithValidateMax(enabled bool) FormSetOptionFn {
	return func(o *FormSetOptions) {
		if o == nil {
			return
		}
		o.ValidateMax = enabled
	}
}

// SaveRowsFunc persists the changed, non-deleted rows of a formset after the
// parent record of the submission was saved.
type SaveRowsFunc func(ctx context.Context, parent model.Record, rows []map[string]any) error

// FormSetSpec defines a formset of Form rows.
type FormSetSpec struct {
	Form *Spec
	// Options left at the zero value means DefaultFormSetOptions.
	Options FormSetOptions
	Save    SaveRowsFunc
}

// NewFormSetSpec applies option defaults and clamps.
func NewFormSetSpec(form *Spec, fns ...FormSetOptionFn) *FormSetSpec {
	return &FormSetSpec{Form: form, Options: NewFormSetOptions(fns...)}
}

// New builds the formset. data nil means unbound; initial seeds the leading
// rows of an unbound formset.
func (s *FormSetSpec) New(prefix string, data url.Values, initial []map[string]any) *FormSet {
	fs := &FormSet{
		spec:    s,
		opts:    s.options(),
		prefix:  strings.TrimSpace(prefix),
		data:    data,
		initial: initial,
	}
	fs.buildForms()
	return fs
}

func (s *FormSetSpec) options() FormSetOptions {
	if s.Options == (FormSetOptions{}) {
		return DefaultFormSetOptions()
	}
	return NewFormSetOptions(func(o *FormSetOptions) { *o = s.Options })
}

// FormSet is one instance of a FormSetSpec.
type FormSet struct {
	spec    *FormSetSpec
	opts    FormSetOptions
	prefix  string
	data    url.Values
	initial []map[string]any

	forms           []*Form
	initialCount    int
	submittedTotal  int
	managementValid bool

	validated     bool
	valid         bool
	nonFormErrors []string
}

var (
	_ Component    = (*FormSet)(nil)
	_ RelatedSaver = (*FormSet)(nil)
)

func (fs *FormSet) Prefix() string { return fs.prefix }

func (fs *FormSet) IsBound() bool { return fs.data != nil }

func (fs *FormSet) Forms() []*Form { return fs.forms }

func (fs *FormSet) Options() FormSetOptions { return fs.opts }

func (fs *FormSet) InitialFormCount() int { return fs.initialCount }

func (fs *FormSet) TotalFormCount() int { return len(fs.forms) }

func (fs *FormSet) key(name string) string {
	return fs.prefix + "-" + name
}

func (fs *FormSet) buildForms() {
	total := 0
	if fs.IsBound() {
		t, errT := strconv.Atoi(strings.TrimSpace(fs.data.Get(fs.key(TotalFormCount))))
		i, errI := strconv.Atoi(strings.TrimSpace(fs.data.Get(fs.key(InitialFormCount))))
		fs.managementValid = errT == nil && errI == nil && t >= 0 && i >= 0
		if fs.managementValid {
			fs.submittedTotal = t
			total = min(t, fs.opts.AbsoluteMax)
			fs.initialCount = min(i, total)
		}
	} else {
		fs.managementValid = true
		fs.initialCount = len(fs.initial)
		total = max(fs.initialCount, fs.opts.MinNum) + fs.opts.Extra
		switch {
		case fs.initialCount > fs.opts.MaxNum:
			total = fs.initialCount
		case total > fs.opts.MaxNum:
			total = fs.opts.MaxNum
		}
		total = min(total, fs.opts.AbsoluteMax)
		fs.initialCount = min(fs.initialCount, total)
	}

	fs.forms = make([]*Form, 0, total)
	for i := 0; i < total; i++ {
		fs.forms = append(fs.forms, fs.newForm(i))
	}
}

func (fs *FormSet) newForm(i int) *Form {
	opts := []Option{
		WithPrefix(fs.formPrefix(strconv.Itoa(i))),
		WithEmptyPermitted(i >= fs.initialCount && i >= fs.opts.MinNum),
	}
	if fs.IsBound() {
		opts = append(opts, WithData(fs.data))
	}
	if i < len(fs.initial) {
		opts = append(opts, WithInitial(fs.initial[i]))
	}
	if fs.opts.CanDelete {
		opts = append(opts, withFields(deletionField()))
	}
	return fs.spec.Form.New(opts...)
}

func (fs *FormSet) formPrefix(index string) string {
	if fs.prefix == "" {
		return index
	}
	return fs.prefix + "-" + index
}

func deletionField() Field {
	return Field{Name: DeletionField, Label: "Delete", Kind: KindBoolean, Optional: true}
}

// EmptyForm is the row template client code clones when adding rows.
func (fs *FormSet) EmptyForm() *Form {
	opts := []Option{WithPrefix(fs.formPrefix("__prefix__")), WithEmptyPermitted(true)}
	if fs.opts.CanDelete {
		opts = append(opts, withFields(deletionField()))
	}
	return fs.spec.Form.New(opts...)
}

// ShouldDelete reports whether a bound row was marked for deletion.
func (fs *FormSet) ShouldDelete(f *Form) bool {
	if !fs.opts.CanDelete || !f.IsBound() {
		return false
	}
	return truthy(f.data.Get(f.AddPrefix(DeletionField)))
}

// DeletedForms returns the rows marked for deletion.
func (fs *FormSet) DeletedForms() []*Form {
	var out []*Form
	for _, f := range fs.forms {
		if fs.ShouldDelete(f) {
			out = append(out, f)
		}
	}
	return out
}

// IsValid validates every row, so each one collects its errors, then the
// management data and count limits.
func (fs *FormSet) IsValid() bool {
	if !fs.IsBound() {
		return false
	}
	fs.fullClean()
	return fs.valid
}

func (fs *FormSet) fullClean() {
	if fs.validated {
		return
	}
	fs.validated = true
	fs.valid = true

	if !fs.managementValid {
		fs.nonFormErrors = MergeErrors(fs.nonFormErrors, msgManagementForm)
		fs.valid = false
		return
	}

	deleted, empty := 0, 0
	for _, f := range fs.forms {
		if fs.ShouldDelete(f) {
			deleted++
			continue
		}
		if !f.HasChanged() {
			empty++
		}
		if !f.IsValid() {
			fs.valid = false
		}
	}

	if (fs.opts.ValidateMax && len(fs.forms)-deleted > fs.opts.MaxNum) || fs.submittedTotal > fs.opts.AbsoluteMax {
		fs.nonFormErrors = MergeErrors(fs.nonFormErrors, fmt.Sprintf("Please submit at most %d forms.", fs.opts.MaxNum))
		fs.valid = false
	}
	if fs.opts.ValidateMin && len(fs.forms)-deleted-empty < fs.opts.MinNum {
		fs.nonFormErrors = MergeErrors(fs.nonFormErrors, fmt.Sprintf("Please submit at least %d forms.", fs.opts.MinNum))
		fs.valid = false
	}
}

// NonFormErrors returns the messages that apply to the formset as a whole.
func (fs *FormSet) NonFormErrors() []string {
	if fs.IsBound() {
		fs.fullClean()
	}
	return fs.nonFormErrors
}

// Errors lists the field errors of every row, in row order.
func (fs *FormSet) Errors() []map[string][]string {
	out := make([]map[string][]string, 0, len(fs.forms))
	for _, f := range fs.forms {
		out = append(out, f.Errors())
	}
	return out
}

// Rows returns the cleaned data of changed rows not marked for deletion.
func (fs *FormSet) Rows() []map[string]any {
	var out []map[string]any
	for _, f := range fs.forms {
		if fs.ShouldDelete(f) || !f.HasChanged() {
			continue
		}
		row := make(map[string]any, len(f.CleanedData()))
		for key, value := range f.CleanedData() {
			if key == DeletionField {
				continue
			}
			row[key] = value
		}
		out = append(out, row)
	}
	return out
}

// AddError routes "<prefix>-<index>-<field>" keys to the matching row and
// everything else to the non-form errors.
func (fs *FormSet) AddError(field string, messages ...string) {
	if idx, ok := fs.rowIndex(field); ok {
		fs.forms[idx].AddError(field, messages...)
		fs.valid = false
		return
	}
	fs.nonFormErrors = MergeErrors(fs.nonFormErrors, messages...)
	fs.valid = false
}

func (fs *FormSet) rowIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(key), fs.prefix+"-")
	if !ok {
		return 0, false
	}
	head, _, found := strings.Cut(rest, "-")
	if !found {
		return 0, false
	}
	idx, err := strconv.Atoi(head)
	if err != nil || idx < 0 || idx >= len(fs.forms) {
		return 0, false
	}
	return idx, true
}

// SaveRelated hands the changed rows to the spec's Save hook, if any.
func (fs *FormSet) SaveRelated(ctx context.Context, parent model.Record) error {
	if fs.spec.Save == nil {
		return nil
	}
	if !fs.IsValid() {
		return ErrInvalid
	}
	return fs.spec.Save(ctx, parent, fs.Rows())
}

// ManagementForm returns the hidden counter inputs.
func (fs *FormSet) ManagementForm() []HiddenField {
	return []HiddenField{
		Hidden(fs.key(TotalFormCount), len(fs.forms)),
		Hidden(fs.key(InitialFormCount), fs.initialCount),
		Hidden(fs.key(MinNumFormCount), fs.opts.MinNum),
		Hidden(fs.key(MaxNumFormCount), fs.opts.MaxNum),
	}
}

// FormSetContext is the template view of a formset.
type FormSetContext struct {
	Prefix         string        `json:"prefix"`
	ManagementForm []HiddenField `json:"management_form"`
	Forms          []FormContext `json:"forms"`
	EmptyForm      FormContext   `json:"empty_form"`
	NonFormErrors  []string      `json:"non_form_errors,omitempty"`
	CanDelete      bool          `json:"can_delete"`
	MinNum         int           `json:"min_num"`
	MaxNum         int           `json:"max_num"`
}

func (fs *FormSet) Context() any { return fs.FormSetContext() }

func (fs *FormSet) FormSetContext() FormSetContext {
	out := FormSetContext{
		Prefix:         fs.prefix,
		ManagementForm: fs.ManagementForm(),
		Forms:          make([]FormContext, 0, len(fs.forms)),
		EmptyForm:      fs.EmptyForm().FormContext(),
		NonFormErrors:  fs.nonFormErrors,
		CanDelete:      fs.opts.CanDelete,
		MinNum:         fs.opts.MinNum,
		MaxNum:         fs.opts.MaxNum,
	}
	for _, f := range fs.forms {
		out.Forms = append(out.Forms, f.FormContext())
	}
	return out
}
