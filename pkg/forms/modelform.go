package forms

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-material/pkg/model"
)

// AllFields selects every editable column of a model.
const AllFields = "__all__"

// ErrInvalid is returned when saving a form that did not validate.
var ErrInvalid = errors.New("forms: form is not valid")

// Component is anything the composite save flow validates and renders.
type Component interface {
	Prefix() string
	IsValid() bool
	AddError(field string, messages ...string)
	Context() any
}

// RelatedSaver persists a component after its parent record was saved.
type RelatedSaver interface {
	SaveRelated(ctx context.Context, parent model.Record) error
}

// FieldsFor derives form fields from a model's columns. With no names or
// AllFields every column except the primary key is used; otherwise the
// given columns in the given order.
func FieldsFor(m model.Model, names ...string) []Field {
	cols := model.Columns(m.New())
	byName := make(map[string]model.Column, len(cols))
	for _, col := range cols {
		byName[col.Name] = col
	}

	if len(names) == 0 || (len(names) == 1 && names[0] == AllFields) {
		names = nil
		for _, col := range cols {
			if col.Name != "id" {
				names = append(names, col.Name)
			}
		}
	}

	out := make([]Field, 0, len(names))
	for _, name := range names {
		col, ok := byName[name]
		if !ok {
			continue
		}
		out = append(out, fieldForColumn(col))
	}
	return out
}

func fieldForColumn(col model.Column) Field {
	field := Field{Name: col.Name, Label: model.Humanize(col.Name), Kind: KindChar}
	t := col.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
		field.Optional = true
	}
	switch t.Kind() {
	case reflect.Bool:
		field.Kind = KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		field.Kind = KindInteger
	default:
		if strings.Contains(col.Name, "email") {
			field.Kind = KindEmail
		}
	}
	return field
}

// ModelForm binds a form to a record of a model. Instance is nil when
// creating.
type ModelForm struct {
	*Form
	model    model.Model
	instance model.Record
}

var (
	_ Component    = (*ModelForm)(nil)
	_ RelatedSaver = (*ModelForm)(nil)
)

// NewModelForm builds the form. A nil spec uses every model field. When
// instance is given its column values become the initial data.
func NewModelForm(m model.Model, spec *Spec, instance model.Record, opts ...Option) *ModelForm {
	if spec == nil {
		spec = &Spec{Fields: FieldsFor(m, AllFields)}
	}
	var seed []Option
	if instance != nil {
		seed = append(seed, WithInitial(model.Values(instance)))
	}
	return &ModelForm{
		Form:     spec.New(append(seed, opts...)...),
		model:    m,
		instance: instance,
	}
}

// Instance returns the record being edited or the one built by Save.
func (f *ModelForm) Instance() model.Record { return f.instance }

// Model returns the bound model.
func (f *ModelForm) Model() model.Model { return f.model }

// Save copies cleaned data onto the instance (a new record when creating)
// and persists it when commit is true.
func (f *ModelForm) Save(ctx context.Context, commit bool) (model.Record, error) {
	if !f.IsValid() {
		return nil, ErrInvalid
	}
	rec := f.instance
	if rec == nil {
		rec = f.model.New()
	}
	if err := model.Assign(rec, f.assignable()); err != nil {
		return nil, fmt.Errorf("forms: apply cleaned data: %w", err)
	}
	f.instance = rec
	if commit {
		if err := f.model.Manager().Save(ctx, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// SaveRelated saves the form as an extra form of a composite submission.
func (f *ModelForm) SaveRelated(ctx context.Context, _ model.Record) error {
	_, err := f.Save(ctx, true)
	return err
}

// assignable drops nil values so optional integers keep the record's value.
func (f *ModelForm) assignable() map[string]any {
	out := make(map[string]any, len(f.CleanedData()))
	for key, value := range f.CleanedData() {
		if value == nil {
			continue
		}
		out[key] = value
	}
	return out
}
