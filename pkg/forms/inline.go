package forms

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goliatone/go-material/pkg/model"
)

const msgStaleRow = "This row no longer exists. Reload the page and try again."

// InlineSpec defines a formset over child records of Model linked to the
// parent through the FKField column.
type InlineSpec struct {
	Model   model.Model
	FKField string
	// Form lists the editable child fields. Nil means every column except
	// the primary key and FKField.
	Form *Spec
	// Options left at the zero value means DefaultFormSetOptions.
	Options FormSetOptions
}

// NewInlineSpec applies option defaults and clamps.
func NewInlineSpec(child model.Model, fkField string, form *Spec, fns ...FormSetOptionFn) *InlineSpec {
	return &InlineSpec{Model: child, FKField: fkField, Form: form, Options: NewFormSetOptions(fns...)}
}

func (s *InlineSpec) rowSpec() *Spec {
	var fields []Field
	var clean func(*Form) error
	if s.Form != nil {
		fields = append(fields, s.Form.Fields...)
		clean = s.Form.Clean
	} else {
		for _, field := range FieldsFor(s.Model, AllFields) {
			if field.Name == s.FKField {
				continue
			}
			fields = append(fields, field)
		}
	}
	fields = append(fields, Field{Name: "id", Kind: KindHidden, Optional: true})
	return &Spec{Fields: fields, Clean: clean}
}

// New loads the existing children of parent (none when parent is nil or not
// yet saved) and builds the rows. data nil means unbound.
func (s *InlineSpec) New(ctx context.Context, prefix string, parent model.Record, data url.Values) (*InlineFormSet, error) {
	if s.Model == nil || s.FKField == "" {
		return nil, model.Improperly("inline %q needs a model and a foreign key field", prefix)
	}

	var children []model.Record
	if parent != nil && parent.PrimaryKey() != 0 {
		recs, err := s.Model.Manager().Filter(s.FKField, parent.PrimaryKey()).Records(ctx)
		if err != nil {
			return nil, fmt.Errorf("forms: load inline %q: %w", prefix, err)
		}
		children = recs
	}

	initial := make([]map[string]any, 0, len(children))
	for _, child := range children {
		initial = append(initial, model.Values(child))
	}

	fsSpec := &FormSetSpec{Form: s.rowSpec(), Options: s.Options}
	return &InlineFormSet{
		FormSet:  fsSpec.New(prefix, data, initial),
		spec:     s,
		children: children,
	}, nil
}

// InlineFormSet edits the children of one parent record.
type InlineFormSet struct {
	*FormSet
	spec     *InlineSpec
	children []model.Record
}

var (
	_ Component    = (*InlineFormSet)(nil)
	_ RelatedSaver = (*InlineFormSet)(nil)
)

// Children returns the records loaded for the initial rows.
func (fs *InlineFormSet) Children() []model.Record { return fs.children }

// SaveRelated deletes rows marked for deletion and saves changed rows with
// the foreign key pointing at parent. Rows are matched to children by their
// submitted id; a row without one creates a new child.
func (fs *InlineFormSet) SaveRelated(ctx context.Context, parent model.Record) error {
	if !fs.IsValid() {
		return ErrInvalid
	}
	if parent == nil || parent.PrimaryKey() == 0 {
		return fmt.Errorf("forms: inline %q saved before its parent", fs.prefix)
	}
	mgr := fs.spec.Model.Manager()

	byID := make(map[int64]model.Record, len(fs.children))
	for _, child := range fs.children {
		byID[child.PrimaryKey()] = child
	}

	for i, f := range fs.forms {
		existing, err := fs.existing(i, f, byID)
		if fs.ShouldDelete(f) {
			if existing != nil {
				if err := mgr.Delete(ctx, existing); err != nil {
					return fmt.Errorf("forms: delete inline row %d: %w", i, err)
				}
			}
			continue
		}
		if !f.HasChanged() {
			continue
		}
		if err != nil {
			return err
		}

		rec := existing
		if rec == nil {
			rec = fs.spec.Model.New()
		}
		values := make(map[string]any, len(f.CleanedData())+1)
		for key, value := range f.CleanedData() {
			if key == DeletionField || key == "id" || value == nil {
				continue
			}
			values[key] = value
		}
		values[fs.spec.FKField] = parent.PrimaryKey()
		if err := model.Assign(rec, values); err != nil {
			return fmt.Errorf("forms: apply inline row %d: %w", i, err)
		}
		if err := mgr.Save(ctx, rec); err != nil {
			return fmt.Errorf("forms: save inline row %d: %w", i, err)
		}
	}
	return nil
}

// existing resolves the child a row edits. An id that is malformed or not a
// child of this parent is reported on the row.
func (fs *InlineFormSet) existing(i int, f *Form, byID map[int64]model.Record) (model.Record, error) {
	raw, _ := f.CleanedData()["id"].(string)
	if raw == "" {
		return nil, nil
	}
	pk, err := strconv.ParseInt(raw, 10, 64)
	if rec, ok := byID[pk]; err == nil && ok {
		return rec, nil
	}
	key := fmt.Sprintf("%s-%d-%s", fs.prefix, i, NonFieldErrors)
	return nil, model.NewValidationError(key, msgStaleRow)
}
