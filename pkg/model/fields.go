package model

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
)

// Column describes one persisted struct field, keyed by its `db` tag.
type Column struct {
	Name   string
	GoName string
	Type   reflect.Type
	index  []int
}

// Columns lists the persisted fields of rec in declaration order, descending
// into embedded structs. Fields tagged `db:"-"` and unexported fields are
// skipped; untagged fields use their snake_cased Go name.
func Columns(rec Record) []Column {
	t := indirectType(reflect.TypeOf(rec))
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return collectColumns(t, nil)
}

func collectColumns(t reflect.Type, parent []int) []Column {
	var out []Column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int{}, parent...), i)
		tag := f.Tag.Get("db")
		if tag == "-" {
			continue
		}
		if f.Anonymous && tag == "" && indirectType(f.Type).Kind() == reflect.Struct {
			if f.Type.Kind() == reflect.Ptr {
				continue
			}
			out = append(out, collectColumns(f.Type, index)...)
			continue
		}
		if !f.IsExported() {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name == "" {
			name = SnakeCase(f.Name)
		}
		out = append(out, Column{Name: name, GoName: f.Name, Type: f.Type, index: index})
	}
	return out
}

// Values returns the persisted fields of rec keyed by column name.
func Values(rec Record) map[string]any {
	v := indirectValue(reflect.ValueOf(rec))
	if !v.IsValid() {
		return map[string]any{}
	}
	cols := Columns(rec)
	out := make(map[string]any, len(cols))
	for _, col := range cols {
		out[col.Name] = v.FieldByIndex(col.index).Interface()
	}
	return out
}

// Lookup resolves an attribute of rec the way list columns name them: a
// column name, an exported Go field, or a zero-argument method (either the
// exact name or the CamelCase form of a snake_case name).
func Lookup(rec Record, name string) (any, bool) {
	if rec == nil || strings.TrimSpace(name) == "" {
		return nil, false
	}
	rv := reflect.ValueOf(rec)
	v := indirectValue(rv)
	if v.IsValid() && v.Kind() == reflect.Struct {
		for _, col := range Columns(rec) {
			if col.Name == name || col.GoName == name {
				return v.FieldByIndex(col.index).Interface(), true
			}
		}
	}
	for _, candidate := range []string{name, CamelCase(name)} {
		m := rv.MethodByName(candidate)
		if !m.IsValid() || m.Type().NumIn() != 0 || m.Type().NumOut() == 0 {
			continue
		}
		out := m.Call(nil)
		if len(out) == 2 {
			if err, ok := out[1].Interface().(error); ok && err != nil {
				return err.Error(), true
			}
		}
		return out[0].Interface(), true
	}
	return nil, false
}

// Assign decodes values onto rec using the `db` tag names. Input is weakly
// typed so cleaned form values and YAML scalars convert to field types.
func Assign(rec Record, values map[string]any) error {
	if rec == nil {
		return fmt.Errorf("model: assign to nil record")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           rec,
		TagName:          "db",
		Squash:           true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("model: build decoder: %w", err)
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("model: assign %T: %w", rec, err)
	}
	return nil
}

// SetField assigns a single column.
func SetField(rec Record, name string, value any) error {
	return Assign(rec, map[string]any{name: value})
}

// Clone returns a shallow copy of rec so stores never hand out their own
// instances.
func Clone(rec Record) Record {
	if rec == nil {
		return nil
	}
	rv := reflect.ValueOf(rec)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return rec
	}
	cp := reflect.New(rv.Elem().Type())
	cp.Elem().Set(rv.Elem())
	out, ok := cp.Interface().(Record)
	if !ok {
		return rec
	}
	return out
}

// Display renders the default textual form of a record: its String method
// when present, otherwise "<verbose name> object (<pk>)".
func Display(meta Meta, rec Record) string {
	if rec == nil {
		return ""
	}
	if s, ok := rec.(fmt.Stringer); ok {
		return s.String()
	}
	name := meta.VerboseName
	if name == "" {
		name = meta.ModelName
	}
	return fmt.Sprintf("%s object (%d)", Capitalize(name), rec.PrimaryKey())
}

// Humanize turns a column name into a label: "first_name" -> "First name".
func Humanize(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), "_id")
	name = strings.ReplaceAll(name, "_", " ")
	return Capitalize(strings.TrimSpace(name))
}

// Capitalize upper-cases the first rune only.
func Capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

// SnakeCase converts Go identifiers: "DaytimePhone" -> "daytime_phone".
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CamelCase converts "full_name" to "FullName".
func CamelCase(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(Capitalize(part))
	}
	return b.String()
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func indirectValue(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
