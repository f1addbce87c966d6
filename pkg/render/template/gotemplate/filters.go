package gotemplate

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
)

var filtersOnce sync.Once

// registerFilters adds the Material filters. pongo2 keeps filters in a
// process-wide registry.
func registerFilters() {
	filtersOnce.Do(func() {
		for name, fn := range map[string]pongo2.FilterFunction{
			"lowerfirst":  filterLowerFirst,
			"field_class": filterFieldClass,
		} {
			if !pongo2.FilterExists(name) {
				_ = pongo2.RegisterFilter(name, fn)
			}
		}
	})
}

// filterLowerFirst lowercases the first letter, so "Emergency contact"
// reads well mid-sentence.
func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	s := in.String()
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return pongo2.AsValue(s), nil
	}
	return pongo2.AsValue(string(unicode.ToLower(r)) + s[size:]), nil
}

// filterFieldClass builds the wrapper classes of a form field:
// "field field--<kind>", plus "field--invalid" when it has errors.
func filterFieldClass(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	field, _ := in.Interface().(map[string]any)
	classes := []string{"field"}
	if kind, _ := field["kind"].(string); kind != "" {
		classes = append(classes, "field--"+kind)
	}
	if errs, _ := field["errors"].([]any); len(errs) > 0 {
		classes = append(classes, "field--invalid")
	}
	return pongo2.AsValue(strings.Join(classes, " ")), nil
}
