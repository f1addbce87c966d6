package forms

import (
	"fmt"
	"strings"
)

// HiddenField is a hidden input rendered outside the visible fields, such as
// the management form counters of a formset.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}
