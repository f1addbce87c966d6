package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind selects how a field parses its raw value and which input it renders.
type Kind string

const (
	KindChar    Kind = "char"
	KindText    Kind = "text"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindChoice  Kind = "choice"
	KindEmail   Kind = "email"
	KindHidden  Kind = "hidden"
)

// NonFieldErrors is the error key for messages raised against the form as a
// whole.
const NonFieldErrors = "__all__"

const (
	msgRequired     = "This field is required."
	msgInteger      = "Enter a whole number."
	msgEmail        = "Enter a valid email address."
	msgInvalidValue = "Enter a valid value."
)

var validate = validator.New()

// Choice is one option of a choice field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field declares one input. Fields are required unless Optional is set;
// boolean fields are never required so an unchecked box is valid.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Optional bool
	HelpText string
	Choices  []Choice
	Initial  any
	// Rules is a go-playground/validator tag applied to the parsed value,
	// for example "max=40" or "min=0".
	Rules string
}

func (f Field) required() bool {
	return !f.Optional && f.Kind != KindBoolean
}

// Required reports whether an empty submission fails validation.
func (f Field) Required() bool { return f.required() }

// DisplayLabel returns Label, or the field name in sentence case.
func (f Field) DisplayLabel() string { return f.label() }

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	label := strings.ReplaceAll(f.Name, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func (f Field) inputType() string {
	switch f.Kind {
	case KindInteger:
		return "number"
	case KindBoolean:
		return "checkbox"
	case KindEmail:
		return "email"
	case KindHidden:
		return "hidden"
	case KindChoice:
		return "select"
	case KindText:
		return "textarea"
	default:
		return "text"
	}
}

// clean parses raw into the field's Go value. present reports whether the
// key was submitted at all, which matters for checkboxes.
func (f Field) clean(raw string, present bool) (any, []string) {
	if f.Kind == KindBoolean {
		return present && truthy(raw), nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		if f.required() {
			return nil, []string{msgRequired}
		}
		return f.emptyValue(), nil
	}

	var parsed any
	switch f.Kind {
	case KindInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, []string{msgInteger}
		}
		parsed = n
	case KindEmail:
		if err := validate.Var(value, "email"); err != nil {
			return nil, []string{msgEmail}
		}
		parsed = value
	case KindChoice:
		if !f.hasChoice(value) {
			return nil, []string{fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", value)}
		}
		parsed = value
	default:
		parsed = value
	}

	if f.Rules != "" {
		if err := validate.Var(parsed, f.Rules); err != nil {
			return nil, ruleMessages(err)
		}
	}
	return parsed, nil
}

func (f Field) emptyValue() any {
	switch f.Kind {
	case KindInteger:
		return nil
	default:
		return ""
	}
}

func (f Field) hasChoice(value string) bool {
	for _, choice := range f.Choices {
		if choice.Value == value {
			return true
		}
	}
	return false
}

func ruleMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{msgInvalidValue}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ruleMessage(fe))
	}
	return normalizeMessages(out)
}

func ruleMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "max":
		if isString {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "len":
		return fmt.Sprintf("Ensure this value has exactly %s characters.", fe.Param())
	case "email":
		return msgEmail
	case "oneof":
		return "Select a valid choice."
	default:
		return msgInvalidValue
	}
}

func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "off", "no":
		return false
	default:
		return true
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}
