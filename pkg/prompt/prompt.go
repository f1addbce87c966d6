// Package prompt fills forms from an interactive terminal. It backs the
// command line record creation and shares the validation rules of the HTML
// views.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-material/pkg/forms"
	"github.com/goliatone/go-material/pkg/model"
)

// DefaultAttempts bounds how many times Create asks for an invalid form.
const DefaultAttempts = 3

// Fill asks one question per field and returns the answers keyed the way
// the form expects them on submission. Hidden fields take their initial
// value without asking.
func Fill(ctx context.Context, driver Driver, form *forms.Form) (url.Values, error) {
	if driver == nil {
		return nil, errors.New("prompt: nil driver")
	}
	values := url.Values{}
	for _, field := range form.Fields() {
		key := form.AddPrefix(field.Name)
		def := format(form.Initial(field.Name))
		message := field.DisplayLabel()

		switch field.Kind {
		case forms.KindHidden:
			if def != "" {
				values.Set(key, def)
			}

		case forms.KindBoolean:
			ok, err := driver.Confirm(ctx, ConfirmConfig{
				Message: message,
				Default: def == "true" || def == "on",
				Help:    field.HelpText,
			})
			if err != nil {
				return nil, fmt.Errorf("prompt %s: %w", field.Name, err)
			}
			if ok {
				values.Set(key, "on")
			}

		case forms.KindChoice:
			choices := field.Choices
			if !field.Required() {
				choices = append([]forms.Choice{{Value: "", Label: "---------"}}, choices...)
			}
			labels := make([]string, len(choices))
			selected := 0
			for i, choice := range choices {
				labels[i] = choice.Label
				if choice.Value == def {
					selected = i
				}
			}
			idx, err := driver.Select(ctx, SelectConfig{
				Message:      message,
				Options:      labels,
				DefaultIndex: selected,
				Help:         field.HelpText,
			})
			if err != nil {
				return nil, fmt.Errorf("prompt %s: %w", field.Name, err)
			}
			if idx < 0 || idx >= len(choices) {
				return nil, fmt.Errorf("prompt %s: selection %d out of range", field.Name, idx)
			}
			values.Set(key, choices[idx].Value)

		case forms.KindText:
			answer, err := driver.TextArea(ctx, TextAreaConfig{
				Message: message,
				Default: def,
				Help:    field.HelpText,
			})
			if err != nil {
				return nil, fmt.Errorf("prompt %s: %w", field.Name, err)
			}
			values.Set(key, answer)

		default:
			cfg := InputConfig{
				Message: message,
				Default: def,
				Help:    field.HelpText,
			}
			if field.Required() {
				cfg.Validator = requiredValidator
			}
			answer, err := driver.Input(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("prompt %s: %w", field.Name, err)
			}
			values.Set(key, answer)
		}
	}
	return values, nil
}

// Create asks for a new record of m until the form validates, then saves it.
// Previous answers become the defaults of the next round. spec may be nil to
// ask for every model field.
func Create(ctx context.Context, driver Driver, m model.Model, spec *forms.Spec, attempts int) (model.Record, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var initial map[string]any
	for range attempts {
		form := forms.NewModelForm(m, spec, nil, forms.WithInitial(initial))
		values, err := Fill(ctx, driver, form.Form)
		if err != nil {
			return nil, err
		}

		bound := forms.NewModelForm(m, spec, nil, forms.WithData(values))
		if bound.IsValid() {
			return bound.Save(ctx, true)
		}

		if err := driver.Info(ctx, describeErrors(bound.Form)); err != nil {
			return nil, err
		}
		initial = make(map[string]any, len(values))
		for key := range values {
			initial[key] = values.Get(key)
		}
	}
	return nil, ErrTooManyAttempts
}

func describeErrors(form *forms.Form) string {
	errs := form.Errors()
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Please correct the errors below.")
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %s", name, strings.Join(errs[name], " "))
	}
	return b.String()
}

func requiredValidator(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("this field is required")
	}
	return nil
}

func format(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
