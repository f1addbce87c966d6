package template

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTemplateNotFound is returned when none of the candidate names exist.
var ErrTemplateNotFound = errors.New("template: no template found")

// TemplateRenderer renders a named template, copying the output to out.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}

// Selector picks the first existing template among candidates.
type Selector interface {
	SelectTemplate(candidates ...string) (string, error)
}

// Renderer is what views need: rendering plus candidate selection.
type Renderer interface {
	TemplateRenderer
	Selector
}

// RenderFirst renders the first existing candidate into out.
func RenderFirst(r Renderer, candidates []string, data any, out ...io.Writer) (string, error) {
	if r == nil {
		return "", errors.New("template: renderer is nil")
	}
	name, err := r.SelectTemplate(candidates...)
	if err != nil {
		return "", err
	}
	return r.RenderTemplate(name, data, out...)
}

// NotFound builds the error returned when no candidate exists.
func NotFound(candidates []string) error {
	return fmt.Errorf("%w: tried %s", ErrTemplateNotFound, strings.Join(candidates, ", "))
}
