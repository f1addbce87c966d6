// Package apidoc describes the mounted viewsets as an OpenAPI 3 document so
// the datatable JSON endpoints and form submissions can be consumed by other
// clients.
package apidoc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-material/pkg/forms"
	"github.com/goliatone/go-material/pkg/frontend"
	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/views"
	"github.com/goliatone/go-material/pkg/viewset"
)

const (
	// PageSchema is the component name of the datatable JSON response.
	PageSchema = "Page"

	formContentType = "application/x-www-form-urlencoded"
	htmlContentType = "text/html"
	jsonContentType = "application/json"
)

// Source lists mounted viewsets. *frontend.Frontend implements it.
type Source interface {
	Mounts() []frontend.Mount
}

// Options configures the generated document info.
type Options struct {
	Title       string
	Version     string
	Description string
}

type OptionFn func(*Options)

func NewOptions(fns ...OptionFn) Options {
	opts := Options{}
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	if strings.TrimSpace(opts.Title) == "" {
		opts.Title = "Material frontend"
	}
	if strings.TrimSpace(opts.Version) == "" {
		opts.Version = "1.0.0"
	}
	return opts
}

func WithTitle(title string) OptionFn {
	return func(o *Options) {
		o.Title = title
	}
}

func WithVersion(version string) OptionFn {
	return func(o *Options) {
		o.Version = version
	}
}

func WithDescription(description string) OptionFn {
	return func(o *Options) {
		o.Description = description
	}
}

// Build returns a validated document with one path per mounted route.
func Build(ctx context.Context, src Source, fns ...OptionFn) (*openapi3.T, error) {
	opts := NewOptions(fns...)
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       opts.Title,
			Version:     opts.Version,
			Description: opts.Description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				PageSchema: openapi3.NewSchemaRef("", pageSchema()),
			},
		},
	}

	for _, mount := range src.Mounts() {
		meta := mount.ViewSet.Model.Meta()
		formName := schemaName(meta.AppLabel, meta.ModelName)
		form := FormSchema(forms.FieldsFor(mount.ViewSet.Model, forms.AllFields))
		doc.Components.Schemas[formName] = openapi3.NewSchemaRef("", form)
		formRef := &openapi3.SchemaRef{Ref: schemaRef(formName), Value: form}

		for _, route := range mount.Routes {
			item := &openapi3.PathItem{}
			for _, method := range route.Methods {
				if method == http.MethodHead {
					continue
				}
				item.SetOperation(method, operation(route, method, meta, formRef))
			}
			doc.Paths.Set(joinPath(mount.Prefix, route.Path), item)
		}
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("apidoc: validate: %w", err)
	}
	return doc, nil
}

// Handler serves doc as JSON.
func Handler(doc *openapi3.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", jsonContentType)
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// FormSchema maps form fields onto an object schema. Choice fields become
// string enums.
func FormSchema(fields []forms.Field) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, field := range fields {
		var prop *openapi3.Schema
		switch field.Kind {
		case forms.KindInteger:
			prop = openapi3.NewIntegerSchema()
		case forms.KindBoolean:
			prop = openapi3.NewBoolSchema()
		case forms.KindEmail:
			prop = openapi3.NewStringSchema().WithFormat("email")
		case forms.KindChoice:
			values := make([]any, 0, len(field.Choices))
			for _, choice := range field.Choices {
				values = append(values, choice.Value)
			}
			prop = openapi3.NewStringSchema().WithEnum(values...)
		default:
			prop = openapi3.NewStringSchema()
		}
		prop.Title = field.DisplayLabel()
		prop.Description = field.HelpText
		schema.WithProperty(field.Name, prop)
		if field.Required() {
			schema.Required = append(schema.Required, field.Name)
		}
	}
	return schema
}

func pageSchema() *openapi3.Schema {
	rows := openapi3.NewArraySchema().WithItems(
		openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()),
	)
	schema := openapi3.NewObjectSchema().
		WithProperty("draw", openapi3.NewIntegerSchema()).
		WithProperty("recordsTotal", openapi3.NewIntegerSchema()).
		WithProperty("recordsFiltered", openapi3.NewIntegerSchema()).
		WithProperty("data", rows)
	schema.Required = []string{"draw", "recordsTotal", "recordsFiltered", "data"}
	return schema
}

func operation(route viewset.Route, method string, meta model.Meta, form *openapi3.SchemaRef) *openapi3.Operation {
	kind, verbose := route.Kind, meta.VerboseName
	op := openapi3.NewOperation()
	op.OperationID = strings.ReplaceAll(route.Name, ":", ".") + "." + strings.ToLower(method)
	op.Tags = []string{meta.Label()}
	op.Responses = &openapi3.Responses{}

	if kind != views.RouteList && kind != views.RouteAdd {
		op.AddParameter(openapi3.NewPathParameter(views.PKVar).WithSchema(openapi3.NewIntegerSchema()))
		op.Responses.Set("404", responseRef("Not found."))
	}
	op.Responses.Set("403", responseRef("Permission denied."))

	switch {
	case kind == views.RouteList:
		op.Summary = "List " + verbose + " records"
		for _, param := range []string{"draw", "start", "length"} {
			op.AddParameter(openapi3.NewQueryParameter(param).WithSchema(openapi3.NewIntegerSchema()))
		}
		ok := openapi3.NewResponse().WithDescription("Rendered list, or a datatable page for AJAX requests.")
		ok.Content = openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{htmlContentType})
		ok.Content[jsonContentType] = openapi3.NewMediaType().WithSchemaRef(
			&openapi3.SchemaRef{Ref: schemaRef(PageSchema), Value: pageSchema()},
		)
		op.Responses.Set("200", &openapi3.ResponseRef{Value: ok})
		op.Responses.Set("400", responseRef("Invalid paging parameters."))

	case method == http.MethodGet:
		switch kind {
		case views.RouteAdd:
			op.Summary = "Show the " + verbose + " creation form"
		case views.RouteChange:
			op.Summary = "Show the " + verbose + " change form"
		case views.RouteDelete:
			op.Summary = "Confirm deleting a " + verbose
		default:
			op.Summary = "Show a " + verbose
		}
		op.Responses.Set("200", htmlResponse("Rendered page."))

	case kind == views.RouteDelete:
		op.Summary = "Delete a " + verbose
		op.Responses.Set("302", responseRef("Deleted, redirecting to the success URL."))

	default:
		if kind == views.RouteAdd {
			op.Summary = "Create a " + verbose
		} else {
			op.Summary = "Update a " + verbose
		}
		body := openapi3.NewRequestBody().WithRequired(true).WithContent(
			openapi3.NewContentWithSchemaRef(form, []string{formContentType}),
		)
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
		op.Responses.Set("200", htmlResponse("Form re-rendered with validation errors."))
		op.Responses.Set("302", responseRef("Saved, redirecting to the success URL."))
	}
	return op
}

func responseRef(description string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(description)}
}

func htmlResponse(description string) *openapi3.ResponseRef {
	resp := openapi3.NewResponse().WithDescription(description)
	resp.Content = openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{htmlContentType})
	return &openapi3.ResponseRef{Value: resp}
}

func joinPath(prefix, path string) string {
	return strings.TrimSuffix(prefix, "/") + path
}

func schemaRef(name string) string {
	return "#/components/schemas/" + name
}

func schemaName(app, name string) string {
	return capitalize(app) + capitalize(name) + "Form"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
