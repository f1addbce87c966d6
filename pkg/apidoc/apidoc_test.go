package apidoc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-material/pkg/apidoc"
	"github.com/goliatone/go-material/pkg/forms"
	"github.com/goliatone/go-material/pkg/frontend"
	"github.com/goliatone/go-material/pkg/testsupport"
	"github.com/goliatone/go-material/pkg/viewset"
)

func buildDoc(t *testing.T) *openapi3.T {
	t.Helper()

	m, _ := testsupport.NewWidgetModel(t)
	site := frontend.New(frontend.WithRenderer(testsupport.NewRenderer(t)))
	if err := site.Register("/shop/widget/", viewset.New(m)); err != nil {
		t.Fatalf("register: %v", err)
	}
	doc, err := apidoc.Build(context.Background(), site, apidoc.WithTitle("Shop"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return doc
}

func TestBuildListsMountedPaths(t *testing.T) {
	doc := buildDoc(t)

	got := doc.Paths.InMatchingOrder()
	sort.Strings(got)
	want := []string{
		"/shop/widget/",
		"/shop/widget/add/",
		"/shop/widget/{pk}/change/",
		"/shop/widget/{pk}/delete/",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	if doc.Info.Title != "Shop" || doc.Info.Version != "1.0.0" {
		t.Fatalf("unexpected info %+v", doc.Info)
	}
}

func TestListOperationDescribesPaging(t *testing.T) {
	doc := buildDoc(t)

	item := doc.Paths.Value("/shop/widget/")
	if item.Get == nil || item.Head != nil || item.Post != nil {
		t.Fatalf("unexpected list operations %+v", item)
	}
	var params []string
	for _, p := range item.Get.Parameters {
		params = append(params, p.Value.In+":"+p.Value.Name)
	}
	if diff := cmp.Diff([]string{"query:draw", "query:start", "query:length"}, params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
	ok := item.Get.Responses.Status(http.StatusOK)
	if ok == nil || ok.Value.Content.Get("application/json") == nil {
		t.Fatalf("list response lacks JSON content")
	}
	if ref := ok.Value.Content.Get("application/json").Schema.Ref; ref != "#/components/schemas/Page" {
		t.Fatalf("unexpected page ref %q", ref)
	}
	if item.Get.OperationID != "shop.widget_list.get" {
		t.Fatalf("unexpected operation id %q", item.Get.OperationID)
	}
}

func TestChangeOperationTakesPrimaryKeyAndForm(t *testing.T) {
	doc := buildDoc(t)

	item := doc.Paths.Value("/shop/widget/{pk}/change/")
	if item.Get == nil || item.Post == nil || item.Put == nil || item.Delete != nil {
		t.Fatalf("unexpected change operations %+v", item)
	}
	if p := item.Put.Parameters.GetByInAndName("path", "pk"); p == nil || !p.Required {
		t.Fatalf("missing required pk parameter")
	}
	media := item.Put.RequestBody.Value.Content.Get("application/x-www-form-urlencoded")
	if media == nil || media.Schema.Ref != "#/components/schemas/ShopWidgetForm" {
		t.Fatalf("unexpected request body %+v", item.Put.RequestBody.Value)
	}
	if item.Put.Responses.Status(http.StatusFound) == nil {
		t.Fatalf("missing redirect response")
	}
}

func TestFormSchema(t *testing.T) {
	schema := apidoc.FormSchema([]forms.Field{
		{Name: "name", Kind: forms.KindChar},
		{Name: "stock", Kind: forms.KindInteger, Optional: true},
		{Name: "active", Kind: forms.KindBoolean},
		{Name: "relationship", Kind: forms.KindChoice, Choices: []forms.Choice{{Value: "SPS", Label: "Spouse"}}},
	})

	if diff := cmp.Diff([]string{"name", "relationship"}, schema.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if !schema.Properties["stock"].Value.Type.Is(openapi3.TypeInteger) {
		t.Fatalf("stock should be an integer")
	}
	if !schema.Properties["active"].Value.Type.Is(openapi3.TypeBoolean) {
		t.Fatalf("active should be a boolean")
	}
	if diff := cmp.Diff([]any{"SPS"}, schema.Properties["relationship"].Value.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
	if schema.Properties["name"].Value.Title != "Name" {
		t.Fatalf("unexpected title %q", schema.Properties["name"].Value.Title)
	}
}

func TestHandlerServesJSON(t *testing.T) {
	doc := buildDoc(t)

	rec := httptest.NewRecorder()
	apidoc.Handler(doc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["openapi"] != "3.0.3" {
		t.Fatalf("unexpected openapi version %v", decoded["openapi"])
	}
}

func TestServedDocumentLoadsBack(t *testing.T) {
	doc := buildDoc(t)

	rec := httptest.NewRecorder()
	apidoc.Handler(doc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	loaded, err := openapi3.NewLoader().LoadFromData(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("load served document: %v", err)
	}
	if err := loaded.Validate(context.Background()); err != nil {
		t.Fatalf("validate served document: %v", err)
	}
	op := loaded.Paths.Value("/shop/widget/add/").Post
	if op == nil || op.RequestBody.Value.Content.Get("application/x-www-form-urlencoded").Schema.Value == nil {
		t.Fatalf("expected resolved form schema on the add operation")
	}
	if _, ok := loaded.Components.Schemas["ShopWidgetForm"].Value.Properties["stock"]; !ok {
		t.Fatalf("expected stock property in the widget form schema")
	}
}

var _ apidoc.Source = (*frontend.Frontend)(nil)
