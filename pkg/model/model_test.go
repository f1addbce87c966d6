package model_test

import (
	"errors"
	"html/template"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-material/pkg/model"
)

type contact struct {
	model.Base
	Name         string `db:"name"`
	DaytimePhone string `db:"daytime_phone"`
	Age          int    `db:"age"`
	Active       bool
	UserID       int64  `db:"user_id"`
	secret       string //nolint:unused
	Skip         string `db:"-"`
}

func (c *contact) Greeting() string { return "hello " + c.Name }

func (c *contact) Badge() template.HTML { return template.HTML("<b>" + c.Name + "</b>") }

type named struct {
	model.Base
	Title string `db:"title"`
}

func (n *named) String() string { return n.Title }

func TestDefineDerivesNames(t *testing.T) {
	m := model.Define(model.Meta{AppLabel: "Demo", ModelName: "Contact"}, func() model.Record { return &contact{} }, nil)

	want := model.Meta{
		AppLabel:          "demo",
		ModelName:         "contact",
		VerboseName:       "contact",
		VerboseNamePlural: "contacts",
		Table:             "demo_contact",
	}
	if diff := cmp.Diff(want, m.Meta()); diff != "" {
		t.Fatalf("meta mismatch (-want +got):\n%s", diff)
	}
	if got := m.Meta().Label(); got != "demo.contact" {
		t.Fatalf("unexpected label %q", got)
	}
	if _, ok := m.New().(*contact); !ok {
		t.Fatalf("factory returned %T", m.New())
	}
}

func TestColumns(t *testing.T) {
	cols := model.Columns(&contact{})
	var names []string
	for _, col := range cols {
		names = append(names, col.Name)
	}
	want := []string{"id", "name", "daytime_phone", "age", "active", "user_id"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestValuesAndAssign(t *testing.T) {
	rec := &contact{}
	err := model.Assign(rec, map[string]any{
		"id":            "7",
		"name":          "Ada",
		"daytime_phone": "555",
		"age":           "36",
		"active":        true,
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	want := map[string]any{
		"id":            int64(7),
		"name":          "Ada",
		"daytime_phone": "555",
		"age":           36,
		"active":        true,
		"user_id":       int64(0),
	}
	if diff := cmp.Diff(want, model.Values(rec)); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestAssignRejectsBadInput(t *testing.T) {
	if err := model.Assign(&contact{}, map[string]any{"age": "old"}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLookup(t *testing.T) {
	rec := &contact{Name: "Ada", DaytimePhone: "555"}
	rec.ID = 3

	cases := []struct {
		name string
		want any
	}{
		{"name", "Ada"},
		{"DaytimePhone", "555"},
		{"id", int64(3)},
		{"greeting", "hello Ada"},
		{"Greeting", "hello Ada"},
	}
	for _, tc := range cases {
		got, ok := model.Lookup(rec, tc.name)
		if !ok {
			t.Fatalf("lookup %q: not found", tc.name)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("lookup %q mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
	if _, ok := model.Lookup(rec, "missing"); ok {
		t.Fatalf("expected missing attribute to fail")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	rec := &contact{Name: "Ada"}
	cp := model.Clone(rec).(*contact)
	cp.Name = "Grace"
	if rec.Name != "Ada" {
		t.Fatalf("clone mutated source")
	}
}

func TestDisplay(t *testing.T) {
	meta := model.Meta{ModelName: "contact", VerboseName: "contact"}
	rec := &contact{}
	rec.ID = 4
	if got := model.Display(meta, rec); got != "Contact object (4)" {
		t.Fatalf("unexpected display %q", got)
	}
	if got := model.Display(meta, &named{Title: "Earth"}); got != "Earth" {
		t.Fatalf("unexpected stringer display %q", got)
	}
}

func TestNaming(t *testing.T) {
	if got := model.Humanize("first_name"); got != "First name" {
		t.Fatalf("humanize: %q", got)
	}
	if got := model.Humanize("user_id"); got != "User" {
		t.Fatalf("humanize fk: %q", got)
	}
	if got := model.SnakeCase("DaytimePhone"); got != "daytime_phone" {
		t.Fatalf("snake: %q", got)
	}
	if got := model.SnakeCase("UserID"); got != "user_id" {
		t.Fatalf("snake acronym: %q", got)
	}
	if got := model.CamelCase("full_name"); got != "FullName" {
		t.Fatalf("camel: %q", got)
	}
}

func TestValidationError(t *testing.T) {
	err := &model.ValidationError{Fields: map[string][]string{
		"name":    {"taken"},
		"__all__": {"conflict", "retry"},
	}}
	want := "model: validation failed: __all__: conflict; retry, name: taken"
	if err.Error() != want {
		t.Fatalf("got %q", err.Error())
	}

	var target *model.ValidationError
	if !errors.As(error(model.NewValidationError("x", "bad")), &target) {
		t.Fatalf("errors.As failed")
	}
	if !errors.Is(model.Improperly("no %s", "queryset"), model.ErrImproperlyConfigured) {
		t.Fatalf("Improperly should wrap ErrImproperlyConfigured")
	}
}
