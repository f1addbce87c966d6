package views_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/testsupport"
	"github.com/goliatone/go-material/pkg/views"
)

func TestDeleteViewFlow(t *testing.T) {
	env := widgetEnv(t, "alpha", "beta")
	view := views.NewDeleteView(env)

	rec := serve(view, withPK(httptest.NewRequest(http.MethodGet, "/shop/widget/1/delete/", nil), "1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); !strings.Contains(body, "Are you sure") || !strings.Contains(body, "alpha") {
		t.Fatalf("confirmation page missing object:\n%s", body)
	}
	if n := testsupport.CountRecords(t, env.Model); n != 2 {
		t.Fatalf("GET must not delete, have %d widgets", n)
	}

	rec = serve(view, withPK(httptest.NewRequest(http.MethodPost, "/shop/widget/1/delete/", nil), "1"))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/shop/widget/" {
		t.Fatalf("expected redirect to list, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if _, err := env.Model.Manager().Get(context.Background(), 1); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected widget 1 to be gone, got %v", err)
	}
	if n := testsupport.CountRecords(t, env.Model); n != 1 {
		t.Fatalf("expected one widget left, have %d", n)
	}
}

func TestDeleteViewMissingRecord(t *testing.T) {
	view := views.NewDeleteView(widgetEnv(t))

	rec := serve(view, withPK(httptest.NewRequest(http.MethodPost, "/", nil), "5"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteViewPermission(t *testing.T) {
	env := widgetEnv(t, "alpha")
	env.ViewSet = testsupport.ViewSet{Base: "/shop/widget/", Deny: true}

	rec := serve(views.NewDeleteView(env), withPK(httptest.NewRequest(http.MethodPost, "/", nil), "1"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if n := testsupport.CountRecords(t, env.Model); n != 1 {
		t.Fatalf("denied delete removed the widget")
	}
}

func TestDetailView(t *testing.T) {
	view := views.NewDetailView(widgetEnv(t, "alpha"))
	view.Fields = []string{"name", "colour"}

	rec := serve(view, withPK(httptest.NewRequest(http.MethodGet, "/shop/widget/1/", nil), "1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"<dt>Colour</dt><dd>red</dd>", "<dt>Name</dt><dd>alpha</dd>", `href="/shop/widget/1/change/"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("detail page missing %q:\n%s", want, body)
		}
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{views.ErrPermissionDenied, http.StatusForbidden},
		{views.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{model.ErrNotFound, http.StatusNotFound},
		{model.Improperly("no model"), http.StatusInternalServerError},
		{views.StatusError{Code: http.StatusTeapot}, http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := views.StatusOf(tt.err); got != tt.want {
			t.Fatalf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestIsAjax(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if views.IsAjax(req) {
		t.Fatalf("plain request is not ajax")
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if !views.IsAjax(req) {
		t.Fatalf("expected ajax")
	}
	req.Header.Set("X-PJAX", "true")
	if views.IsAjax(req) {
		t.Fatalf("pjax requests want html")
	}
}
