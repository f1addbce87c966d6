package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-material/pkg/metrics"
)

func TestMiddlewareCountsByRouteName(t *testing.T) {
	m := metrics.New()
	router := mux.NewRouter()
	router.Use(m.Middleware)
	router.HandleFunc("/shop/widget/{pk}/change/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusFound)
	}).Name("shop:widget_change")

	for i := 0; i < 2; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/shop/widget/1/change/", nil))
	}

	want := `
# HELP material_http_requests_total Total number of view requests handled.
# TYPE material_http_requests_total counter
material_http_requests_total{method="POST",route="shop:widget_change",status="302"} 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "material_http_requests_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestObserveSave(t *testing.T) {
	m := metrics.New()
	m.ObserveSave("shop.widget", nil)
	m.ObserveSave("shop.widget", errors.New("boom"))
	m.ObserveSave("shop.widget", nil)

	want := `
# HELP material_views_saves_total Composite saves by model and outcome.
# TYPE material_views_saves_total counter
material_views_saves_total{model="shop.widget",outcome="committed"} 2
material_views_saves_total{model="shop.widget",outcome="rolled_back"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "material_views_saves_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveSave("shop.widget", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "material_views_saves_total") {
		t.Fatalf("metrics output missing saves counter")
	}
}
