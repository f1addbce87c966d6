package views_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/datalist"
	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/testsupport"
	"github.com/goliatone/go-material/pkg/views"
)

func widgetEnv(t *testing.T, names ...string) views.Env {
	t.Helper()

	m, _ := testsupport.NewWidgetModel(t, names...)
	return views.Env{
		Model:    m,
		ViewSet:  testsupport.ViewSet{Base: "/shop/widget/"},
		Renderer: testsupport.NewRenderer(t),
	}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func ajax(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return req
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) views.Page {
	t.Helper()

	var page views.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page %q: %v", rec.Body.String(), err)
	}
	return page
}

func TestListViewRendersFirstPage(t *testing.T) {
	view := views.NewListView(widgetEnv(t, "alpha", "beta", "gamma"))

	rec := serve(view, httptest.NewRequest(http.MethodGet, "/shop/widget/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<a href="/shop/widget/1/change/">alpha</a>`,
		`<a href="/shop/widget/3/change/">gamma</a>`,
		`href="/shop/widget/add/"`,
		`data-config="`,
		`&quot;serverSide&quot;:true`,
		`&quot;iDisplayLength&quot;:15`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("list page missing %q:\n%s", want, body)
		}
	}
}

func TestListViewAjaxPage(t *testing.T) {
	view := views.NewListView(widgetEnv(t, "alpha", "beta", "gamma"))

	rec := serve(view, ajax("/shop/widget/?draw=7&start=1&length=5"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	want := views.Page{
		Draw:            7,
		RecordsTotal:    3,
		RecordsFiltered: 3,
		Data: [][]string{
			{`<a href="/shop/widget/2/change/">beta</a>`},
			{`<a href="/shop/widget/3/change/">gamma</a>`},
		},
	}
	if diff := cmp.Diff(want, decodePage(t, rec)); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestListViewPageSize(t *testing.T) {
	view := views.NewListView(widgetEnv(t, "a", "b", "c", "d", "e"))

	for _, start := range []int{0, 2, 4, 5, 9} {
		for _, length := range []int{1, 3, 10} {
			rec := serve(view, ajax("/?draw=1&start="+strconv.Itoa(start)+"&length="+strconv.Itoa(length)))
			page := decodePage(t, rec)
			want := max(0, min(length, page.RecordsFiltered-start))
			if len(page.Data) != want {
				t.Fatalf("start=%d length=%d: got %d rows, want %d", start, length, len(page.Data), want)
			}
			if page.RecordsTotal != page.RecordsFiltered {
				t.Fatalf("counts differ: %d vs %d", page.RecordsTotal, page.RecordsFiltered)
			}
		}
	}
}

func TestListViewHugeLength(t *testing.T) {
	view := views.NewListView(widgetEnv(t, "alpha", "beta", "gamma"))

	rec := serve(view, ajax("/shop/widget/?draw=1&start=1&length=9223372036854775807"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	page := decodePage(t, rec)
	if got, want := len(page.Data), page.RecordsFiltered-1; got != want {
		t.Fatalf("got %d rows, want %d", got, want)
	}
}

func TestListViewEchoesDraw(t *testing.T) {
	view := views.NewListView(widgetEnv(t, "alpha"))

	for _, draw := range []string{"1", "42", "1000"} {
		rec := serve(view, ajax("/?draw="+draw+"&start=0&length=10"))
		if got := strconv.Itoa(decodePage(t, rec).Draw); got != draw {
			t.Fatalf("draw = %s, want %s", got, draw)
		}
	}
}

func TestListViewRejectsBadRequest(t *testing.T) {
	view := views.NewListView(widgetEnv(t, "alpha"))

	rec := serve(view, ajax("/?start=-1&length=10"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var payload struct {
		Error map[string][]string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if _, ok := payload.Error["draw"]; !ok {
		t.Fatalf("expected draw error, got %v", payload.Error)
	}
	if _, ok := payload.Error["start"]; !ok {
		t.Fatalf("expected start error, got %v", payload.Error)
	}
}

func TestListViewPjaxGetsHTML(t *testing.T) {
	view := views.NewListView(widgetEnv(t, "alpha"))

	req := ajax("/?draw=1&start=0&length=10")
	req.Header.Set("X-PJAX", "true")
	rec := serve(view, req)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html for pjax, got %q", ct)
	}
}

func TestListViewColumnsAndLinks(t *testing.T) {
	env := widgetEnv(t, "alpha")

	tests := []struct {
		name  string
		setup func(*views.ListView)
		want  []string
	}{
		{
			name:  "first column linked by default",
			setup: func(v *views.ListView) { v.SetListDisplay([]string{"name", "colour"}) },
			want:  []string{`<a href="/shop/widget/1/change/">alpha</a>`, `red`},
		},
		{
			name: "explicit links",
			setup: func(v *views.ListView) {
				v.SetListDisplay([]string{"name", "colour"})
				v.SetListDisplayLinks([]string{"colour"})
			},
			want: []string{`alpha`, `<a href="/shop/widget/1/change/">red</a>`},
		},
		{
			name: "links disabled",
			setup: func(v *views.ListView) {
				v.SetListDisplay([]string{"name", "stock"})
				v.SetLinksDisabled(true)
			},
			want: []string{`alpha`, `1`},
		},
		{
			name: "view column",
			setup: func(v *views.ListView) {
				v.SetListDisplay([]string{"shout"})
				v.Columns = datalist.Columns{"shout": {Label: "Shout", Value: func(rec model.Record) any {
					return strings.ToUpper(rec.(*testsupport.Widget).Name)
				}}}
			},
			want: []string{`<a href="/shop/widget/1/change/">ALPHA</a>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := views.NewListView(env)
			tt.setup(view)
			page := decodePage(t, serve(view, ajax("/?draw=1&start=0&length=1")))
			if diff := cmp.Diff([][]string{tt.want}, page.Data); diff != "" {
				t.Fatalf("row mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListViewPermission(t *testing.T) {
	env := widgetEnv(t, "alpha")
	env.ViewSet = testsupport.ViewSet{Base: "/shop/widget/", Deny: true}

	if rec := serve(views.NewListView(env), httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	view := views.NewListView(env)
	view.PermFunc = func(user auth.User, _ model.Record) bool { return user.HasPerm("shop.view_widget") }
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &auth.SimpleUser{Name: "ada", Permissions: []string{"shop.view_widget"}}))
	if rec := serve(view, req); rec.Code != http.StatusOK {
		t.Fatalf("expected PermFunc to allow, got %d", rec.Code)
	}
}

func TestListViewWithoutQuerySet(t *testing.T) {
	view := views.NewListView(views.Env{Renderer: testsupport.NewRenderer(t)})

	if rec := serve(view, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestListViewConfigOverrides(t *testing.T) {
	view := views.NewListView(views.Env{})
	view.PaginateBy = 25
	view.DatatableConfig = map[string]any{"ordering": true}

	config := view.Config()
	if config["iDisplayLength"] != 25 || config["ordering"] != true || config["serverSide"] != true {
		t.Fatalf("unexpected config %v", config)
	}
}

func TestListViewRejectsPost(t *testing.T) {
	view := views.NewListView(widgetEnv(t))

	if rec := serve(view, httptest.NewRequest(http.MethodPost, "/", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
