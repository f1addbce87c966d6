package demo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/goliatone/go-material/pkg/config"
	"github.com/goliatone/go-material/pkg/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	ctx := context.Background()
	app := New(MemoryManagers(memory.NewDB()))
	n, err := app.Seed(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 10 {
		t.Fatalf("expected 10 seeded records, got %d", n)
	}

	cfg := config.Config{
		LoginURL: "/accounts/login/",
		Session:  config.SessionConfig{Name: "demo_session", Key: "0123456789abcdef0123456789abcdef"},
	}
	srv, err := NewServer(ctx, cfg, app, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func request(srv *Server, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func post(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func login(t *testing.T, srv *Server, username string) []*http.Cookie {
	t.Helper()

	rec := request(srv, post("/accounts/login/", url.Values{
		"username": {username},
		"next":     {"/geo/country/"},
	}), nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("login %s: expected 302, got %d: %s", username, rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/geo/country/" {
		t.Fatalf("login redirect = %q", loc)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("login set no cookie")
	}
	return cookies
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	srv := newTestServer(t)

	rec := request(srv, httptest.NewRequest(http.MethodGet, "/geo/country/", nil), nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/accounts/login/?next=") {
		t.Fatalf("unexpected location %q", loc)
	}

	rec = request(srv, httptest.NewRequest(http.MethodGet, "/accounts/login/?next=/geo/city/", nil), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="username"`) {
		t.Fatalf("unexpected login page %d:\n%s", rec.Code, rec.Body.String())
	}
}

func TestUnknownUserCannotSignIn(t *testing.T) {
	srv := newTestServer(t)

	rec := request(srv, post("/accounts/login/", url.Values{"username": {"mallory"}}), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Unknown username.") {
		t.Fatalf("unexpected response %d:\n%s", rec.Code, rec.Body.String())
	}
}

func TestCountryListShowsContinentColumn(t *testing.T) {
	srv := newTestServer(t)
	cookies := login(t, srv, "admin")

	rec := request(srv, httptest.NewRequest(http.MethodGet, "/geo/country/", nil), cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<a href="/geo/country/1/change/">Portugal</a>`,
		"South America",
		`<th data-column="continent">Continent</th>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("country list missing %q:\n%s", want, body)
		}
	}
}

func TestCreatePersonWithContacts(t *testing.T) {
	srv := newTestServer(t)
	cookies := login(t, srv, "admin")

	rec := request(srv, post("/people/person/add/", url.Values{
		"username":                {"grace"},
		"first_name":              {"Grace"},
		"last_name":               {"Hopper"},
		"email":                   {"grace@example.com"},
		"contacts-TOTAL_FORMS":    {"1"},
		"contacts-INITIAL_FORMS":  {"0"},
		"contacts-0-name":         {"Ada"},
		"contacts-0-relationship": {RelationshipFriend},
		"contacts-0-phone":        {"555-0100"},
	}), cookies)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}

	ctx := context.Background()
	contacts, err := srv.App.Contact.Manager().Filter("person_id", int64(3)).Records(ctx)
	if err != nil {
		t.Fatalf("contacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact for the new person, got %d", len(contacts))
	}
	contact := contacts[0].(*EmergencyContact)
	if contact.Name != "Ada" || contact.Relationship != RelationshipFriend || contact.Phone != "555-0100" {
		t.Fatalf("unexpected contact %+v", contact)
	}
}

func TestCreatePersonRejectsUnknownRelationship(t *testing.T) {
	srv := newTestServer(t)
	cookies := login(t, srv, "admin")

	rec := request(srv, post("/people/person/add/", url.Values{
		"username":                {"grace"},
		"email":                   {"grace@example.com"},
		"first_name":              {"Grace"},
		"last_name":               {"Hopper"},
		"contacts-TOTAL_FORMS":    {"1"},
		"contacts-INITIAL_FORMS":  {"0"},
		"contacts-0-name":         {"Ada"},
		"contacts-0-relationship": {"XXX"},
		"contacts-0-phone":        {"555-0100"},
	}), cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 re-render, got %d", rec.Code)
	}
	people, err := srv.App.Person.Manager().All(context.Background()).Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if people != 2 {
		t.Fatalf("expected no new person, got %d people", people)
	}
}

func TestCountryNeedsExistingContinent(t *testing.T) {
	srv := newTestServer(t)
	cookies := login(t, srv, "admin")

	rec := request(srv, post("/geo/country/add/", url.Values{
		"name":                 {"Atlantis"},
		"code":                 {"AT"},
		"continent_id":         {"99"},
		"population":           {"0"},
		"cities-TOTAL_FORMS":   {"0"},
		"cities-INITIAL_FORMS": {"0"},
	}), cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 re-render, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Select a valid continent.") {
		t.Fatalf("missing continent error:\n%s", rec.Body.String())
	}
}

func TestViewerCannotDelete(t *testing.T) {
	srv := newTestServer(t)
	cookies := login(t, srv, "viewer")

	rec := request(srv, httptest.NewRequest(http.MethodGet, "/geo/city/", nil), cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected viewer to list cities, got %d", rec.Code)
	}
	rec = request(srv, post("/geo/city/1/delete/", nil), cookies)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if _, err := srv.App.City.Manager().Get(context.Background(), 1); err != nil {
		t.Fatalf("city should survive: %v", err)
	}
}

func TestServiceEndpoints(t *testing.T) {
	srv := newTestServer(t)
	cookies := login(t, srv, "admin")
	request(srv, httptest.NewRequest(http.MethodGet, "/geo/city/", nil), cookies)

	rec := request(srv, httptest.NewRequest(http.MethodGet, OpenAPIPath, nil), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"/geo/country/{pk}/change/"`) {
		t.Fatalf("unexpected openapi response %d", rec.Code)
	}

	rec = request(srv, httptest.NewRequest(http.MethodGet, MetricsPath, nil), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "material_http_requests_total") {
		t.Fatalf("unexpected metrics response %d:\n%s", rec.Code, rec.Body.String())
	}

	rec = request(srv, httptest.NewRequest(http.MethodGet, StaticPrefix+"datatable.js", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected static asset, got %d", rec.Code)
	}

	rec = request(srv, httptest.NewRequest(http.MethodGet, "/", nil), cookies)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `<a href="/geo/country/">Countries</a>`) {
		t.Fatalf("unexpected index %d:\n%s", rec.Code, rec.Body.String())
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                      "/",
		"/geo/city/":            "/geo/city/",
		"//evil.example":        "/",
		"https://evil.example/": "/",
	}
	for in, want := range tests {
		if got := safeNext(in); got != want {
			t.Fatalf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
