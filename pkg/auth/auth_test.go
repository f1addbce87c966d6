package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/model"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("hello " + auth.UserFrom(r.Context()).Username()))
}

func TestLoginRequiredRedirectsAnonymous(t *testing.T) {
	handler := auth.Middleware(nil)(auth.LoginRequired("/accounts/login/")(http.HandlerFunc(okHandler)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/geo/city/?page=2", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	want := "/accounts/login/?next=%2Fgeo%2Fcity%2F%3Fpage%3D2"
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("location = %q, want %q", got, want)
	}
}

func TestLoginRequiredPassesAuthenticated(t *testing.T) {
	user := &auth.SimpleUser{Name: "ada"}
	handler := auth.Middleware(auth.StaticAuthenticator{User: user})(auth.LoginRequired("/login/")(http.HandlerFunc(okHandler)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "hello ada" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestUserFromDefaultsToAnonymous(t *testing.T) {
	u := auth.UserFrom(context.Background())
	if u.IsAuthenticated() || u.HasPerm("any") {
		t.Fatalf("anonymous user must not be authenticated")
	}
}

func TestPermissions(t *testing.T) {
	meta := model.Meta{AppLabel: "geo", ModelName: "city"}
	code := auth.Codename(meta, "change")
	if code != "geo.change_city" {
		t.Fatalf("codename = %q", code)
	}

	staff := &auth.SimpleUser{Name: "ada", Permissions: []string{code}}
	if !staff.HasPerm(code) || staff.HasPerm("geo.delete_city") {
		t.Fatalf("unexpected permission check")
	}
	if !(&auth.SimpleUser{Superuser: true}).HasPerm("geo.delete_city") {
		t.Fatalf("superuser should hold every permission")
	}
}

func TestSessionAuthenticatorRoundTrip(t *testing.T) {
	users := map[string]auth.User{"ada": &auth.SimpleUser{Name: "ada"}}
	authn := auth.NewCookieAuthenticator("test", func(_ context.Context, name string) (auth.User, error) {
		if u, ok := users[name]; ok {
			return u, nil
		}
		return nil, auth.ErrUnknownUser
	}, []byte("0123456789abcdef0123456789abcdef"))

	login := httptest.NewRecorder()
	if err := authn.Login(login, httptest.NewRequest(http.MethodPost, "/login/", nil), users["ada"]); err != nil {
		t.Fatalf("login: %v", err)
	}
	cookies := login.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	user, err := authn.Authenticate(req)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Username() != "ada" {
		t.Fatalf("expected ada, got %q", user.Username())
	}

	anon, err := authn.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || anon.IsAuthenticated() {
		t.Fatalf("request without cookie should be anonymous")
	}
}
