package demo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/render/template"
)

const (
	LoginTemplate = "demo/login.html"
	IndexTemplate = "demo/index.html"
)

// LookupUser resolves a person by username. Staff members are superusers;
// everyone else may only view records.
func (a *App) LookupUser(ctx context.Context, username string) (auth.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, auth.ErrUnknownUser
	}
	recs, err := a.Person.Manager().Filter("username", username).Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("demo: lookup %q: %w", username, err)
	}
	if len(recs) == 0 {
		return nil, auth.ErrUnknownUser
	}
	person := recs[0].(*Person)
	user := &auth.SimpleUser{Name: person.Username, Superuser: person.IsStaff}
	if !person.IsStaff {
		for _, m := range a.Models() {
			user.Permissions = append(user.Permissions, auth.Codename(m.Meta(), "view"))
		}
	}
	return user, nil
}

// Accounts serves the sign in and sign out pages. The demo has no
// passwords: any existing username signs in.
type Accounts struct {
	App       *App
	Sessions  *auth.SessionAuthenticator
	Renderer  template.Renderer
	Logger    *zap.Logger
	LoginURL  string
	LogoutURL string
}

func (a *Accounts) Login(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"login_url": a.LoginURL,
		"next":      safeNext(r.FormValue("next")),
	}
	if r.Method == http.MethodPost {
		username := r.PostFormValue("username")
		user, err := a.App.LookupUser(r.Context(), username)
		switch {
		case err == nil:
			if err := a.Sessions.Login(w, r, user); err != nil {
				a.Logger.Error("demo: login", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			a.Logger.Info("demo: signed in", zap.String("username", user.Username()))
			http.Redirect(w, r, data["next"].(string), http.StatusFound)
			return
		case errors.Is(err, auth.ErrUnknownUser):
			data["error"] = "Unknown username."
			data["username"] = username
		default:
			a.Logger.Error("demo: login", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	a.render(w, LoginTemplate, data)
}

func (a *Accounts) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Logout(w, r); err != nil {
		a.Logger.Warn("demo: logout", zap.Error(err))
	}
	http.Redirect(w, r, a.LoginURL, http.StatusFound)
}

func (a *Accounts) render(w http.ResponseWriter, name string, data map[string]any) {
	out, err := a.Renderer.RenderTemplate(name, data)
	if err != nil {
		a.Logger.Error("demo: render", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
