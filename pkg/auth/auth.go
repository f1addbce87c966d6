// Package auth carries the request user through the context and guards
// views that require a login.
package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"

	"github.com/goliatone/go-material/pkg/model"
)

// ErrUnknownUser is returned by lookups for usernames that do not exist.
var ErrUnknownUser = errors.New("auth: unknown user")

// User is the minimum the views need from an account.
type User interface {
	Username() string
	IsAuthenticated() bool
	HasPerm(codename string) bool
}

type anonymous struct{}

func (anonymous) Username() string { return "" }

func (anonymous) IsAuthenticated() bool { return false }

func (anonymous) HasPerm(string) bool { return false }

// Anonymous is the user of requests without a session.
var Anonymous User = anonymous{}

// SimpleUser is an in-memory account. Superusers hold every permission.
type SimpleUser struct {
	Name        string
	Permissions []string
	Superuser   bool
}

func (u *SimpleUser) Username() string { return u.Name }

func (u *SimpleUser) IsAuthenticated() bool { return true }

func (u *SimpleUser) HasPerm(codename string) bool {
	return u.Superuser || slices.Contains(u.Permissions, codename)
}

// Codename builds "<app>.<action>_<model>", for example "geo.change_city".
func Codename(meta model.Meta, action string) string {
	return meta.AppLabel + "." + action + "_" + meta.ModelName
}

type userKey struct{}

// WithUser stores u on the context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the request user, Anonymous when none was attached.
func UserFrom(ctx context.Context) User {
	if ctx != nil {
		if u, ok := ctx.Value(userKey{}).(User); ok && u != nil {
			return u
		}
	}
	return Anonymous
}

// Authenticator resolves the user of a request. It returns Anonymous rather
// than an error when the request carries no credentials.
type Authenticator interface {
	Authenticate(r *http.Request) (User, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (User, error)

func (fn AuthenticatorFunc) Authenticate(r *http.Request) (User, error) { return fn(r) }

// StaticAuthenticator authenticates every request as the same user.
type StaticAuthenticator struct {
	User User
}

func (s StaticAuthenticator) Authenticate(*http.Request) (User, error) {
	if s.User == nil {
		return Anonymous, nil
	}
	return s.User, nil
}

// Middleware attaches the authenticated user to the request context.
// Authentication failures degrade to Anonymous.
func Middleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := Anonymous
			if authn != nil {
				if u, err := authn.Authenticate(r); err == nil && u != nil {
					user = u
				}
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// LoginRequired redirects anonymous requests to loginURL with the original
// path in the "next" query parameter.
func LoginRequired(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFrom(r.Context()).IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, RedirectToLogin(loginURL, r.URL.RequestURI()), http.StatusFound)
		})
	}
}

// RedirectToLogin appends next to loginURL, keeping any existing query.
func RedirectToLogin(loginURL, next string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}
