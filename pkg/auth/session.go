package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionUsernameKey = "username"

// LookupFunc loads an account by username.
type LookupFunc func(ctx context.Context, username string) (User, error)

// SessionAuthenticator keeps the username in a gorilla/sessions store.
type SessionAuthenticator struct {
	store  sessions.Store
	name   string
	lookup LookupFunc
}

// NewSessionAuthenticator uses the session called name in store.
func NewSessionAuthenticator(store sessions.Store, name string, lookup LookupFunc) *SessionAuthenticator {
	if name == "" {
		name = "material_session"
	}
	return &SessionAuthenticator{store: store, name: name, lookup: lookup}
}

// NewCookieAuthenticator builds a cookie-backed session store from keyPairs.
func NewCookieAuthenticator(name string, lookup LookupFunc, keyPairs ...[]byte) *SessionAuthenticator {
	store := sessions.NewCookieStore(keyPairs...)
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode
	return NewSessionAuthenticator(store, name, lookup)
}

func (s *SessionAuthenticator) Authenticate(r *http.Request) (User, error) {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return Anonymous, nil
	}
	username, _ := sess.Values[sessionUsernameKey].(string)
	if username == "" || s.lookup == nil {
		return Anonymous, nil
	}
	user, err := s.lookup(r.Context(), username)
	if errors.Is(err, ErrUnknownUser) {
		return Anonymous, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup %q: %w", username, err)
	}
	return user, nil
}

// Login records the user in the session.
func (s *SessionAuthenticator) Login(w http.ResponseWriter, r *http.Request, user User) error {
	sess, err := s.store.Get(r, s.name)
	if err != nil && sess == nil {
		return fmt.Errorf("auth: load session: %w", err)
	}
	sess.Values[sessionUsernameKey] = user.Username()
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("auth: save session: %w", err)
	}
	return nil
}

// Logout expires the session cookie.
func (s *SessionAuthenticator) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.store.Get(r, s.name)
	if err != nil && sess == nil {
		return fmt.Errorf("auth: load session: %w", err)
	}
	delete(sess.Values, sessionUsernameKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("auth: save session: %w", err)
	}
	return nil
}
