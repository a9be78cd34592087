package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hnrobert/macallow/internal/auth"
	"github.com/hnrobert/macallow/internal/logger"
	"github.com/hnrobert/macallow/internal/session"
)

type ctxKey string

const ctxRequest ctxKey = "request"

// RequestContext is the client's session as seen by one request. It is
// populated once by withSession and threaded through handlers.
type RequestContext struct {
	SessionID string
	State     session.State
}

func (rc *RequestContext) LoggedIn() bool {
	return rc != nil && rc.State.LoggedIn
}

func (a *App) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, err := a.readSession(w, r)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxRequest, rc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *App) readSession(w http.ResponseWriter, r *http.Request) (*RequestContext, error) {
	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
		if cl, err := auth.ParseSession(a.secret, c.Value); err == nil {
			st, err := a.sessions.Load(r.Context(), cl.SessionID)
			if err != nil {
				return nil, err
			}
			return &RequestContext{SessionID: cl.SessionID, State: st}, nil
		}
	}
	return a.startSession(w)
}

// startSession mints a fresh session id and hands the client its token.
// Nothing is written to the store until the state changes.
func (a *App) startSession(w http.ResponseWriter) (*RequestContext, error) {
	sid := uuid.NewString()
	tok, err := auth.SignSession(a.secret, sid)
	if err != nil {
		return nil, err
	}
	a.issueCookie(w, tok)
	return &RequestContext{SessionID: sid}, nil
}

func requestFrom(r *http.Request) *RequestContext {
	if v := r.Context().Value(ctxRequest); v != nil {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}
	return &RequestContext{}
}

func (a *App) saveSession(r *http.Request, rc *RequestContext) error {
	return a.sessions.Save(r.Context(), rc.SessionID, rc.State)
}

func (a *App) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requestFrom(r).LoggedIn() {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h(w, r)
	}
}

func (a *App) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("%s %s from %s: %v", r.Method, r.URL.Path, remoteIP(r), err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
