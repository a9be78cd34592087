package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hnrobert/macallow/internal/allowlist"
	"github.com/hnrobert/macallow/internal/auth"
	"github.com/hnrobert/macallow/internal/logger"
	"github.com/hnrobert/macallow/internal/metrics"
	"github.com/hnrobert/macallow/internal/session"
)

var entryFormFields = map[string]bool{"mac_address": true, "memo": true}

var errUnknownField = errors.New("unknown form field")

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/", http.StatusFound)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if requestFrom(r).LoggedIn() {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		data := a.baseData(r)
		data.HideNav = true
		a.renderPage(w, "login", data)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_ = r.ParseForm()
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	data := a.baseData(r)
	data.HideNav = true
	if username == "" || password == "" {
		data.flash(session.FlashErr, "Username and password are required.")
		a.renderPage(w, "login", data)
		return
	}
	if err := a.verifier.Verify(username, password); err != nil {
		if !auth.IsAuthFailure(err) && !errors.Is(err, auth.ErrUnsupportedHash) {
			a.metrics.Login(metrics.LoginBackend)
			a.serverError(w, r, err)
			return
		}
		a.metrics.Login(metrics.LoginFailed)
		logger.Info("Failed login attempt for user %s from %s", username, remoteIP(r))
		data.flash(session.FlashErr, auth.HumanAuthError(err))
		a.renderPage(w, "login", data)
		return
	}

	// Start from a clean session under a new id.
	rc := requestFrom(r)
	if err := a.sessions.Delete(r.Context(), rc.SessionID); err != nil {
		a.serverError(w, r, err)
		return
	}
	sid := uuid.NewString()
	tok, err := auth.SignSession(a.secret, sid)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	rc.SessionID = sid
	rc.State = session.State{LoggedIn: true}
	if err := a.saveSession(r, rc); err != nil {
		a.serverError(w, r, err)
		return
	}
	a.metrics.Login(metrics.LoginOK)
	logger.Info("User %s logged in from %s", username, remoteIP(r))
	a.issueCookie(w, tok)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rc := requestFrom(r)
	if err := a.sessions.Delete(r.Context(), rc.SessionID); err != nil {
		a.serverError(w, r, err)
		return
	}
	if rc.LoggedIn() {
		logger.Info("Session logged out from %s", remoteIP(r))
	}
	rc.State = session.State{}
	a.clearCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (a *App) handleAdminIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list, err := a.entries.ListAll(r.Context())
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	data := a.baseData(r)
	for _, e := range list {
		data.Entries = append(data.Entries, EntryRow{
			ID:         e.ID,
			MACAddress: e.MACAddress,
			Created:    e.Created,
			Memo:       RenderMarkdown(e.Memo),
		})
	}
	a.metrics.EntriesListed(len(list))
	a.renderPage(w, "admin_index", data)
}

func (a *App) handleAdminAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		a.renderPage(w, "admin_form", a.baseData(r))
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entry, err := entryFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := a.validator.Validate(r.Context(), entry); err != nil {
		a.rerenderForm(w, r, entry, false, err)
		return
	}
	created, err := a.entries.Create(r.Context(), entry.MACAddress, entry.Memo)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.metrics.Mutation(metrics.OpCreate)
	logger.Info("Entry %d (%s) added from %s", created.ID, created.MACAddress, remoteIP(r))
	a.redirectWithFlash(w, r, "/admin/", "Entry added.")
}

func (a *App) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	current, ok := a.lookupEntry(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		data := a.baseData(r)
		data.Form = EntryForm{ID: current.ID, MACAddress: current.MACAddress, Memo: current.Memo, Editing: true}
		a.renderPage(w, "admin_form", data)
		return
	}

	entry, err := entryFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry.ID = current.ID
	if err := a.validator.Validate(r.Context(), entry); err != nil {
		a.rerenderForm(w, r, entry, true, err)
		return
	}
	if err := a.entries.Update(r.Context(), entry.ID, entry.MACAddress, entry.Memo); err != nil {
		if errors.Is(err, allowlist.ErrNotFound) {
			entryNotFound(w, entry.ID)
			return
		}
		a.serverError(w, r, err)
		return
	}
	a.metrics.Mutation(metrics.OpUpdate)
	logger.Info("Entry %d updated (%s -> %s) from %s", entry.ID, current.MACAddress, entry.MACAddress, remoteIP(r))
	a.redirectWithFlash(w, r, "/admin/", "Entry updated.")
}

func (a *App) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	current, ok := a.lookupEntry(w, r)
	if !ok {
		return
	}
	if err := a.entries.Delete(r.Context(), current.ID); err != nil {
		a.serverError(w, r, err)
		return
	}
	a.metrics.Mutation(metrics.OpDelete)
	logger.Info("Entry %d (%s) deleted from %s", current.ID, current.MACAddress, remoteIP(r))
	a.redirectWithFlash(w, r, "/admin/", "Entry deleted.")
}

// lookupEntry resolves the {id} path segment. It writes the response and
// returns false when the entry cannot be served.
func (a *App) lookupEntry(w http.ResponseWriter, r *http.Request) (allowlist.Entry, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return allowlist.Entry{}, false
	}
	e, err := a.entries.Get(r.Context(), id)
	if errors.Is(err, allowlist.ErrNotFound) {
		entryNotFound(w, id)
		return allowlist.Entry{}, false
	}
	if err != nil {
		a.serverError(w, r, err)
		return allowlist.Entry{}, false
	}
	return e, true
}

func entryNotFound(w http.ResponseWriter, id int64) {
	http.Error(w, fmt.Sprintf("Entry id %d doesn't exist.", id), http.StatusNotFound)
}

func (a *App) rerenderForm(w http.ResponseWriter, r *http.Request, entry allowlist.Entry, editing bool, err error) {
	var verr *allowlist.ValidationError
	if !errors.As(err, &verr) {
		a.serverError(w, r, err)
		return
	}
	a.metrics.Rejected(verr.Reason)
	data := a.baseData(r)
	data.Form = EntryForm{ID: entry.ID, MACAddress: entry.MACAddress, Memo: entry.Memo, Editing: editing}
	data.flash(session.FlashErr, verr.Reason)
	a.renderPage(w, "admin_form", data)
}

func (a *App) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, msg string) {
	rc := requestFrom(r)
	rc.State.AddFlash(session.FlashOK, msg)
	if err := a.saveSession(r, rc); err != nil {
		logger.Warn("Failed to queue flash for session: %v", err)
	}
	http.Redirect(w, r, to, http.StatusFound)
}

// entryFromForm reads mac_address and memo from the request body and
// rejects any other field.
func entryFromForm(r *http.Request) (allowlist.Entry, error) {
	if err := r.ParseForm(); err != nil {
		return allowlist.Entry{}, err
	}
	if err := checkFields(r.PostForm); err != nil {
		return allowlist.Entry{}, err
	}
	return allowlist.Entry{
		MACAddress: strings.TrimSpace(r.PostForm.Get("mac_address")),
		Memo:       r.PostForm.Get("memo"),
	}, nil
}

func checkFields(form url.Values) error {
	for k := range form {
		if !entryFormFields[k] {
			return fmt.Errorf("%w: %q", errUnknownField, k)
		}
	}
	return nil
}

// baseData fills the fields every page needs and drains queued flashes.
func (a *App) baseData(r *http.Request) *ViewData {
	rc := requestFrom(r)
	data := &ViewData{Authed: rc.LoggedIn()}
	if len(rc.State.Flashes) > 0 {
		data.Flashes = rc.State.PopFlashes()
		if err := a.saveSession(r, rc); err != nil {
			logger.Warn("Failed to clear flashes for session: %v", err)
		}
	}
	return data
}

func (a *App) renderPage(w http.ResponseWriter, page string, data *ViewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	t := a.pages[page]
	if t == nil {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		logger.Error("renderPage template execution failed for %s: %v", page, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
