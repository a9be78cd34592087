package server

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/hnrobert/macallow/internal/allowlist"
	"github.com/hnrobert/macallow/internal/auth"
	"github.com/hnrobert/macallow/internal/metrics"
	"github.com/hnrobert/macallow/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed assets
var assetsFS embed.FS

// Options wires the App to its collaborators.
type Options struct {
	Entries      *allowlist.Store
	Sessions     session.Store
	Verifier     auth.Verifier
	Metrics      *metrics.Metrics
	Secret       []byte
	CookieName   string
	SecureCookie bool
}

type App struct {
	secret       []byte
	cookieName   string
	secureCookie bool
	pages        map[string]*template.Template
	entries      *allowlist.Store
	validator    *allowlist.Validator
	sessions     session.Store
	verifier     auth.Verifier
	metrics      *metrics.Metrics
}

type ViewData struct {
	Authed  bool
	HideNav bool
	Flashes []session.Flash

	// admin
	Entries []EntryRow
	Form    EntryForm
}

type EntryRow struct {
	ID         int64
	MACAddress string
	Created    time.Time
	Memo       template.HTML
}

type EntryForm struct {
	ID         int64
	MACAddress string
	Memo       string
	Editing    bool
}

func (d *ViewData) flash(kind session.FlashKind, msg string) {
	d.Flashes = append(d.Flashes, session.Flash{Kind: kind, Message: msg})
}

func NewApp(opts Options) (*App, error) {
	if opts.Entries == nil || opts.Sessions == nil || opts.Verifier == nil {
		return nil, errors.New("server: entries, sessions and verifier are required")
	}
	if len(opts.Secret) == 0 {
		return nil, errors.New("server: session secret is required")
	}
	if opts.CookieName == "" {
		opts.CookieName = auth.DefaultCookieName
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	base := template.New("layout.html").Funcs(template.FuncMap{
		"fmtTime": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
	})

	pages := map[string]*template.Template{}
	for _, page := range []string{"login", "admin_index", "admin_form"} {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		// Each page file defines the same block names (title/content).
		if _, err := t.ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html"); err != nil {
			return nil, err
		}
		pages[page] = t
	}

	return &App{
		secret:       opts.Secret,
		cookieName:   opts.CookieName,
		secureCookie: opts.SecureCookie,
		pages:        pages,
		entries:      opts.Entries,
		validator:    allowlist.NewValidator(opts.Entries),
		sessions:     opts.Sessions,
		verifier:     opts.Verifier,
		metrics:      opts.Metrics,
	}, nil
}

func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/{$}", a.handleRoot)
	mux.HandleFunc("/login", a.handleLogin)
	mux.HandleFunc("/logout", a.handleLogout)

	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.HandleFunc("/admin/{$}", a.requireAuth(a.handleAdminIndex))
	mux.HandleFunc("/admin/add", a.requireAuth(a.handleAdminAdd))
	mux.HandleFunc("/admin/{id}/update", a.requireAuth(a.handleAdminUpdate))
	mux.HandleFunc("/admin/{id}/delete", a.requireAuth(a.handleAdminDelete))

	// Static assets
	assets, _ := fs.Sub(assetsFS, "assets")
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))

	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})

	return a.withSession(mux)
}

func (a *App) issueCookie(w http.ResponseWriter, token string) {
	// No MaxAge: the session lasts until logout.
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secureCookie,
	})
}

func (a *App) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secureCookie,
		MaxAge:   -1,
	})
}
