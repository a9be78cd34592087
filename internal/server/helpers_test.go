package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hnrobert/macallow/internal/allowlist"
	"github.com/hnrobert/macallow/internal/auth"
	"github.com/hnrobert/macallow/internal/metrics"
	"github.com/hnrobert/macallow/internal/session"
)

type fakeVerifier struct {
	users map[string]string
	err   error
}

func (f *fakeVerifier) Verify(username, password string) error {
	if f.err != nil {
		return f.err
	}
	if pw, ok := f.users[username]; ok && pw == password {
		return nil
	}
	return auth.ErrInvalidCredentials
}

type testEnv struct {
	t        *testing.T
	srv      *httptest.Server
	client   *http.Client
	entries  *allowlist.Store
	sessions session.Store
	verifier *fakeVerifier
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithSessions(t, session.NewMemoryStore())
}

func newTestEnvWithSessions(t *testing.T, sessions session.Store) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, allowlist.Migrate(db))

	env := &testEnv{
		t:        t,
		entries:  allowlist.NewStore(db),
		sessions: sessions,
		verifier: &fakeVerifier{users: map[string]string{"admin": "hunter2"}},
		metrics:  metrics.New(),
	}
	app, err := NewApp(Options{
		Entries:  env.entries,
		Sessions: sessions,
		Verifier: env.verifier,
		Metrics:  env.metrics,
		Secret:   auth.DecodeSecret("server-test-secret"),
	})
	require.NoError(t, err)

	env.srv = httptest.NewServer(app.Routes())
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	t.Cleanup(func() {
		env.srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return env
}

type response struct {
	code     int
	location string
	body     string
}

func (e *testEnv) do(req *http.Request) response {
	e.t.Helper()
	res, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(e.t, err)
	return response{code: res.StatusCode, location: res.Header.Get("Location"), body: string(b)}
}

func (e *testEnv) get(path string) response {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(e.t, err)
	return e.do(req)
}

func (e *testEnv) post(path string, form url.Values) response {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) login() {
	e.t.Helper()
	res := e.post("/login", url.Values{"username": {"admin"}, "password": {"hunter2"}})
	require.Equal(e.t, http.StatusFound, res.code)
	require.Equal(e.t, "/", res.location)
}

func (e *testEnv) count() int64 {
	e.t.Helper()
	n, err := e.entries.Count(context.Background())
	require.NoError(e.t, err)
	return n
}
