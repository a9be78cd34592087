package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Login(LoginOK)
	m.Login(LoginFailed)
	m.Login(LoginFailed)
	m.Mutation(OpCreate)
	m.Rejected("MAC address is required.")
	m.EntriesListed(3)

	require.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginOK)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginFailed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues(OpCreate)))
	require.Equal(t, 3.0, testutil.ToFloat64(m.entriesSeen))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Mutation(OpDelete)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, string(body), `macallow_entry_mutations_total{op="delete"} 1`)
}
