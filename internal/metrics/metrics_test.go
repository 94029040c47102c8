package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.Login("jwt", "ok")
	m.Login("jwt", "ok")
	m.Login("cookie", "invalid_credentials")
	m.Rejected("csrf")

	body := scrape(t, m)
	assert.Contains(t, body, `hybrid_auth_logins_total{mode="jwt",result="ok"} 2`)
	assert.Contains(t, body, `hybrid_auth_logins_total{mode="cookie",result="invalid_credentials"} 1`)
	assert.Contains(t, body, `hybrid_auth_guard_rejections_total{guard="csrf"} 1`)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHash("hash", 40*time.Millisecond)
	m.Resolved("session")

	body := scrape(t, m)
	assert.Contains(t, body, `hybrid_auth_password_hash_seconds_count{op="hash"} 1`)
	assert.Contains(t, body, `hybrid_auth_identity_resolved_total{source="session"} 1`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login("jwt", "ok")
		m.ObserveHash("verify", time.Millisecond)
		m.Rejected("csrf")
	})
}
