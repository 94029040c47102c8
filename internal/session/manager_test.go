package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/model"
	"github.com/iliyamo/hybrid-auth/internal/repository"
)

var admin = model.Principal{ID: "a1", Username: "admin", Email: "admin@test.com", Role: model.RoleAdmin}

func newManager(t *testing.T) (*Manager, *repository.MemorySessionRepo, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store := repository.NewMemorySessionRepo()
	store.Now = func() time.Time { return now }
	cc := config.CookieConfig{Secure: true, SameSite: http.SameSiteStrictMode, Path: "/"}
	m := NewManager(store, 24*time.Hour, cc, logging.Discard()).WithClock(func() time.Time { return now })
	return m, store, &now
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == config.SessionCookie {
			return ck
		}
	}
	t.Fatalf("no %s cookie set", config.SessionCookie)
	return nil
}

func TestManager_LoginRegeneratesIdentifier(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newManager(t)

	require.NoError(t, store.Save(ctx, model.Session{ID: "attacker-chosen", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}))

	req := httptest.NewRequest(http.MethodPost, "/login-cookie", nil)
	req.AddCookie(&http.Cookie{Name: config.SessionCookie, Value: "attacker-chosen"})
	rec := httptest.NewRecorder()

	s, err := m.Login(ctx, rec, req, admin)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", s.ID)

	ck := sessionCookie(t, rec)
	assert.Equal(t, s.ID, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), ck.MaxAge)

	_, err = store.Get(ctx, "attacker-chosen")
	assert.Error(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestManager_LoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _, now := newManager(t)

	rec := httptest.NewRecorder()
	_, err := m.Login(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), admin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(sessionCookie(t, rec))
	s, err := m.Load(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, admin, *s.Principal)

	*now = now.Add(25 * time.Hour)
	s, err = m.Load(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_LoadWithoutCookie(t *testing.T) {
	m, _, _ := newManager(t)
	s, err := m.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newManager(t)

	rec := httptest.NewRecorder()
	_, err := m.Login(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), admin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(sessionCookie(t, rec))
	out := httptest.NewRecorder()
	require.NoError(t, m.Logout(ctx, out, req))
	assert.Zero(t, store.Len())
	assert.Equal(t, -1, sessionCookie(t, out).MaxAge)

	require.NoError(t, m.Logout(ctx, httptest.NewRecorder(), req))
}

func TestManager_LoginRejectsInvalidPrincipal(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Login(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), model.Principal{})
	assert.Error(t, err)
}

type failingStore struct{ *repository.MemorySessionRepo }

func (failingStore) Get(context.Context, string) (model.Session, error) {
	return model.Session{}, errors.New("db down")
}

func TestManager_LoadPropagatesStoreErrors(t *testing.T) {
	cc := config.CookieConfig{Path: "/"}
	m := NewManager(failingStore{repository.NewMemorySessionRepo()}, time.Hour, cc, logging.Discard())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: config.SessionCookie, Value: "x"})
	_, err := m.Load(context.Background(), req)
	assert.Error(t, err)
}

func TestManager_Janitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m, store, now := newManager(t)
	require.NoError(t, store.Save(ctx, model.Session{ID: "stale", ExpiresAt: now.Add(-time.Minute)}))

	done := make(chan struct{})
	go func() {
		m.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
