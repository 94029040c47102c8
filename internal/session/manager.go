// Package session manages server-side login sessions: reading the session
// cookie, regenerating the identifier at login and purging expired rows.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/model"
	"github.com/iliyamo/hybrid-auth/internal/utils"
)

// sidBytes is the entropy of a session identifier.
const sidBytes = 32

// Store persists sessions.  Get must report missing and expired sessions
// as apperr.ErrNotFound.  Regenerate must replace oldID with next
// atomically.
type Store interface {
	Get(ctx context.Context, sid string) (model.Session, error)
	Save(ctx context.Context, s model.Session) error
	Delete(ctx context.Context, sid string) error
	Regenerate(ctx context.Context, oldID string, next model.Session) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// Manager ties the session store to the session cookie.
type Manager struct {
	store   Store
	ttl     time.Duration
	cookies config.CookieConfig
	log     logging.Logger
	now     func() time.Time
	newID   func() (string, error)
}

func NewManager(store Store, ttl time.Duration, cookies config.CookieConfig, log logging.Logger) *Manager {
	return &Manager{
		store:   store,
		ttl:     ttl,
		cookies: cookies,
		log:     log,
		now:     time.Now,
		newID:   func() (string, error) { return utils.RandomToken(sidBytes) },
	}
}

// WithClock replaces the time source used for expiry computation.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Load returns the live session referenced by r's cookie, or nil when
// there is none.  Store failures are returned.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*model.Session, error) {
	ck, err := r.Cookie(config.SessionCookie)
	if err != nil || ck.Value == "" {
		return nil, nil
	}
	s, err := m.store.Get(ctx, ck.Value)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Login issues a fresh session identifier carrying p.  Any identifier the
// client presented is dropped in the same transaction, so a pre-login id
// chosen by an attacker never becomes authenticated.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, p model.Principal) (model.Session, error) {
	if err := p.Validate(); err != nil {
		return model.Session{}, apperr.Wrap(apperr.KindInternal, "session principal", err)
	}
	var oldID string
	if ck, err := r.Cookie(config.SessionCookie); err == nil {
		oldID = ck.Value
	}
	sid, err := m.newID()
	if err != nil {
		return model.Session{}, apperr.Wrap(apperr.KindInternal, "session id", err)
	}
	principal := p
	next := model.Session{ID: sid, Principal: &principal, ExpiresAt: m.now().UTC().Add(m.ttl)}
	if err := m.store.Regenerate(ctx, oldID, next); err != nil {
		return model.Session{}, err
	}
	http.SetCookie(w, m.cookies.New(config.SessionCookie, sid, m.ttl))
	return next, nil
}

// Logout destroys the session referenced by r, if any, and expires the
// cookie.  It is idempotent.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if ck, err := r.Cookie(config.SessionCookie); err == nil && ck.Value != "" {
		if err := m.store.Delete(ctx, ck.Value); err != nil {
			return err
		}
	}
	http.SetCookie(w, m.cookies.Expired(config.SessionCookie))
	return nil
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.store.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					m.log.Warn(ctx, "session purge failed", "err", err)
				}
				continue
			}
			if n > 0 {
				m.log.Debug(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}
