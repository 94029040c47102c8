package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

// MemoryUserRepo is a process-local user store for tests.  Uniqueness is
// enforced under the mutex the same way the unique keys do in MySQL.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]model.User)}
}

func (r *MemoryUserRepo) Insert(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return apperr.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return apperr.ErrDuplicateEmail
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *MemoryUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = normalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, apperr.ErrNotFound
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepo) List(_ context.Context) ([]model.PublicUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.PublicUser, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *MemoryUserRepo) UpdateRole(_ context.Context, id string, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Role = role
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// MemorySessionRepo keeps sessions in a map.  It does not survive restarts
// and exists for tests.
type MemorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	Now      func() time.Time
}

func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{sessions: make(map[string]model.Session), Now: time.Now}
}

func (r *MemorySessionRepo) Get(_ context.Context, sid string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return model.Session{}, apperr.ErrNotFound
	}
	if s.Expired(r.Now()) {
		delete(r.sessions, sid)
		return model.Session{}, apperr.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *MemorySessionRepo) Save(_ context.Context, s model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *MemorySessionRepo) Delete(_ context.Context, sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	return nil
}

func (r *MemorySessionRepo) Regenerate(_ context.Context, oldID string, next model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if oldID != "" {
		delete(r.sessions, oldID)
	}
	r.sessions[next.ID] = cloneSession(next)
	return nil
}

func (r *MemorySessionRepo) PurgeExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	var n int64
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored sessions, expired ones included.
func (r *MemorySessionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func cloneSession(s model.Session) model.Session {
	if s.Principal != nil {
		p := *s.Principal
		s.Principal = &p
	}
	return s
}
