package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

// sessionData is the serialized blob kept in sessions.data.
type sessionData struct {
	User *model.Principal `json:"user,omitempty"`
}

// SessionRepo persists server-side sessions in the 'sessions' table so they
// survive process restarts.
type SessionRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db, Now: time.Now} }

// Get returns the live session sid.  Missing and expired rows both yield
// ErrNotFound; an expired row is removed on the way out.
func (r *SessionRepo) Get(ctx context.Context, sid string) (model.Session, error) {
	var (
		expires time.Time
		data    sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT expires, data FROM sessions WHERE session_id=? LIMIT 1", sid).Scan(&expires, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, apperr.ErrNotFound
	}
	if err != nil {
		return model.Session{}, apperr.Wrap(apperr.KindInternal, "get session", err)
	}
	s := model.Session{ID: sid, ExpiresAt: expires.UTC()}
	if s.Expired(r.Now().UTC()) {
		if err := r.Delete(ctx, sid); err != nil {
			return model.Session{}, err
		}
		return model.Session{}, apperr.ErrNotFound
	}
	if data.Valid && data.String != "" {
		var d sessionData
		if err := json.Unmarshal([]byte(data.String), &d); err != nil {
			return model.Session{}, apperr.Wrap(apperr.KindInternal, "decode session", err)
		}
		s.Principal = d.User
	}
	return s, nil
}

// Save inserts or replaces session s.
func (r *SessionRepo) Save(ctx context.Context, s model.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO sessions (session_id, expires, data) VALUES (?,?,?) "+
			"ON DUPLICATE KEY UPDATE expires=VALUES(expires), data=VALUES(data)",
		s.ID, s.ExpiresAt.UTC(), data)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "save session", err)
	}
	return nil
}

// Delete removes session sid.  Deleting an absent session is not an error.
func (r *SessionRepo) Delete(ctx context.Context, sid string) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE session_id=?", sid); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete session", err)
	}
	return nil
}

// Regenerate atomically drops oldID (if any) and stores next in a single
// transaction, so the pre-login identifier never carries the new principal.
func (r *SessionRepo) Regenerate(ctx context.Context, oldID string, next model.Session) error {
	data, err := encodeSession(next)
	if err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin regenerate", err)
	}
	defer func() { _ = tx.Rollback() }()

	if oldID != "" {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE session_id=?", oldID); err != nil {
			return apperr.Wrap(apperr.KindInternal, "drop old session", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (session_id, expires, data) VALUES (?,?,?)",
		next.ID, next.ExpiresAt.UTC(), data); err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert session", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit regenerate", err)
	}
	return nil
}

// PurgeExpired deletes every session past its expiry and returns the count.
func (r *SessionRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires <= ?", r.Now().UTC())
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "purge sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "purge sessions", err)
	}
	return n, nil
}

func encodeSession(s model.Session) (sql.NullString, error) {
	if s.Principal == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(sessionData{User: s.Principal})
	if err != nil {
		return sql.NullString{}, apperr.Wrap(apperr.KindInternal, "encode session", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
