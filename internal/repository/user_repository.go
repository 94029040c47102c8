package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

// UserRepo persists accounts in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Insert stores u.  A unique-key collision is reported as
// ErrDuplicateUsername or ErrDuplicateEmail.
func (r *UserRepo) Insert(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, role) VALUES (?,?,?,?,?)",
		u.ID, u.Username, normalizeEmail(u.Email), u.PasswordHash, string(u.Role))
	if err != nil {
		if dup, ok := duplicateKind(err); ok {
			return dup
		}
		return apperr.Wrap(apperr.KindInternal, "insert user", err)
	}
	return nil
}

// ExistsByUsername reports whether a user with username exists.
func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM users WHERE username=? LIMIT 1", username)
}

// ExistsByEmail reports whether a user with email exists.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
}

func (r *UserRepo) exists(ctx context.Context, q string, arg string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "lookup user", err)
	}
	return true, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx,
		"SELECT id,username,email,password_hash,role FROM users WHERE email=? LIMIT 1",
		normalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx,
		"SELECT id,username,email,password_hash,role FROM users WHERE id=? LIMIT 1",
		id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg string) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperr.ErrNotFound
	}
	if err != nil {
		return model.User{}, apperr.Wrap(apperr.KindInternal, "get user", err)
	}
	u.Role = model.Role(role)
	return u, nil
}

// List returns every user without password hashes, ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]model.PublicUser, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id,username,email,role FROM users ORDER BY username")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list users", err)
	}
	defer rows.Close()

	out := make([]model.PublicUser, 0)
	for rows.Next() {
		var (
			u    model.PublicUser
			role string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &role); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan user", err)
		}
		u.Role = model.Role(role)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list users", err)
	}
	return out, nil
}

// UpdateRole sets the role of user id.  ErrNotFound when no row matched.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", string(role), id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "update role", err)
	}
	return requireOneRow(res)
}

// Delete removes user id.  ErrNotFound when no row matched.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete user", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "rows affected", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
