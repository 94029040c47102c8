package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var bob = model.User{
	ID:           "2b7e1516-28ae-4d2a-a6d2-abf7158809cf",
	Username:     "bob",
	Email:        "Bob@Example.com",
	PasswordHash: "$2a$10$hash",
	Role:         model.RoleUser,
}

func TestUserRepo_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, username, email, password_hash, role) VALUES (?,?,?,?,?)")).
		WithArgs(bob.ID, "bob", "bob@example.com", bob.PasswordHash, "user").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Insert(context.Background(), bob))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_InsertDuplicate(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want error
	}{
		{"username", "Duplicate entry 'bob' for key 'users.uq_users_username'", apperr.ErrDuplicateUsername},
		{"email", "Duplicate entry 'bob@example.com' for key 'users.uq_users_email'", apperr.ErrDuplicateEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectExec("INSERT INTO users").
				WillReturnError(&mysql.MySQLError{Number: 1062, Message: tc.msg})

			err := NewUserRepo(db).Insert(context.Background(), bob)
			assert.ErrorIs(t, err, tc.want)
			assert.NotContains(t, err.Error(), "Duplicate entry")
		})
	}
}

func TestUserRepo_InsertOtherErrorIsInternal(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("conn reset"))

	err := NewUserRepo(db).Insert(context.Background(), bob)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role"}).
		AddRow(bob.ID, "bob", "bob@example.com", bob.PasswordHash, "admin")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,username,email,password_hash,role FROM users WHERE email=?")).
		WithArgs("bob@example.com").
		WillReturnRows(rows)

	u, err := NewUserRepo(db).GetByEmail(context.Background(), "  BOB@example.com ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, bob.PasswordHash, u.PasswordHash)
}

func TestUserRepo_GetByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id,username").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := NewUserRepo(db).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUserRepo_Exists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE username=?")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE email=?")).
		WithArgs("x@y.io").
		WillReturnError(sql.ErrNoRows)

	ok, err := repo.ExistsByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByEmail(context.Background(), "x@y.io")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserRepo_List(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "username", "email", "role"}).
		AddRow("1", "admin", "admin@test.com", "admin").
		AddRow("2", "usuario", "user@test.com", "user")
	mock.ExpectQuery("SELECT id,username,email,role FROM users ORDER BY username").WillReturnRows(rows)

	users, err := NewUserRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
	assert.Equal(t, "usuario", users[1].Username)
}

func TestUserRepo_UpdateRoleAndDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=? WHERE id=?")).
		WithArgs("admin", bob.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=? WHERE id=?")).
		WithArgs("admin", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=?")).
		WithArgs(bob.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=?")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, repo.UpdateRole(ctx, bob.ID, model.RoleAdmin))
	assert.ErrorIs(t, repo.UpdateRole(ctx, "missing", model.RoleAdmin), apperr.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, bob.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepo()
	require.NoError(t, repo.Insert(ctx, bob))

	other := bob
	other.ID = "other"
	assert.ErrorIs(t, repo.Insert(ctx, other), apperr.ErrDuplicateUsername)
	other.Username = "bobby"
	assert.ErrorIs(t, repo.Insert(ctx, other), apperr.ErrDuplicateEmail)

	u, err := repo.GetByEmail(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, u.ID)

	require.NoError(t, repo.UpdateRole(ctx, bob.ID, model.RoleAdmin))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.RoleAdmin, list[0].Role)

	require.NoError(t, repo.Delete(ctx, bob.ID))
	assert.ErrorIs(t, repo.Delete(ctx, bob.ID), apperr.ErrNotFound)
}
