// Package service holds the credential store: account creation, login
// verification and the admin user-management operations.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/model"
	"github.com/iliyamo/hybrid-auth/internal/queue"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64 // users.username VARCHAR(64)
	maxEmailLen    = 255
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt ignores bytes past 72
)

var emailPattern = regexp.MustCompile(`^[\w.\-]+@[\w\-]+\.[a-zA-Z]{2,}$`)

// UserStore is the persistence required by Accounts.
type UserStore interface {
	Insert(ctx context.Context, u model.User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	List(ctx context.Context) ([]model.PublicUser, error)
	UpdateRole(ctx context.Context, id string, role model.Role) error
	Delete(ctx context.Context, id string) error
}

// PasswordHasher hashes and verifies passwords off the request goroutine.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, hash, plain string) (bool, error)
}

// NewUser is the input to Create.  An empty Role means model.RoleUser.
type NewUser struct {
	Username string
	Email    string
	Password string
	Role     string
}

// Accounts implements the credential store.
type Accounts struct {
	users  UserStore
	hasher PasswordHasher
	audit  queue.Publisher
	log    logging.Logger
	newID  func() string
}

func NewAccounts(users UserStore, hasher PasswordHasher, audit queue.Publisher, log logging.Logger) *Accounts {
	if audit == nil {
		audit = queue.NoopPublisher{}
	}
	return &Accounts{
		users:  users,
		hasher: hasher,
		audit:  audit,
		log:    log,
		newID:  func() string { return uuid.NewString() },
	}
}

// ValidateEmail checks the local@domain.tld shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return apperr.Validation("invalid email")
	}
	return nil
}

func validateNewUser(in NewUser) error {
	username := utf8.RuneCountInString(strings.TrimSpace(in.Username))
	if username < minUsernameLen {
		return apperr.Validation("username must be at least 3 characters")
	}
	if username > maxUsernameLen {
		return apperr.Validation("username must be at most 64 characters")
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Email)) > maxEmailLen {
		return apperr.Validation("email must be at most 255 characters")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		return apperr.Validation("password must be at least 6 characters")
	}
	if len(in.Password) > maxPasswordLen {
		return apperr.Validation("password must be at most 72 bytes")
	}
	return nil
}

// Create validates and stores a new account and returns its id.  The
// password is hashed on the hasher's worker pool.
func (a *Accounts) Create(ctx context.Context, in NewUser) (string, error) {
	if err := validateNewUser(in); err != nil {
		return "", err
	}
	role := model.RoleUser
	if in.Role != "" {
		r, err := model.ParseRole(in.Role)
		if err != nil {
			return "", apperr.ErrInvalidRole
		}
		role = r
	}
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	// Checked before hashing; the unique keys still catch concurrent inserts.
	taken, err := a.users.ExistsByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperr.ErrDuplicateUsername
	}
	taken, err = a.users.ExistsByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperr.ErrDuplicateEmail
	}

	hash, err := a.hasher.Hash(ctx, in.Password)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	u := model.User{
		ID:           a.newID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := a.users.Insert(ctx, u); err != nil {
		return "", err
	}

	a.log.Info(ctx, "user registered", "user_id", u.ID, "role", role)
	a.publish(ctx, queue.AuthEvent{Type: queue.EventRegistered, UserID: u.ID, Username: u.Username, Email: u.Email, Role: role.String()})
	return u.ID, nil
}

// Login verifies credentials and returns the account without its hash.
// UnknownEmail and InvalidCredentials stay distinct here; the HTTP layer
// renders both the same way.
func (a *Accounts) Login(ctx context.Context, email, password string) (model.PublicUser, error) {
	if err := ValidateEmail(email); err != nil {
		return model.PublicUser{}, err
	}
	u, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		a.loginFailed(ctx, "", "unknown_email")
		return model.PublicUser{}, apperr.ErrUnknownEmail
	}
	if err != nil {
		return model.PublicUser{}, err
	}
	ok, err := a.hasher.Verify(ctx, u.PasswordHash, password)
	if err != nil {
		return model.PublicUser{}, apperr.Wrap(apperr.KindInternal, "verify password", err)
	}
	if !ok {
		a.loginFailed(ctx, u.ID, "bad_password")
		return model.PublicUser{}, apperr.ErrInvalidCredentials
	}
	return u.Public(), nil
}

func (a *Accounts) loginFailed(ctx context.Context, userID, reason string) {
	a.log.Info(ctx, "login failed", "user_id", userID, "reason", reason)
	a.publish(ctx, queue.AuthEvent{Type: queue.EventLoginFailed, UserID: userID, Mode: reason})
}

// ListAll returns every account without password hashes.
func (a *Accounts) ListAll(ctx context.Context) ([]model.PublicUser, error) {
	return a.users.List(ctx)
}

// UpdateRole sets the role of account id.
func (a *Accounts) UpdateRole(ctx context.Context, id, role string) error {
	r, err := model.ParseRole(role)
	if err != nil {
		return apperr.ErrInvalidRole
	}
	return a.users.UpdateRole(ctx, id, r)
}

// Delete removes account id.  Callers acting on behalf of a principal use
// DeleteAs, which refuses self-deletion.
func (a *Accounts) Delete(ctx context.Context, id string) error {
	return a.users.Delete(ctx, id)
}

// EnsureNotSelf is the single guard shared by every user-management
// operation: an actor may not target its own account.
func EnsureNotSelf(actor model.Principal, targetID string) error {
	if actor.ID == targetID {
		return apperr.ErrSelfTargetForbidden
	}
	return nil
}

// ValidateUserID checks that id is a well-formed account id.
func ValidateUserID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("invalid user id")
	}
	return nil
}

// UpdateRoleAs changes the role of targetID on behalf of actor.
func (a *Accounts) UpdateRoleAs(ctx context.Context, actor model.Principal, targetID, role string) error {
	if err := ValidateUserID(targetID); err != nil {
		return err
	}
	if err := EnsureNotSelf(actor, targetID); err != nil {
		return err
	}
	if err := a.UpdateRole(ctx, targetID, role); err != nil {
		return err
	}
	a.log.Info(ctx, "role changed", "actor_id", actor.ID, "user_id", targetID, "role", role)
	a.publish(ctx, queue.AuthEvent{Type: queue.EventRoleChanged, UserID: targetID, ActorID: actor.ID, Role: strings.ToLower(strings.TrimSpace(role))})
	return nil
}

// DeleteAs removes targetID on behalf of actor.
func (a *Accounts) DeleteAs(ctx context.Context, actor model.Principal, targetID string) error {
	if err := ValidateUserID(targetID); err != nil {
		return err
	}
	if err := EnsureNotSelf(actor, targetID); err != nil {
		return err
	}
	if err := a.Delete(ctx, targetID); err != nil {
		return err
	}
	a.log.Info(ctx, "user deleted", "actor_id", actor.ID, "user_id", targetID)
	a.publish(ctx, queue.AuthEvent{Type: queue.EventDeleted, UserID: targetID, ActorID: actor.ID})
	return nil
}

// PromoteByEmail grants the admin role to the account registered under
// email.  Used by the make-admin command.
func (a *Accounts) PromoteByEmail(ctx context.Context, email string) (model.PublicUser, error) {
	if err := ValidateEmail(email); err != nil {
		return model.PublicUser{}, err
	}
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return model.PublicUser{}, err
	}
	if err := a.users.UpdateRole(ctx, u.ID, model.RoleAdmin); err != nil {
		return model.PublicUser{}, err
	}
	u.Role = model.RoleAdmin
	a.publish(ctx, queue.AuthEvent{Type: queue.EventRoleChanged, UserID: u.ID, Role: model.RoleAdmin.String()})
	return u.Public(), nil
}

// publish emits ev; audit failures are logged and never fail the operation.
func (a *Accounts) publish(ctx context.Context, ev queue.AuthEvent) {
	ev.IP = queue.ClientIP(ctx)
	ev.OccurredAt = time.Now().UTC()
	if err := a.audit.Publish(ctx, ev); err != nil {
		a.log.Warn(ctx, "audit publish failed", "type", ev.Type, "err", err)
	}
}
