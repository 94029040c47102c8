package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	r, err = ParseRole("user")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	for _, bad := range []string{"", "owner", "root", "administrator"} {
		_, err := ParseRole(bad)
		assert.Error(t, err, bad)
	}
}

func TestPublicDropsHash(t *testing.T) {
	u := User{ID: "1", Username: "alice", Email: "a@x.com", PasswordHash: "$2a$10$abc", Role: RoleUser}
	pub := u.Public()
	assert.Equal(t, PublicUser{ID: "1", Username: "alice", Email: "a@x.com", Role: RoleUser}, pub)
	assert.Equal(t, Principal{ID: "1", Username: "alice", Email: "a@x.com", Role: RoleUser}, pub.Principal())
}

func TestPrincipalValidate(t *testing.T) {
	assert.NoError(t, Principal{ID: "1", Username: "bob", Role: RoleAdmin}.Validate())
	assert.Error(t, Principal{Username: "bob", Role: RoleAdmin}.Validate())
	assert.Error(t, Principal{ID: "1", Role: RoleAdmin}.Validate())
	assert.Error(t, Principal{ID: "1", Username: "bob", Role: "superuser"}.Validate())
}

func TestPrincipalHasRole(t *testing.T) {
	p := Principal{ID: "1", Username: "bob", Role: RoleUser}
	assert.True(t, p.HasRole(RoleUser, RoleAdmin))
	assert.False(t, p.HasRole(RoleAdmin))
	assert.False(t, p.HasRole())
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{ID: "sid", ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}
