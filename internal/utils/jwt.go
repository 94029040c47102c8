package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

// Claims is the payload carried by both access and refresh tokens.  Only the
// public identity fields travel in a token; the email address does not.
type Claims struct {
	UserID   string     `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts validated claims back into an identity.
func (c Claims) Principal() model.Principal {
	return model.Principal{ID: c.UserID, Username: c.Username, Role: c.Role}
}

// SignedToken is a serialized JWT together with its expiry.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// TokenService issues and verifies HS256 tokens.  Access and refresh tokens
// are signed with different secrets so one can never be replayed as the
// other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService builds a service using the wall clock.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// AccessTTL is the lifetime of newly issued access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the lifetime of newly issued refresh tokens.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccess signs a short-lived access token for p.
func (s *TokenService) IssueAccess(p model.Principal) (SignedToken, error) {
	return s.issue(p, s.accessSecret, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for p.
func (s *TokenService) IssueRefresh(p model.Principal) (SignedToken, error) {
	return s.issue(p, s.refreshSecret, s.refreshTTL)
}

// VerifyAccess validates an access token and returns its principal.
func (s *TokenService) VerifyAccess(raw string) (model.Principal, error) {
	return s.verify(raw, s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its principal.
func (s *TokenService) VerifyRefresh(raw string) (model.Principal, error) {
	return s.verify(raw, s.refreshSecret)
}

// Refresh mints a new access token from a valid refresh token.  The refresh
// token itself is not rotated.
func (s *TokenService) Refresh(rawRefresh string) (SignedToken, model.Principal, error) {
	p, err := s.VerifyRefresh(rawRefresh)
	if err != nil {
		return SignedToken{}, model.Principal{}, err
	}
	tok, err := s.IssueAccess(p)
	if err != nil {
		return SignedToken{}, model.Principal{}, err
	}
	return tok, p, nil
}

func (s *TokenService) issue(p model.Principal, secret []byte, ttl time.Duration) (SignedToken, error) {
	if err := p.Validate(); err != nil {
		return SignedToken{}, apperr.Wrap(apperr.KindInternal, "issue token", err)
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:   p.ID,
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return SignedToken{}, apperr.Wrap(apperr.KindInternal, "sign token", err)
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

func (s *TokenService) verify(raw string, secret []byte) (model.Principal, error) {
	if raw == "" {
		return model.Principal{}, apperr.ErrTokenInvalid
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Principal{}, apperr.ErrTokenExpired
		}
		return model.Principal{}, apperr.Wrap(apperr.KindTokenInvalid, "invalid token", err)
	}
	p := claims.Principal()
	if err := p.Validate(); err != nil {
		return model.Principal{}, apperr.Wrap(apperr.KindTokenInvalid, "invalid token claims", err)
	}
	return p, nil
}
