package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/metrics"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

// Source records how the request principal was resolved.
type Source string

const (
	SourceAnonymous Source = "anonymous"
	SourceSession   Source = "session"
	SourceToken     Source = "token"
)

// SessionLoader returns the live session for a request, or nil.
type SessionLoader interface {
	Load(ctx context.Context, r *http.Request) (*model.Session, error)
}

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccess(raw string) (model.Principal, error)
}

type identityKey struct{}

type identity struct {
	principal *model.Principal
	source    Source
}

// WithPrincipal returns a context carrying p as the resolved principal.
func WithPrincipal(ctx context.Context, p model.Principal, src Source) context.Context {
	return context.WithValue(ctx, identityKey{}, identity{principal: &p, source: src})
}

// PrincipalFrom returns the principal resolved for the request, if any.
func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	if !ok || id.principal == nil {
		return model.Principal{}, false
	}
	return *id.principal, true
}

// SourceFrom reports how the principal was resolved.  Requests that never
// passed through Authenticate report SourceAnonymous.
func SourceFrom(ctx context.Context) Source {
	id, ok := ctx.Value(identityKey{}).(identity)
	if !ok {
		return SourceAnonymous
	}
	return id.source
}

// Authenticate resolves at most one principal per request, in order:
//  1. a live server session carrying a principal;
//  2. an access token from the Authorization bearer header or the
//     access_token cookie;
//  3. otherwise anonymous.
//
// A bad or expired token resolves to anonymous rather than failing; clients
// are expected to call /refresh.  Session store failures do fail the request.
func Authenticate(sessions SessionLoader, tokens AccessVerifier, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()

			id := identity{source: SourceAnonymous}
			s, err := sessions.Load(ctx, req)
			if err != nil {
				return err
			}
			if s != nil && s.Principal != nil && s.Principal.Validate() == nil {
				p := *s.Principal
				id = identity{principal: &p, source: SourceSession}
			} else if raw := accessToken(req); raw != "" {
				if p, err := tokens.VerifyAccess(raw); err == nil {
					id = identity{principal: &p, source: SourceToken}
				}
			}

			m.Resolved(string(id.source))
			c.SetRequest(req.WithContext(context.WithValue(ctx, identityKey{}, id)))
			return next(c)
		}
	}
}

// accessToken extracts the bearer token, falling back to the cookie.
func accessToken(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if tok = strings.TrimSpace(tok); tok != "" {
				return tok
			}
		}
	}
	if ck, err := r.Cookie(config.AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}
