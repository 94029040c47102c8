package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/metrics"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

// Check is the authorization decision on its own: Unauthenticated when
// there is no principal, Forbidden when its role is not allowed.
func Check(p *model.Principal, allowed ...model.Role) error {
	if p == nil {
		return apperr.ErrUnauthenticated
	}
	if !p.HasRole(allowed...) {
		return apperr.ErrForbidden
	}
	return nil
}

// Authorize returns a middleware that lets the request through only when
// Authenticate resolved a principal holding one of roles.  It must be
// mounted after Authenticate.
func Authorize(m *metrics.Metrics, roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var pp *model.Principal
			if p, ok := PrincipalFrom(c.Request().Context()); ok {
				pp = &p
			}
			if err := Check(pp, roles...); err != nil {
				m.Rejected(apperr.KindOf(err).Code())
				return err
			}
			return next(c)
		}
	}
}
