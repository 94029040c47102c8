// Package router mounts the HTTP routes and their guard chains.  Guards run
// in a fixed order: rate limit, CSRF, identity, authorization.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/handler"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

// Guards are the request guards shared by the route groups.
type Guards struct {
	RateLimit    echo.MiddlewareFunc
	CSRF         echo.MiddlewareFunc
	Authenticate echo.MiddlewareFunc
	Authorize    func(roles ...model.Role) echo.MiddlewareFunc
}

// RegisterRoutes registers the probes and the metrics endpoint.  ready may
// be nil, in which case /readyz is not mounted.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the credential and session endpoints.  The
// credential submissions are rate limited; every state-changing route
// except /login-jwt requires a CSRF token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	e.GET("/csrf-token", a.CSRFToken, g.CSRF)
	e.GET("/me", a.Me, g.CSRF, g.Authenticate)

	e.POST("/register", a.Register, g.RateLimit, g.CSRF)
	e.POST("/login-cookie", a.LoginCookie, g.RateLimit, g.CSRF)
	// Token-mode clients do not hold a CSRF cookie.
	e.POST("/login-jwt", a.LoginJWT, g.RateLimit)

	e.POST("/logout", a.Logout, g.CSRF, g.Authenticate)
	e.POST("/refresh", a.Refresh, g.CSRF)
}
