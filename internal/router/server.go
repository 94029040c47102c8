package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/hybrid-auth/internal/handler"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/middleware"
)

// Options carries everything New needs to build the HTTP server.
type Options struct {
	Log     logging.Logger
	Auth    *handler.AuthHandler
	Admin   *handler.AdminHandler
	Guards  Guards
	Ready   echo.HandlerFunc
	Metrics http.Handler

	// IPExtractor decides the client address used by the rate limiter and
	// audit events.  Nil means the socket peer; forwarding headers are
	// only honored when an extractor that trusts them is supplied.
	IPExtractor echo.IPExtractor
}

// New builds an Echo instance with the shared error handler, recovery,
// request logging and every route registered.
func New(o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(o.Log)
	e.IPExtractor = o.IPExtractor
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(o.Log))
	e.Use(middleware.ClientIP())
	e.Use(echomw.BodyLimit("64K"))

	RegisterRoutes(e, o.Ready, o.Metrics)
	RegisterAuth(e, o.Auth, o.Guards)
	RegisterAdmin(e, o.Admin, o.Guards)
	return e
}
