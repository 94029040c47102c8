package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/metrics"
	"github.com/iliyamo/hybrid-auth/internal/middleware"
	"github.com/iliyamo/hybrid-auth/internal/model"
	"github.com/iliyamo/hybrid-auth/internal/queue"
	"github.com/iliyamo/hybrid-auth/internal/service"
	"github.com/iliyamo/hybrid-auth/internal/session"
	"github.com/iliyamo/hybrid-auth/internal/utils"
)

// requestTimeout bounds the store and hashing work of a single request.
const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Accounts *service.Accounts
	Sessions *session.Manager
	Tokens   *utils.TokenService
	Cookies  config.CookieConfig
	Audit    queue.Publisher
	Metrics  *metrics.Metrics
	Log      logging.Logger
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginResp struct {
	User         model.PublicUser `json:"user"`
	Mode         string           `json:"mode"`
	AccessToken  string           `json:"accessToken,omitempty"`
	RefreshToken string           `json:"refreshToken,omitempty"`
	ExpiresIn    int              `json:"expiresIn,omitempty"`
}

type meResp struct {
	User   *model.Principal  `json:"user"`
	Source middleware.Source `json:"source"`
}

// Register creates an account with the default role.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id, err := h.Accounts.Create(ctx, service.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.Metrics.Register(apperr.KindOf(err).Code())
		return err
	}
	h.Metrics.Register("ok")
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// LoginCookie verifies credentials and starts a server session under a
// freshly generated identifier.  Access and refresh tokens are also set as
// HttpOnly cookies so the browser can fall back on them after the session
// expires.
func (h *AuthHandler) LoginCookie(c echo.Context) error {
	u, err := h.login(c, "cookie")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p := u.Principal()
	if _, err := h.Sessions.Login(ctx, c.Response(), c.Request(), p); err != nil {
		return err
	}
	access, refresh, err := h.issuePair(p)
	if err != nil {
		return err
	}
	c.SetCookie(h.Cookies.New(config.AccessCookie, access.Token, h.Tokens.AccessTTL()))
	c.SetCookie(h.Cookies.New(config.RefreshCookie, refresh.Token, h.Tokens.RefreshTTL()))

	h.loggedIn(ctx, u, "cookie")
	return c.JSON(http.StatusOK, loginResp{User: u, Mode: "cookie-session"})
}

// LoginJWT verifies credentials and returns the token pair in the body for
// clients that do not keep a server session.  It sets no cookies; the
// route has no CSRF guard.
func (h *AuthHandler) LoginJWT(c echo.Context) error {
	u, err := h.login(c, "jwt")
	if err != nil {
		return err
	}
	access, refresh, err := h.issuePair(u.Principal())
	if err != nil {
		return err
	}
	h.loggedIn(c.Request().Context(), u, "jwt")
	return c.JSON(http.StatusOK, loginResp{
		User:         u,
		Mode:         "jwt-stateless",
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    int(h.Tokens.AccessTTL() / time.Second),
	})
}

func (h *AuthHandler) login(c echo.Context, mode string) (model.PublicUser, error) {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return model.PublicUser{}, apperr.Validation("invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.Metrics.Login(mode, apperr.KindOf(err).Code())
		return model.PublicUser{}, err
	}
	h.Metrics.Login(mode, "ok")
	return u, nil
}

func (h *AuthHandler) issuePair(p model.Principal) (utils.SignedToken, utils.SignedToken, error) {
	access, err := h.Tokens.IssueAccess(p)
	if err != nil {
		return utils.SignedToken{}, utils.SignedToken{}, err
	}
	refresh, err := h.Tokens.IssueRefresh(p)
	if err != nil {
		return utils.SignedToken{}, utils.SignedToken{}, err
	}
	return access, refresh, nil
}

func (h *AuthHandler) loggedIn(ctx context.Context, u model.PublicUser, mode string) {
	h.Log.Info(ctx, "user logged in", "user_id", u.ID, "mode", mode)
	h.publish(ctx, queue.AuthEvent{Type: queue.EventLogin, UserID: u.ID, Username: u.Username, Role: u.Role.String(), Mode: mode})
}

// Logout destroys the server session and clears every credential cookie.
// It succeeds for anonymous callers too.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.Logout(ctx, c.Response(), c.Request()); err != nil {
		return err
	}
	h.clearTokenCookies(c)

	if p, ok := middleware.PrincipalFrom(c.Request().Context()); ok {
		h.Log.Info(ctx, "user logged out", "user_id", p.ID)
		h.publish(ctx, queue.AuthEvent{Type: queue.EventLogout, UserID: p.ID, Username: p.Username})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Refresh exchanges the refresh_token cookie for a new access token minted
// from its claims.  The refresh token is not rotated.  When it is expired
// or invalid both token cookies are cleared.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(config.RefreshCookie)
	if err != nil || ck.Value == "" {
		h.Metrics.Refresh("missing")
		return apperr.New(apperr.KindUnauthenticated, "no refresh token")
	}
	access, p, err := h.Tokens.Refresh(ck.Value)
	if err != nil {
		h.Metrics.Refresh(apperr.KindOf(err).Code())
		h.clearTokenCookies(c)
		return err
	}
	c.SetCookie(h.Cookies.New(config.AccessCookie, access.Token, h.Tokens.AccessTTL()))

	h.Metrics.Refresh("ok")
	h.publish(c.Request().Context(), queue.AuthEvent{Type: queue.EventRefreshed, UserID: p.ID, Username: p.Username})
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "token refreshed",
		"accessToken": access.Token,
		"expiresIn":   int(h.Tokens.AccessTTL() / time.Second),
	})
}

// Me reports the principal resolved for this request and its source.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	resp := meResp{Source: middleware.SourceFrom(ctx)}
	if p, ok := middleware.PrincipalFrom(ctx); ok {
		resp.User = &p
	}
	return c.JSON(http.StatusOK, resp)
}

// CSRFToken hands out a token derived from the caller's CSRF secret.
func (h *AuthHandler) CSRFToken(c echo.Context) error {
	tok, err := middleware.CSRFToken(c)
	if err != nil {
		return err
	}
	if tok == "" {
		return apperr.New(apperr.KindInternal, "csrf middleware not mounted")
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, echo.Map{"csrfToken": tok})
}

func (h *AuthHandler) clearTokenCookies(c echo.Context) {
	c.SetCookie(h.Cookies.Expired(config.AccessCookie))
	c.SetCookie(h.Cookies.Expired(config.RefreshCookie))
}

func (h *AuthHandler) publish(ctx context.Context, ev queue.AuthEvent) {
	if h.Audit == nil {
		return
	}
	ev.IP = queue.ClientIP(ctx)
	ev.OccurredAt = time.Now().UTC()
	if err := h.Audit.Publish(ctx, ev); err != nil {
		h.Log.Warn(ctx, "audit publish failed", "type", ev.Type, "err", err)
	}
}
