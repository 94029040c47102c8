package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/metrics"
	"github.com/iliyamo/hybrid-auth/internal/utils"
)

const (
	csrfSecretBytes = 18
	csrfSaltBytes   = 4
	csrfContextKey  = "csrf_secret"
	csrfFormField   = "_csrf"
)

// csrfHeaders are checked in order for the submitted token.
var csrfHeaders = []string{"X-CSRF-Token", "CSRF-Token", "X-XSRF-Token"}

// CSRF implements the double-submit cookie pattern.  The secret lives in an
// HttpOnly cookie and never leaves the server in readable form; clients
// receive a salted digest of it from CSRFToken and echo that back in a
// header (or the _csrf form field) on POST, PUT, PATCH and DELETE.
//
// A request without a secret cookie gets one issued; an unsafe request
// without one fails because it cannot carry a matching token.
func CSRF(cookies config.CookieConfig, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			secret := ""
			if ck, err := c.Cookie(config.CSRFCookie); err == nil {
				secret = ck.Value
			}
			issued := false
			if secret == "" {
				s, err := utils.RandomToken(csrfSecretBytes)
				if err != nil {
					return apperr.Wrap(apperr.KindInternal, "csrf secret", err)
				}
				secret, issued = s, true
				c.SetCookie(cookies.New(config.CSRFCookie, secret, 0))
			}
			c.Set(csrfContextKey, secret)

			if safeMethod(c.Request().Method) {
				return next(c)
			}
			if issued || !VerifyCSRFToken(secret, submittedCSRFToken(c)) {
				m.Rejected("csrf")
				return apperr.ErrCsrfTokenInvalid
			}
			return next(c)
		}
	}
}

// CSRFToken derives a fresh token for the secret bound to this request by
// the CSRF middleware.  It returns "" when the middleware did not run.
func CSRFToken(c echo.Context) (string, error) {
	secret, _ := c.Get(csrfContextKey).(string)
	if secret == "" {
		return "", nil
	}
	salt, err := utils.RandomHex(csrfSaltBytes)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "csrf salt", err)
	}
	return deriveCSRFToken(salt, secret), nil
}

// VerifyCSRFToken reports whether token was derived from secret.
func VerifyCSRFToken(secret, token string) bool {
	if secret == "" || token == "" {
		return false
	}
	salt, _, ok := strings.Cut(token, "-")
	if !ok || salt == "" {
		return false
	}
	want := deriveCSRFToken(salt, secret)
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

func deriveCSRFToken(salt, secret string) string {
	sum := sha256.Sum256([]byte(salt + "-" + secret))
	return salt + "-" + base64.RawURLEncoding.EncodeToString(sum[:])
}

func submittedCSRFToken(c echo.Context) string {
	h := c.Request().Header
	for _, name := range csrfHeaders {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	ct := h.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		return c.FormValue(csrfFormField)
	}
	return ""
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
