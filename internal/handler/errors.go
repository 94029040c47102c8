package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/logging"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler renders apperr kinds as {"error": code, "message": msg}.
// Unclassified errors become a 500 with a generic message and are logged;
// their text never reaches the client.
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := renderError(err)
		if status >= http.StatusInternalServerError {
			log.Error(c.Request().Context(), "request failed",
				"method", c.Request().Method, "path", c.Path(), "err", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn(c.Request().Context(), "write error response", "err", werr)
		}
	}
}

func renderError(err error) (int, errorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			msg = s
		}
		return he.Code, errorBody{Error: httpCode(he.Code), Message: msg}
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindInternal {
		return http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "internal server error"}
	}
	msg := ae.Msg
	switch ae.Kind {
	case apperr.KindUnknownEmail, apperr.KindInvalidCredentials:
		// identical body for both so the response does not reveal whether
		// the email is registered
		msg = apperr.ErrInvalidCredentials.Msg
	}
	return ae.Kind.Status(), errorBody{Error: ae.Kind.Code(), Message: msg}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "error"
}
