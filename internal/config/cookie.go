package config

import (
	"net/http"
	"time"
)

// Cookie names emitted by the application.
const (
	SessionCookie = "sid"
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	CSRFCookie    = "_csrf"
)

// CookieConfig is the attribute policy applied to every cookie.  All cookies
// are HttpOnly; Secure follows the environment.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

// New builds a cookie with the policy applied.  A ttl of zero produces a
// browser-session cookie.
func (cc CookieConfig) New(name, value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cc.Path,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: cc.SameSite,
	}
	if ttl > 0 {
		ck.MaxAge = int(ttl / time.Second)
		ck.Expires = time.Now().Add(ttl)
	}
	return ck
}

// Expired builds a cookie that instructs the browser to drop name.
func (cc CookieConfig) Expired(name string) *http.Cookie {
	ck := cc.New(name, "", 0)
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	return ck
}
