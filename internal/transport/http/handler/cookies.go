package handler

import (
	"net/http"
	"time"

	"github.com/go-auth-otp/internal/transport/http/middleware"
)

// Cookies writes the session cookies. Secure cookies are sent cross-site
// (SameSite=None); without Secure, browsers reject None, so Lax is used.
type Cookies struct {
	Secure bool
}

func (c Cookies) set(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

func (c Cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

func (c Cookies) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (c Cookies) setAccess(w http.ResponseWriter, tok string, exp time.Time) {
	c.set(w, middleware.AccessCookie, tok, exp)
}

func (c Cookies) setRefresh(w http.ResponseWriter, tok string, exp time.Time) {
	c.set(w, middleware.RefreshCookie, tok, exp)
}

func (c Cookies) clearSession(w http.ResponseWriter) {
	c.clear(w, middleware.AccessCookie)
	c.clear(w, middleware.RefreshCookie)
}
