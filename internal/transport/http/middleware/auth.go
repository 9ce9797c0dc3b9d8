package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-auth-otp/internal/application/token"
	"github.com/go-auth-otp/internal/domain"
)

// Cookie names carrying the session tokens.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type contextKey string

const SubjectKey contextKey = "subject"

// Authenticator verifies an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (token.Subject, error)
}

// Auth returns middleware that verifies the access token, from the cookie or
// a Bearer header, and injects its subject into the context.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, err := a.Authenticate(r.Context(), AccessToken(r))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					writeJSONError(w, http.StatusUnauthorized, "Not authenticated")
					return
				}
				slog.Error("authenticate request", "err", err)
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			ctx := context.WithValue(r.Context(), SubjectKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext extracts the authenticated subject from the request context.
func SubjectFromContext(ctx context.Context) (token.Subject, bool) {
	s, ok := ctx.Value(SubjectKey).(token.Subject)
	return s, ok
}

// AccessToken returns the access token presented by the request. The cookie
// wins over the Authorization header.
func AccessToken(r *http.Request) string {
	if v := Cookie(r, AccessCookie); v != "" {
		return v
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// Cookie returns the named cookie value or "".
func Cookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
