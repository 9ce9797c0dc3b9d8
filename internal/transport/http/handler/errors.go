package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/domain"
)

const internalMessage = "Internal server error"

var kindStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrTooManyRequests, http.StatusTooManyRequests},
	{domain.ErrInternal, http.StatusInternalServerError},
}

// httpError maps a service error to its status and body. Errors without a
// client-safe message become a generic 500 and are logged.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	var limit *otp.LimitError
	if errors.As(err, &limit) {
		writeJSON(w, http.StatusTooManyRequests, RateLimitEnvelope{
			MessageEnvelope: fail(limit.Message),
			LimitType:       limit.LimitType(),
			RetryAfter:      limit.RetryAfterSeconds(),
		})
		return
	}

	var verify *auth.VerificationRequiredError
	if errors.As(err, &verify) {
		writeJSON(w, http.StatusForbidden, AttemptsEnvelope{
			MessageEnvelope: fail(verify.Error()),
			Attempts:        verify.Attempts,
		})
		return
	}

	if errors.Is(err, auth.ErrAlreadyVerified) {
		writeJSON(w, http.StatusBadRequest, VerifiedEnvelope{
			MessageEnvelope: fail(auth.ErrAlreadyVerified.Error()),
			IsVerified:      true,
		})
		return
	}

	if msg, ok := domain.PublicMessage(err); ok {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		}
		writeError(w, status, msg)
		return
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, internalMessage)
}

func statusOf(err error) int {
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status
		}
	}
	return http.StatusInternalServerError
}
