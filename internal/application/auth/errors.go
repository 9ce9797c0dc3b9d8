package auth

import "github.com/go-auth-otp/internal/domain"

var (
	ErrAlreadyVerified  = domain.NewError(domain.ErrBadRequest, "Account is already verified")
	ErrNotAuthenticated = domain.NewError(domain.ErrUnauthorized, "Not authenticated")
	ErrSessionExpired   = domain.NewError(domain.ErrUnauthorized, "Session has expired, please log in again")
	ErrSessionInvalid   = domain.NewError(domain.ErrUnauthorized, "Session expired or invalid")
)

// VerificationRequiredError is returned by Login for an account that has not
// confirmed its email yet. A fresh code has already been sent.
type VerificationRequiredError struct {
	Attempts Attempts
}

func (e *VerificationRequiredError) Error() string {
	return "Account not verified. A new OTP has been sent to your email."
}

func (e *VerificationRequiredError) Unwrap() error { return domain.ErrForbidden }

// Google callback failure codes, passed to the frontend as ?error=.
const (
	OAuthInvalidState = "invalid_state"
	OAuthFailed       = "google_auth_failed"
	OAuthEmailAccount = "user_exists_with_email"
)

// OAuthError is a failed Google callback. Code is safe to show the frontend.
type OAuthError struct {
	Code string
	Err  error
}

func (e *OAuthError) Error() string {
	if e.Err == nil {
		return "google oauth: " + e.Code
	}
	return "google oauth: " + e.Code + ": " + e.Err.Error()
}

func (e *OAuthError) Unwrap() error { return e.Err }
