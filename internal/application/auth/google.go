package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/id"
)

const oauthStateTTL = 10 * time.Minute

// GoogleResult is a completed Google sign-in.
type GoogleResult struct {
	Session     *Session
	NewUser     bool
	RedirectURL string
}

// GoogleAuthURL starts the authorization-code flow with a single-use state.
func (s *Service) GoogleAuthURL(ctx context.Context) (string, error) {
	if s.google == nil {
		return "", domain.NewError(domain.ErrInternal, "Failed to initiate Google OAuth")
	}
	state := uuid.NewString()
	if err := s.states.SetEX(ctx, stateKey(state), "1", oauthStateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback finishes the flow: the state is consumed, the code is
// exchanged, and the Google account is signed in, created on first use. An
// email that already belongs to a password account is refused.
func (s *Service) GoogleCallback(ctx context.Context, code, state string) (*GoogleResult, error) {
	if s.google == nil {
		return nil, &OAuthError{Code: OAuthFailed, Err: errors.New("google sign-in not configured")}
	}
	if state == "" {
		return nil, &OAuthError{Code: OAuthInvalidState}
	}
	_, ok, err := s.states.GetDel(ctx, stateKey(state))
	if err != nil {
		return nil, &OAuthError{Code: OAuthFailed, Err: err}
	}
	if !ok {
		return nil, &OAuthError{Code: OAuthInvalidState}
	}
	if code == "" {
		return nil, &OAuthError{Code: OAuthFailed, Err: errors.New("missing code")}
	}

	p, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, &OAuthError{Code: OAuthFailed, Err: err}
	}
	if !p.EmailVerified {
		return nil, &OAuthError{Code: OAuthFailed, Err: errors.New("google email not verified")}
	}
	email := normalizeEmail(p.Email)

	u, err := s.users.GetByEmail(ctx, email)
	newUser := errors.Is(err, domain.ErrNotFound)
	switch {
	case newUser:
		now := s.now().UTC()
		u = &domain.User{
			UserID:       id.New(),
			FullName:     p.Name,
			Email:        email,
			GoogleID:     p.Sub,
			AuthProvider: domain.ProviderGoogle,
			Verified:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, &OAuthError{Code: OAuthFailed, Err: err}
		}
	case err != nil:
		return nil, &OAuthError{Code: OAuthFailed, Err: err}
	case !u.IsGoogle():
		return nil, &OAuthError{Code: OAuthEmailAccount}
	}

	sess, err := s.startSession(ctx, u)
	if err != nil {
		return nil, &OAuthError{Code: OAuthFailed, Err: err}
	}

	msg := "Google login successful!"
	if newUser {
		msg = "Google signup successful!"
	}
	q := url.Values{"success": {"true"}, "message": {msg}}
	return &GoogleResult{
		Session:     sess,
		NewUser:     newUser,
		RedirectURL: s.frontendURL + "/home?" + q.Encode(),
	}, nil
}

// LoginErrorURL is where a failed Google callback sends the browser.
func (s *Service) LoginErrorURL(code string) string {
	return s.frontendURL + "/auth/login?error=" + url.QueryEscape(code)
}

func stateKey(state string) string { return "oauth_state:" + state }
