package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-auth-otp/internal/application/token"
	"github.com/go-auth-otp/internal/domain"
)

// SessionCheck is the outcome of ValidateSession. AccessToken is set only
// when a new access token was minted from the refresh token.
type SessionCheck struct {
	User            *domain.User
	AccessToken     string
	AccessExpiresAt time.Time
}

// Logout revokes whatever tokens the client presented. It never fails from
// the caller's point of view.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) {
	if err := s.tokens.Revoke(ctx, accessToken, refreshToken); err != nil {
		slog.Warn("logout revoke failed", "err", err)
	}
}

// Refresh mints a new access token from a whitelisted refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		return "", time.Time{}, ErrSessionExpired
	}
	tok, exp, err := s.tokens.Refresh(ctx, refreshToken, s.resolveSubject)
	switch {
	case errors.Is(err, token.ErrInvalid):
		return "", time.Time{}, domain.NewError(domain.ErrUnauthorized, "Invalid refresh token")
	case errors.Is(err, token.ErrRevoked), errors.Is(err, domain.ErrNotFound):
		return "", time.Time{}, ErrSessionInvalid
	case err != nil:
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (s *Service) resolveSubject(ctx context.Context, userID string) (token.Subject, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return token.Subject{}, err
	}
	return subjectOf(u), nil
}

// ValidateSession accepts a live access token of a verified user, and
// otherwise falls back to the refresh token, minting a new access token.
func (s *Service) ValidateSession(ctx context.Context, accessToken, refreshToken string) (*SessionCheck, error) {
	if accessToken != "" {
		u, err := s.userFromAccess(ctx, accessToken)
		switch {
		case err == nil && u.Verified:
			return &SessionCheck{User: u}, nil
		case err != nil && !isAuthFailure(err) && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	if refreshToken == "" {
		return nil, ErrSessionExpired
	}
	userID, err := s.tokens.RefreshSubject(ctx, refreshToken)
	if err != nil {
		if isAuthFailure(err) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !u.Verified {
		return nil, ErrSessionInvalid
	}
	tok, exp, err := s.tokens.IssueAccess(subjectOf(u))
	if err != nil {
		return nil, err
	}
	return &SessionCheck{User: u, AccessToken: tok, AccessExpiresAt: exp}, nil
}

// Me returns the account of an authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies an access token and returns its claims as a subject.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (token.Subject, error) {
	if accessToken == "" {
		return token.Subject{}, ErrNotAuthenticated
	}
	claims, err := s.tokens.VerifyAccess(ctx, accessToken)
	if err != nil {
		if isAuthFailure(err) {
			return token.Subject{}, ErrNotAuthenticated
		}
		return token.Subject{}, err
	}
	return token.Subject{UserID: claims.UserID, Email: claims.Email, AuthProvider: claims.AuthProvider}, nil
}

func (s *Service) userFromAccess(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.users.Get(ctx, claims.UserID)
}

func isAuthFailure(err error) bool {
	return errors.Is(err, token.ErrInvalid) || errors.Is(err, token.ErrRevoked)
}
