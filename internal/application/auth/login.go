package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/domain"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks the password of an email account and starts a session.
// Blocked identities are refused before the password is looked at, and an
// unverified account gets a fresh code instead of a session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return nil, domain.NewError(domain.ErrBadRequest, "Email and password are required")
	}

	u, err := s.userByEmail(ctx, req.Email, "No account found with that email address")
	if err != nil {
		return nil, err
	}
	if u.IsGoogle() {
		return nil, domain.NewError(domain.ErrUnauthorized, "This account uses Google authentication. Please click 'Sign in with Google'.")
	}

	locked, err := s.lockout.Locked(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, s.lockedError()
	}

	if !u.Verified {
		if err := s.limiter.Check(ctx, req.Email, otp.FlowLogin); err != nil {
			return nil, err
		}
		code, attempts, err := s.issueCode(ctx, req.Email, otp.FlowLogin)
		if err != nil {
			return nil, err
		}
		s.sendOTPAsync(u, code, domain.EmailTypeLogin)
		return nil, &VerificationRequiredError{Attempts: attempts}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("compare password: %w", err)
		}
		blocked, failures, err := s.lockout.RecordFailure(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if blocked {
			slog.Warn("login blocked after repeated failures", "email", req.Email, "failures", failures)
			return nil, s.lockedError()
		}
		return nil, domain.NewError(domain.ErrUnauthorized, "Incorrect email or password")
	}

	if err := s.lockout.Clear(ctx, req.Email); err != nil {
		slog.Warn("failed to clear login failures", "email", req.Email, "err", err)
	}
	return s.startSession(ctx, u)
}

func (s *Service) lockedError() error {
	minutes := int(math.Ceil(s.lockout.Config().Duration.Minutes()))
	return domain.NewError(domain.ErrTooManyRequests,
		fmt.Sprintf("Too many login attempts. Please try again in %d minutes.", minutes))
}
