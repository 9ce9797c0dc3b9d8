package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/id"
	"github.com/go-auth-otp/internal/pkg/validate"
)

type SignupRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignupResult struct {
	UserID string `json:"userId"`
	Attempts
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResendOTPRequest struct {
	Email string `json:"email"`
}

// SignupSendOTP creates an unverified account, or refreshes one that never
// finished verification, and emails it a signup code.
func (s *Service) SignupSendOTP(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	req.Email = normalizeEmail(req.Email)
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		return nil, domain.NewError(domain.ErrBadRequest, "All fields are required")
	}
	if len(req.Password) < minPasswordLen {
		return nil, domain.NewError(domain.ErrBadRequest, "Password must be at least 6 characters")
	}
	if err := validate.Struct(req); err != nil {
		return nil, domain.NewError(domain.ErrBadRequest, err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.IsGoogle() {
			return nil, domain.NewError(domain.ErrConflict, "User already exists with Google authentication. Please sign in with Google.")
		}
		if existing.Verified {
			return nil, domain.NewError(domain.ErrConflict, "User already exists")
		}
	}

	if err := s.limiter.Check(ctx, req.Email, otp.FlowSignup); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := existing
	if u != nil {
		if err := s.users.UpdateProfile(ctx, u.UserID, req.FullName, hash); err != nil {
			return nil, err
		}
		u.FullName = req.FullName
	} else {
		now := s.now().UTC()
		u = &domain.User{
			UserID:       id.New(),
			FullName:     req.FullName,
			Email:        req.Email,
			PasswordHash: hash,
			AuthProvider: domain.ProviderEmail,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, u); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, domain.NewError(domain.ErrConflict, "User already exists")
			}
			return nil, err
		}
	}

	code, attempts, err := s.issueCode(ctx, req.Email, otp.FlowSignup)
	if err != nil {
		return nil, err
	}
	s.sendOTPAsync(u, code, domain.EmailTypeSignup)

	return &SignupResult{UserID: u.UserID, Attempts: attempts}, nil
}

// SignupVerifyOTP consumes the emailed code, marks the account verified and
// signs the user in.
func (s *Service) SignupVerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Session, error) {
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.OTP == "" {
		return nil, domain.NewError(domain.ErrBadRequest, "Email and OTP are required")
	}

	u, err := s.userByEmail(ctx, req.Email, "User not found")
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, ErrAlreadyVerified
	}

	switch err := s.codes.Verify(ctx, req.Email, req.OTP); {
	case errors.Is(err, otp.ErrCodeExpired):
		return nil, domain.NewError(domain.ErrBadRequest, "OTP has expired or does not exist. Please request a new one.")
	case errors.Is(err, otp.ErrCodeMismatch):
		return nil, domain.NewError(domain.ErrBadRequest, "Invalid OTP")
	case err != nil:
		return nil, err
	}

	if err := s.users.MarkVerified(ctx, u.UserID); err != nil {
		return nil, err
	}
	u.Verified = true

	sess, err := s.startSession(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Reset(ctx, req.Email); err != nil {
		slog.Warn("failed to reset otp counters", "email", req.Email, "err", err)
	}
	return sess, nil
}

// ResendOTP issues a new code to an unverified email account. Unlike the
// other flows the email is sent inline, so a delivery failure reaches the
// caller.
func (s *Service) ResendOTP(ctx context.Context, req ResendOTPRequest) (*Attempts, error) {
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		return nil, domain.NewError(domain.ErrBadRequest, "Email is required")
	}

	u, err := s.userByEmail(ctx, req.Email, "User not found. Please sign up.")
	if err != nil {
		return nil, err
	}
	if u.IsGoogle() {
		return nil, domain.NewError(domain.ErrBadRequest, "This account uses Google authentication. Please sign in with Google.")
	}
	if u.Verified {
		return nil, ErrAlreadyVerified
	}

	if err := s.limiter.Check(ctx, req.Email, otp.FlowResend); err != nil {
		return nil, err
	}
	code, attempts, err := s.issueCode(ctx, req.Email, otp.FlowResend)
	if err != nil {
		return nil, err
	}
	if err := s.users.Touch(ctx, u.UserID); err != nil {
		return nil, err
	}

	msg := domain.OTPEmail{ToEmail: u.Email, OTP: code, FullName: u.FullName, Type: domain.EmailTypeResend}
	if err := s.mail.SendOTP(ctx, msg); err != nil {
		slog.Error("failed to send otp email", "email", req.Email, "err", err)
		return nil, domain.NewError(domain.ErrInternal, "Failed to send OTP email. Please try again.")
	}
	return &attempts, nil
}
