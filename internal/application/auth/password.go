package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/id"
)

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

var errResetTokenUnusable = domain.NewError(domain.ErrBadRequest, "Invalid, expired, or already used reset token")

// ForgotPassword emails a reset link. The link carries a signed token that is
// also stored, so it can be redeemed once.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		return domain.NewError(domain.ErrBadRequest, "Email is required")
	}

	u, err := s.userByEmail(ctx, req.Email, "User not found with this email")
	if err != nil {
		return err
	}
	if u.IsGoogle() {
		return domain.NewError(domain.ErrBadRequest, "Google users cannot reset password. Please sign in with Google.")
	}
	if !u.HasPassword() {
		return domain.NewError(domain.ErrBadRequest, "This account doesn't have a password. Please use Google login or contact support.")
	}

	if err := s.limiter.Check(ctx, req.Email, otp.FlowReset); err != nil {
		return err
	}

	tok, expiresAt, err := s.tokens.IssueReset(u.UserID, u.Email)
	if err != nil {
		return err
	}
	if err := s.resetTokens.Create(ctx, &domain.PasswordResetToken{
		ID:        id.New(),
		UserID:    u.UserID,
		Token:     tok,
		ExpiresAt: expiresAt,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return err
	}
	if _, err := s.limiter.Record(ctx, req.Email, otp.FlowReset); err != nil {
		return err
	}

	msg := domain.ResetEmail{ToEmail: u.Email, ResetURL: s.resetURL(tok), FullName: u.FullName}
	s.sendAsync("send-reset", u.Email, func(ctx context.Context) error {
		return s.mail.SendPasswordReset(ctx, msg)
	})
	return nil
}

func (s *Service) resetURL(tok string) string {
	return s.frontendURL + "/auth/reset-password?token=" + url.QueryEscape(tok)
}

// ValidateResetToken reports whether tok can still be redeemed.
func (s *Service) ValidateResetToken(ctx context.Context, tok string) error {
	if tok == "" {
		return domain.NewError(domain.ErrBadRequest, "Token is required")
	}
	if _, err := s.tokens.VerifyReset(tok); err != nil {
		return domain.NewError(domain.ErrBadRequest, "Invalid or expired token signature")
	}
	if _, err := s.activeResetToken(ctx, tok); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.ErrBadRequest, "Token not found, expired, or already used")
		}
		return err
	}
	return nil
}

// ResetPassword redeems a reset token. The stored row is claimed before the
// password changes, so two concurrent resets with one token cannot both win.
// On success every refresh token of the user is revoked.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.Token == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return domain.NewError(domain.ErrBadRequest, "All fields are required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return domain.NewError(domain.ErrBadRequest, "Passwords do not match")
	}
	if len(req.NewPassword) < minPasswordLen {
		return domain.NewError(domain.ErrBadRequest, "Password must be at least 6 characters")
	}

	claims, err := s.tokens.VerifyReset(req.Token)
	if err != nil {
		return domain.NewError(domain.ErrBadRequest, "Invalid or expired reset token")
	}
	row, err := s.activeResetToken(ctx, req.Token)
	if errors.Is(err, domain.ErrNotFound) {
		return errResetTokenUnusable
	}
	if err != nil {
		return err
	}
	if row.UserID != claims.UserID {
		return errResetTokenUnusable
	}

	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.resetTokens.MarkUsed(ctx, row.ID, s.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errResetTokenUnusable
		}
		return err
	}
	if err := s.users.UpdatePassword(ctx, row.UserID, hash); err != nil {
		// The link stays redeemable when the password did not change.
		if rerr := s.resetTokens.Release(ctx, row.ID); rerr != nil {
			slog.Error("failed to release reset token", "user_id", row.UserID, "err", rerr)
		}
		return err
	}

	if n, err := s.tokens.RevokeAllForUser(ctx, row.UserID); err != nil {
		slog.Error("failed to revoke sessions after password reset", "user_id", row.UserID, "err", err)
	} else {
		slog.Info("password reset", "user_id", row.UserID, "revoked_sessions", n)
	}
	if err := s.limiter.Reset(ctx, normalizeEmail(claims.Email)); err != nil {
		slog.Warn("failed to reset otp counters", "email", claims.Email, "err", err)
	}
	return nil
}

func (s *Service) activeResetToken(ctx context.Context, tok string) (*domain.PasswordResetToken, error) {
	row, err := s.resetTokens.GetActive(ctx, tok, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !row.Usable(s.now().UTC()) {
		return nil, domain.ErrNotFound
	}
	return row, nil
}
