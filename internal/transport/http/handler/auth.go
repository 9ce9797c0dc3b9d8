package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/transport/http/middleware"
)

// AuthService is the part of auth.Service the handlers call.
type AuthService interface {
	SignupSendOTP(ctx context.Context, req auth.SignupRequest) (*auth.SignupResult, error)
	SignupVerifyOTP(ctx context.Context, req auth.VerifyOTPRequest) (*auth.Session, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.Session, error)
	ResendOTP(ctx context.Context, req auth.ResendOTPRequest) (*auth.Attempts, error)
	ForgotPassword(ctx context.Context, req auth.ForgotPasswordRequest) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error
	Logout(ctx context.Context, accessToken, refreshToken string)
	Refresh(ctx context.Context, refreshToken string) (string, time.Time, error)
	ValidateSession(ctx context.Context, accessToken, refreshToken string) (*auth.SessionCheck, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	GoogleAuthURL(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, code, state string) (*auth.GoogleResult, error)
	LoginErrorURL(code string) string
}

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	svc     AuthService
	cookies Cookies
}

func NewAuthHandler(svc AuthService, cookies Cookies) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies}
}

func (h *AuthHandler) startSession(w http.ResponseWriter, sess *auth.Session) {
	h.cookies.setAccess(w, sess.Tokens.AccessToken, sess.Tokens.AccessExpiresAt)
	h.cookies.setRefresh(w, sess.Tokens.RefreshToken, sess.Tokens.RefreshExpiresAt)
}

func (h *AuthHandler) SignupSendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.SignupSendOTP(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SignupEnvelope{
		MessageEnvelope: succeed("OTP sent successfully. Please check your email."),
		UserID:          res.UserID,
		Attempts:        res.Attempts,
	})
}

func (h *AuthHandler) SignupVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.svc.SignupVerifyOTP(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.startSession(w, sess)
	writeJSON(w, http.StatusOK, UserEnvelope{MessageEnvelope: succeed("Account verified successfully!"), User: sess.User})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.startSession(w, sess)
	writeJSON(w, http.StatusOK, UserEnvelope{MessageEnvelope: succeed("Login successful"), User: sess.User})
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.ResendOTPRequest
	if !decode(w, r, &req) {
		return
	}
	attempts, err := h.svc.ResendOTP(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AttemptsEnvelope{MessageEnvelope: succeed("New OTP sent successfully!"), Attempts: *attempts})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, succeed("Password reset link has been sent to your email."))
}

func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ValidateResetToken(r.Context(), r.URL.Query().Get("token")); err != nil {
		if msg, ok := domain.PublicMessage(err); ok && errors.Is(err, domain.ErrBadRequest) {
			writeJSON(w, http.StatusBadRequest, ValidEnvelope{MessageEnvelope: fail(msg), Valid: false})
			return
		}
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidEnvelope{MessageEnvelope: succeed("Token is valid"), Valid: true})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, succeed("Password reset successful! Please login with your new password."))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context(), middleware.AccessToken(r), middleware.Cookie(r, middleware.RefreshCookie))
	h.cookies.clearSession(w)
	writeJSON(w, http.StatusOK, succeed("Logged out successfully"))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tok, exp, err := h.svc.Refresh(r.Context(), middleware.Cookie(r, middleware.RefreshCookie))
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.cookies.setAccess(w, tok, exp)
	writeJSON(w, http.StatusOK, TokenEnvelope{MessageEnvelope: succeed("Access token refreshed"), AccessToken: tok})
}

func (h *AuthHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	check, err := h.svc.ValidateSession(r.Context(), middleware.AccessToken(r), middleware.Cookie(r, middleware.RefreshCookie))
	if err != nil {
		httpError(w, r, err)
		return
	}
	if check.AccessToken != "" {
		h.cookies.setAccess(w, check.AccessToken, check.AccessExpiresAt)
	}
	writeJSON(w, http.StatusOK, UserEnvelope{MessageEnvelope: succeed("Session is valid"), User: check.User})
}

// Me expects middleware.Auth in front of it.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	u, err := h.svc.Me(r.Context(), sub.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{MessageEnvelope: succeed("User fetched successfully"), User: u})
}

func (h *AuthHandler) GoogleAuthURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GoogleAuthURL(r.Context())
	if err != nil {
		if _, ok := domain.PublicMessage(err); !ok {
			slog.Error("google auth url", "err", err)
			err = domain.NewError(domain.ErrInternal, "Failed to initiate Google OAuth")
		}
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthURLEnvelope{MessageEnvelope: succeed("Redirect to Google"), AuthURL: u})
}

// GoogleCallback always answers with a redirect to the frontend.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.GoogleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		code := auth.OAuthFailed
		var oe *auth.OAuthError
		if errors.As(err, &oe) {
			code = oe.Code
		}
		slog.Warn("google callback failed", "code", code, "err", err)
		http.Redirect(w, r, h.svc.LoginErrorURL(code), http.StatusFound)
		return
	}
	h.startSession(w, res.Session)
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}
