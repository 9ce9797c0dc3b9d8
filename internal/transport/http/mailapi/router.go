// Package mailapi exposes the email service over HTTP for the auth service's
// http email transport.
package mailapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Sender renders and delivers the transactional emails.
type Sender interface {
	SendOTP(ctx context.Context, msg domain.OTPEmail) error
	SendPasswordReset(ctx context.Context, msg domain.ResetEmail) error
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewRouter builds the email service router.
func NewRouter(svc Sender) http.Handler {
	h := &handler{svc: svc}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Get("/", h.ping)
	r.Route("/api/email", func(r chi.Router) {
		r.Post("/send-otp", h.sendOTP)
		r.Post("/send-reset", h.sendReset)
	})
	return r
}

type handler struct {
	svc Sender
}

func (h *handler) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Email service is running"})
}

func (h *handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var msg domain.OTPEmail
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Email and OTP are required"})
		return
	}
	if err := h.svc.SendOTP(r.Context(), msg); err != nil {
		fail(w, "send otp email", "Failed to send OTP email", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "OTP email sent successfully"})
}

func (h *handler) sendReset(w http.ResponseWriter, r *http.Request) {
	var msg domain.ResetEmail
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Email and reset URL are required"})
		return
	}
	if err := h.svc.SendPasswordReset(r.Context(), msg); err != nil {
		fail(w, "send reset email", "Failed to send password reset email", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Password reset email sent successfully"})
}

// fail answers 400 for rejected input and 500 for delivery failures.
func fail(w http.ResponseWriter, op, internal string, err error) {
	if msg, ok := domain.PublicMessage(err); ok && errors.Is(err, domain.ErrBadRequest) {
		writeJSON(w, http.StatusBadRequest, envelope{Message: msg})
		return
	}
	slog.Error(op, "err", err)
	writeJSON(w, http.StatusInternalServerError, envelope{Message: internal})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
