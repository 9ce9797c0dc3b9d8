package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/domain"
)

// MessageEnvelope is the generic response wrapper. Every response carries it.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AttemptsEnvelope reports OTP usage.
type AttemptsEnvelope struct {
	MessageEnvelope
	auth.Attempts
}

// SignupEnvelope wraps the signup response.
type SignupEnvelope struct {
	MessageEnvelope
	UserID string `json:"userId"`
	auth.Attempts
}

// UserEnvelope wraps responses that return the signed-in user.
type UserEnvelope struct {
	MessageEnvelope
	User *domain.User `json:"user,omitempty"`
}

// TokenEnvelope wraps a refreshed access token.
type TokenEnvelope struct {
	MessageEnvelope
	AccessToken string `json:"accessToken"`
}

// ValidEnvelope wraps reset-token validation.
type ValidEnvelope struct {
	MessageEnvelope
	Valid bool `json:"valid"`
}

// AuthURLEnvelope wraps the Google consent URL.
type AuthURLEnvelope struct {
	MessageEnvelope
	AuthURL string `json:"authUrl"`
}

// RateLimitEnvelope is the 429 body. LimitType is "daily" or "flow" and
// RetryAfter is in seconds; either may be absent.
type RateLimitEnvelope struct {
	MessageEnvelope
	LimitType  string `json:"limitType,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// VerifiedEnvelope tells the client the account needs no further OTP.
type VerifiedEnvelope struct {
	MessageEnvelope
	IsVerified bool `json:"isVerified"`
}

func succeed(msg string) MessageEnvelope { return MessageEnvelope{Success: true, Message: msg} }
func fail(msg string) MessageEnvelope    { return MessageEnvelope{Success: false, Message: msg} }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, fail(msg))
}

const maxBodyBytes = 1 << 20

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
