package mailclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-auth-otp/internal/domain"
)

func TestClient_SendOTP(t *testing.T) {
	var got domain.OTPEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/email/send-otp", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"message":"OTP email sent successfully"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", nil, time.Second)
	err := c.SendOTP(context.Background(), domain.OTPEmail{ToEmail: "ada@example.com", OTP: "123456", Type: "signup"})
	require.NoError(t, err)
	assert.Equal(t, "123456", got.OTP)
	assert.Equal(t, "ada@example.com", got.ToEmail)
}

func TestClient_SendPasswordResetError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/email/send-reset", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Failed to send email"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, nil, time.Second).SendPasswordReset(context.Background(), domain.ResetEmail{ToEmail: "ada@example.com", ResetURL: "https://x"})
	assert.ErrorContains(t, err, "500 Failed to send email")
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, nil, time.Second).SendOTP(context.Background(), domain.OTPEmail{})
	assert.ErrorContains(t, err, "status 502")
}
