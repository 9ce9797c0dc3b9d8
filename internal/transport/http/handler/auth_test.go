package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/application/token"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) SignupSendOTP(ctx context.Context, req auth.SignupRequest) (*auth.SignupResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*auth.SignupResult)
	return res, args.Error(1)
}

func (m *mockAuthSvc) SignupVerifyOTP(ctx context.Context, req auth.VerifyOTPRequest) (*auth.Session, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *mockAuthSvc) Login(ctx context.Context, req auth.LoginRequest) (*auth.Session, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *mockAuthSvc) ResendOTP(ctx context.Context, req auth.ResendOTPRequest) (*auth.Attempts, error) {
	args := m.Called(ctx, req)
	a, _ := args.Get(0).(*auth.Attempts)
	return a, args.Error(1)
}

func (m *mockAuthSvc) ForgotPassword(ctx context.Context, req auth.ForgotPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthSvc) ValidateResetToken(ctx context.Context, tok string) error {
	return m.Called(ctx, tok).Error(0)
}

func (m *mockAuthSvc) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthSvc) Logout(ctx context.Context, accessToken, refreshToken string) {
	m.Called(ctx, accessToken, refreshToken)
}

func (m *mockAuthSvc) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *mockAuthSvc) ValidateSession(ctx context.Context, accessToken, refreshToken string) (*auth.SessionCheck, error) {
	args := m.Called(ctx, accessToken, refreshToken)
	c, _ := args.Get(0).(*auth.SessionCheck)
	return c, args.Error(1)
}

func (m *mockAuthSvc) Me(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockAuthSvc) GoogleAuthURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockAuthSvc) GoogleCallback(ctx context.Context, code, state string) (*auth.GoogleResult, error) {
	args := m.Called(ctx, code, state)
	r, _ := args.Get(0).(*auth.GoogleResult)
	return r, args.Error(1)
}

func (m *mockAuthSvc) LoginErrorURL(code string) string {
	return "http://app.test/auth/login?error=" + code
}

// --- helpers ---

func newAuthHandler(svc *mockAuthSvc) *AuthHandler {
	return NewAuthHandler(svc, Cookies{Secure: true})
}

func postJSON(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&m))
	return m
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func testSession() *auth.Session {
	exp := time.Now().Add(15 * time.Minute)
	return &auth.Session{
		User: &domain.User{UserID: "u1", Email: "ada@example.com", FullName: "Ada", Verified: true, PasswordHash: "secret-hash"},
		Tokens: token.Pair{
			AccessToken:      "access-jwt",
			AccessExpiresAt:  exp,
			RefreshToken:     "refresh-jwt",
			RefreshExpiresAt: exp.Add(7 * 24 * time.Hour),
		},
	}
}

// --- tests ---

func TestSignupSendOTP_Success(t *testing.T) {
	svc := &mockAuthSvc{}
	req := auth.SignupRequest{FullName: "Ada", Email: "ada@example.com", Password: "secret1"}
	svc.On("SignupSendOTP", mock.Anything, req).Return(&auth.SignupResult{
		UserID:   "u1",
		Attempts: auth.Attempts{AttemptsUsed: 1, AttemptsRemaining: 4, DailyAttemptsUsed: 1, DailyAttemptsRemaining: 9},
	}, nil)

	w := postJSON(t, newAuthHandler(svc).SignupSendOTP, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "OTP sent successfully. Please check your email.", body["message"])
	assert.Equal(t, "u1", body["userId"])
	assert.EqualValues(t, 4, body["attemptsRemaining"])
	assert.EqualValues(t, 9, body["dailyAttemptsRemaining"])
	svc.AssertExpectations(t)
}

func TestSignupSendOTP_InvalidBody(t *testing.T) {
	svc := &mockAuthSvc{}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()

	newAuthHandler(svc).SignupSendOTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decodeBody(t, w)["message"])
	svc.AssertNotCalled(t, "SignupSendOTP", mock.Anything, mock.Anything)
}

func TestSignupSendOTP_RateLimited(t *testing.T) {
	cases := []struct {
		name       string
		err        *otp.LimitError
		limitType  interface{}
		retryAfter interface{}
	}{
		{
			name:       "cooldown",
			err:        &otp.LimitError{Reason: otp.ReasonCooldown, RetryAfter: 42 * time.Second, Message: "Please wait 42 seconds before requesting a new OTP."},
			limitType:  nil,
			retryAfter: float64(42),
		},
		{
			name:       "daily",
			err:        &otp.LimitError{Reason: otp.ReasonDailyLimit, RetryAfter: 3 * time.Hour, Message: "daily"},
			limitType:  "daily",
			retryAfter: float64(10800),
		},
		{
			name:      "flow",
			err:       &otp.LimitError{Reason: otp.ReasonFlowLimit, Message: "flow"},
			limitType: "flow",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAuthSvc{}
			svc.On("SignupSendOTP", mock.Anything, mock.Anything).Return(nil, tc.err)

			w := postJSON(t, newAuthHandler(svc).SignupSendOTP, auth.SignupRequest{Email: "ada@example.com"})

			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.err.Message, body["message"])
			assert.Equal(t, tc.limitType, body["limitType"])
			assert.Equal(t, tc.retryAfter, body["retryAfter"])
		})
	}
}

func TestSignupVerifyOTP_SetsCookies(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("SignupVerifyOTP", mock.Anything, auth.VerifyOTPRequest{Email: "ada@example.com", OTP: "123456"}).
		Return(testSession(), nil)

	w := postJSON(t, newAuthHandler(svc).SignupVerifyOTP, auth.VerifyOTPRequest{Email: "ada@example.com", OTP: "123456"})

	assert.Equal(t, http.StatusOK, w.Code)
	access := cookieByName(w, middleware.AccessCookie)
	require.NotNil(t, access)
	assert.Equal(t, "access-jwt", access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteNoneMode, access.SameSite)
	refresh := cookieByName(w, middleware.RefreshCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, "refresh-jwt", refresh.Value)

	body := decodeBody(t, w)
	assert.Equal(t, "Account verified successfully!", body["message"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, true, user["user_verified"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, w.Body.String(), "secret-hash")
}

func TestSignupVerifyOTP_AlreadyVerified(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("SignupVerifyOTP", mock.Anything, mock.Anything).Return(nil, auth.ErrAlreadyVerified)

	w := postJSON(t, newAuthHandler(svc).SignupVerifyOTP, auth.VerifyOTPRequest{Email: "a@b.c", OTP: "1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["isVerified"])
	assert.Equal(t, "Account is already verified", body["message"])
}

func TestLogin_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", domain.NewError(domain.ErrNotFound, "No account found with that email address"), http.StatusNotFound, "No account found with that email address"},
		{"bad password", domain.NewError(domain.ErrUnauthorized, "Incorrect email or password"), http.StatusUnauthorized, "Incorrect email or password"},
		{"locked", domain.NewError(domain.ErrTooManyRequests, "Too many login attempts. Please try again in 15 minutes."), http.StatusTooManyRequests, "Too many login attempts. Please try again in 15 minutes."},
		{"internal", errors.New("redis: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAuthSvc{}
			svc.On("Login", mock.Anything, mock.Anything).Return(nil, tc.err)

			w := postJSON(t, newAuthHandler(svc).Login, auth.LoginRequest{Email: "ada@example.com", Password: "x"})

			assert.Equal(t, tc.status, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.msg, body["message"])
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func TestLogin_VerificationRequired(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, &auth.VerificationRequiredError{
		Attempts: auth.Attempts{AttemptsUsed: 1, AttemptsRemaining: 4, DailyAttemptsUsed: 2, DailyAttemptsRemaining: 8},
	})

	w := postJSON(t, newAuthHandler(svc).Login, auth.LoginRequest{Email: "ada@example.com", Password: "x"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Account not verified. A new OTP has been sent to your email.", body["message"])
	assert.EqualValues(t, 4, body["attemptsRemaining"])
	assert.EqualValues(t, 8, body["dailyAttemptsRemaining"])
}

func TestLogin_Success(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, auth.LoginRequest{Email: "ada@example.com", Password: "secret1"}).Return(testSession(), nil)

	w := postJSON(t, newAuthHandler(svc).Login, auth.LoginRequest{Email: "ada@example.com", Password: "secret1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", decodeBody(t, w)["message"])
	assert.NotNil(t, cookieByName(w, middleware.AccessCookie))
	assert.NotNil(t, cookieByName(w, middleware.RefreshCookie))
}

func TestResendOTP_ReturnsAttempts(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("ResendOTP", mock.Anything, auth.ResendOTPRequest{Email: "ada@example.com"}).
		Return(&auth.Attempts{AttemptsUsed: 2, AttemptsRemaining: 3, DailyAttemptsUsed: 2, DailyAttemptsRemaining: 8}, nil)

	w := postJSON(t, newAuthHandler(svc).ResendOTP, auth.ResendOTPRequest{Email: "ada@example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "New OTP sent successfully!", body["message"])
	assert.EqualValues(t, 2, body["attemptsUsed"])
	assert.EqualValues(t, 3, body["attemptsRemaining"])
}

func TestForgotAndResetPassword(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("ForgotPassword", mock.Anything, auth.ForgotPasswordRequest{Email: "ada@example.com"}).Return(nil)
	reset := auth.ResetPasswordRequest{Token: "tok", NewPassword: "newpass", ConfirmPassword: "newpass"}
	svc.On("ResetPassword", mock.Anything, reset).Return(nil)
	h := newAuthHandler(svc)

	w := postJSON(t, h.ForgotPassword, auth.ForgotPasswordRequest{Email: "ada@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Password reset link has been sent to your email.", decodeBody(t, w)["message"])

	w = postJSON(t, h.ResetPassword, reset)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Password reset successful! Please login with your new password.", decodeBody(t, w)["message"])
	svc.AssertExpectations(t)
}

func TestValidateResetToken(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("ValidateResetToken", mock.Anything, "good").Return(nil)
	svc.On("ValidateResetToken", mock.Anything, "used").
		Return(domain.NewError(domain.ErrBadRequest, "Token not found, expired, or already used"))
	h := newAuthHandler(svc)

	w := httptest.NewRecorder()
	h.ValidateResetToken(w, httptest.NewRequest(http.MethodGet, "/?token=good", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["valid"])

	w = httptest.NewRecorder()
	h.ValidateResetToken(w, httptest.NewRequest(http.MethodGet, "/?token=used", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "Token not found, expired, or already used", body["message"])
}

func TestLogout_ClearsCookies(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Logout", mock.Anything, "access-jwt", "refresh-jwt").Return()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: "access-jwt"})
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookie, Value: "refresh-jwt"})
	w := httptest.NewRecorder()
	newAuthHandler(svc).Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", decodeBody(t, w)["message"])
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		c := cookieByName(w, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Less(t, c.MaxAge, 0)
	}
	svc.AssertExpectations(t)
}

func TestRefresh(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute)
	svc := &mockAuthSvc{}
	svc.On("Refresh", mock.Anything, "refresh-jwt").Return("new-access", exp, nil)
	svc.On("Refresh", mock.Anything, "").Return("", time.Time{}, auth.ErrSessionExpired)
	h := newAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookie, Value: "refresh-jwt"})
	w := httptest.NewRecorder()
	h.Refresh(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new-access", decodeBody(t, w)["accessToken"])
	c := cookieByName(w, middleware.AccessCookie)
	require.NotNil(t, c)
	assert.Equal(t, "new-access", c.Value)

	w = httptest.NewRecorder()
	h.Refresh(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Session has expired, please log in again", decodeBody(t, w)["message"])
}

func TestValidateSession_ReissuesAccessCookie(t *testing.T) {
	svc := &mockAuthSvc{}
	user := &domain.User{UserID: "u1", Email: "ada@example.com", Verified: true}
	svc.On("ValidateSession", mock.Anything, "", "refresh-jwt").Return(&auth.SessionCheck{
		User:            user,
		AccessToken:     "fresh-access",
		AccessExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookie, Value: "refresh-jwt"})
	w := httptest.NewRecorder()
	newAuthHandler(svc).ValidateSession(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	c := cookieByName(w, middleware.AccessCookie)
	require.NotNil(t, c)
	assert.Equal(t, "fresh-access", c.Value)
	assert.Nil(t, cookieByName(w, middleware.RefreshCookie))
}

func TestValidateSession_KeepsValidAccess(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("ValidateSession", mock.Anything, "access-jwt", "").
		Return(&auth.SessionCheck{User: &domain.User{UserID: "u1"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer access-jwt")
	w := httptest.NewRecorder()
	newAuthHandler(svc).ValidateSession(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestMe(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Me", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "ada@example.com"}, nil)
	h := newAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), middleware.SubjectKey, token.Subject{UserID: "u1"})
	w := httptest.NewRecorder()
	h.Me(w, req.WithContext(ctx))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", decodeBody(t, w)["user"].(map[string]interface{})["email"])

	w = httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGoogleAuthURL(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("GoogleAuthURL", mock.Anything).Return("https://accounts.google.com/o/oauth2/auth?state=s", nil).Once()
	svc.On("GoogleAuthURL", mock.Anything).Return("", errors.New("redis down")).Once()
	h := newAuthHandler(svc)

	w := httptest.NewRecorder()
	h.GoogleAuthURL(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=s", decodeBody(t, w)["authUrl"])

	w = httptest.NewRecorder()
	h.GoogleAuthURL(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to initiate Google OAuth", decodeBody(t, w)["message"])
}

func TestGoogleCallback(t *testing.T) {
	t.Run("success redirects home with cookies", func(t *testing.T) {
		svc := &mockAuthSvc{}
		svc.On("GoogleCallback", mock.Anything, "c", "s").Return(&auth.GoogleResult{
			Session:     testSession(),
			NewUser:     true,
			RedirectURL: "http://app.test/home?message=Google+signup+successful%21&success=true",
		}, nil)

		w := httptest.NewRecorder()
		newAuthHandler(svc).GoogleCallback(w, httptest.NewRequest(http.MethodGet, "/?code=c&state=s", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://app.test/home?message=Google+signup+successful%21&success=true", w.Header().Get("Location"))
		assert.NotNil(t, cookieByName(w, middleware.AccessCookie))
		assert.NotNil(t, cookieByName(w, middleware.RefreshCookie))
	})

	t.Run("oauth error code is forwarded", func(t *testing.T) {
		svc := &mockAuthSvc{}
		svc.On("GoogleCallback", mock.Anything, "c", "bad").
			Return(nil, &auth.OAuthError{Code: auth.OAuthInvalidState})

		w := httptest.NewRecorder()
		newAuthHandler(svc).GoogleCallback(w, httptest.NewRequest(http.MethodGet, "/?code=c&state=bad", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://app.test/auth/login?error=invalid_state", w.Header().Get("Location"))
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("unexpected error maps to google_auth_failed", func(t *testing.T) {
		svc := &mockAuthSvc{}
		svc.On("GoogleCallback", mock.Anything, "", "").Return(nil, errors.New("boom"))

		w := httptest.NewRecorder()
		newAuthHandler(svc).GoogleCallback(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "http://app.test/auth/login?error=google_auth_failed", w.Header().Get("Location"))
	})
}

func TestCookies_InsecureUsesLax(t *testing.T) {
	w := httptest.NewRecorder()
	Cookies{Secure: false}.setAccess(w, "tok", time.Now().Add(time.Minute))
	c := cookieByName(w, middleware.AccessCookie)
	require.NotNil(t, c)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}
