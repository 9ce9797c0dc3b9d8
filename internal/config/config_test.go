package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.OTPMaxAttemptsPerFlow)
	assert.Equal(t, 10, cfg.OTPMaxAttemptsPerDay)
	assert.Equal(t, 60*time.Second, cfg.OTPCooldown())
	assert.Equal(t, 60*time.Second, cfg.OTPExpiry())
	assert.Equal(t, 5*time.Minute, cfg.OTPFlowBuffer())
	assert.Equal(t, 24*time.Hour, cfg.OTPResetWindow())
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 5, cfg.LoginLockoutThreshold)
	assert.Equal(t, 15*time.Minute, cfg.LoginLockoutWindow)
	assert.Equal(t, "users", cfg.DynamoTables.Users)
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OTP_MAX_ATTEMPTS_PER_FLOW", "3")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DYNAMO_TABLE_USERS", "auth_users")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.OTPMaxAttemptsPerFlow)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "auth_users", cfg.DynamoTables.Users)
}

func TestLoad_UnknownStoreDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestLoad_SNSRequiresTopic(t *testing.T) {
	t.Setenv("EMAIL_TRANSPORT", "sns")
	_, err := Load()
	assert.ErrorContains(t, err, "EMAIL_SNS_TOPIC_ARN")
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	cases := []struct{ key, value string }{
		{"OTP_MAX_ATTEMPTS_PER_DAY", "0"},
		{"LOGIN_LOCKOUT_THRESHOLD", "0"},
		{"LOGIN_LOCKOUT_WINDOW", "0s"},
		{"LOGIN_LOCKOUT_DURATION", "-1m"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
