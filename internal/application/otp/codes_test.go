package otp

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-auth-otp/internal/infrastructure/cache"
)

func newTestCodes(t *testing.T) (*Codes, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewCodes(cache.NewStore(client), time.Minute)
	c.cost = 4 // bcrypt.MinCost keeps the tests fast
	return c, mr
}

func TestGenerate_SixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestCodes_IssueStoresHashNotPlaintext(t *testing.T) {
	c, mr := newTestCodes(t)
	code, err := c.Issue(context.Background(), identity)
	require.NoError(t, err)

	stored, err := mr.Get("otp:" + identity)
	require.NoError(t, err)
	assert.NotEqual(t, code, stored)
	assert.Equal(t, time.Minute, mr.TTL("otp:"+identity))
}

func TestCodes_VerifyConsumes(t *testing.T) {
	c, mr := newTestCodes(t)
	ctx := context.Background()
	code, err := c.Issue(ctx, identity)
	require.NoError(t, err)

	require.NoError(t, c.Verify(ctx, identity, code))
	assert.False(t, mr.Exists("otp:"+identity))
	assert.ErrorIs(t, c.Verify(ctx, identity, code), ErrCodeExpired)
}

func TestCodes_MismatchKeepsCode(t *testing.T) {
	c, mr := newTestCodes(t)
	ctx := context.Background()
	code, err := c.Issue(ctx, identity)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, c.Verify(ctx, identity, wrong), ErrCodeMismatch)
	assert.True(t, mr.Exists("otp:"+identity))
	assert.NoError(t, c.Verify(ctx, identity, code))
}

func TestCodes_Expired(t *testing.T) {
	c, mr := newTestCodes(t)
	ctx := context.Background()
	code, err := c.Issue(ctx, identity)
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)
	assert.ErrorIs(t, c.Verify(ctx, identity, code), ErrCodeExpired)
}

func TestCodes_ReissueReplacesEarlierCode(t *testing.T) {
	c, _ := newTestCodes(t)
	ctx := context.Background()
	first, err := c.Issue(ctx, identity)
	require.NoError(t, err)
	second, err := c.Issue(ctx, identity)
	require.NoError(t, err)
	if first == second {
		t.Skip("generated the same code twice")
	}

	assert.ErrorIs(t, c.Verify(ctx, identity, first), ErrCodeMismatch)
	assert.NoError(t, c.Verify(ctx, identity, second))
}
