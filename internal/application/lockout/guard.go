package lockout

import (
	"context"
	"fmt"
	"time"
)

type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// Config controls when repeated password failures block an identity.
type Config struct {
	Threshold int           // failures within Window that trigger a block
	Window    time.Duration // lifetime of the failure counter, from the first failure
	Duration  time.Duration // how long a block lasts
}

func DefaultConfig() Config {
	return Config{Threshold: 5, Window: 15 * time.Minute, Duration: 15 * time.Minute}
}

// Guard tracks failed password attempts per identity.
type Guard struct {
	store Store
	cfg   Config
}

func NewGuard(store Store, cfg Config) *Guard {
	return &Guard{store: store, cfg: cfg}
}

func (g *Guard) Config() Config { return g.cfg }

// Locked reports whether identity is currently blocked.
func (g *Guard) Locked(ctx context.Context, identity string) (bool, error) {
	ok, err := g.store.Exists(ctx, blockedKey(identity))
	if err != nil {
		return false, fmt.Errorf("lockout: check block: %w", err)
	}
	return ok, nil
}

// RecordFailure counts a failed attempt and blocks identity once the
// threshold is reached. It returns whether identity is now blocked and the
// failure count so far.
func (g *Guard) RecordFailure(ctx context.Context, identity string) (bool, int64, error) {
	n, err := g.store.IncrWithExpiry(ctx, failuresKey(identity), g.cfg.Window)
	if err != nil {
		return false, 0, fmt.Errorf("lockout: count failure: %w", err)
	}
	if n < int64(g.cfg.Threshold) {
		return false, n, nil
	}
	if err := g.store.SetEX(ctx, blockedKey(identity), "true", g.cfg.Duration); err != nil {
		return false, n, fmt.Errorf("lockout: set block: %w", err)
	}
	return true, n, nil
}

// Clear drops the failure counter and any block, after a successful login.
func (g *Guard) Clear(ctx context.Context, identity string) error {
	if err := g.store.Del(ctx, failuresKey(identity), blockedKey(identity)); err != nil {
		return fmt.Errorf("lockout: clear: %w", err)
	}
	return nil
}

func failuresKey(identity string) string { return "login_failures:" + identity }
func blockedKey(identity string) string  { return "login_blocked:" + identity }
