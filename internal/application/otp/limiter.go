package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Flow names the verification journey an OTP belongs to. Each flow has its
// own attempt counter.
type Flow string

const (
	FlowSignup Flow = "signup"
	FlowLogin  Flow = "login"
	FlowReset  Flow = "reset"
	FlowResend Flow = "resend"
)

// Reason explains a denied request.
type Reason string

const (
	ReasonCooldown   Reason = "cooldown"
	ReasonDailyLimit Reason = "daily-limit"
	ReasonFlowLimit  Reason = "flow-limit"
)

// Store is the key-value surface the limiter and code store need.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) (int, error)
}

// Config bounds how often codes may be sent to one identity.
type Config struct {
	MaxPerFlow  int
	MaxPerDay   int
	Cooldown    time.Duration // zero disables the cooldown
	CodeTTL     time.Duration
	FlowBuffer  time.Duration // added to CodeTTL for the flow counter expiry
	DailyWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxPerFlow:  5,
		MaxPerDay:   10,
		Cooldown:    60 * time.Second,
		CodeTTL:     60 * time.Second,
		FlowBuffer:  300 * time.Second,
		DailyWindow: 24 * time.Hour,
	}
}

// Decision is the result of CanRequest.
type Decision struct {
	Allowed    bool
	Reason     Reason
	RetryAfter time.Duration // set for cooldown and daily-limit denials
}

// Usage is the counter state after Record.
type Usage struct {
	FlowCount  int64
	DailyCount int64
}

// Limiter enforces the per-flow, per-day and cooldown limits on OTP sends.
// Check then Record is not atomic, so two concurrent requests can both pass
// the check before either records.
type Limiter struct {
	store Store
	cfg   Config
}

func NewLimiter(store Store, cfg Config) *Limiter {
	return &Limiter{store: store, cfg: cfg}
}

func (l *Limiter) Config() Config { return l.cfg }

// CanRequest evaluates cooldown, then the daily cap, then the flow cap.
func (l *Limiter) CanRequest(ctx context.Context, identity string, flow Flow) (Decision, error) {
	if l.cfg.Cooldown > 0 {
		active, err := l.store.Exists(ctx, cooldownKey(identity))
		if err != nil {
			return Decision{}, fmt.Errorf("otp: check cooldown: %w", err)
		}
		if active {
			ttl, err := l.store.TTL(ctx, cooldownKey(identity))
			if err != nil {
				return Decision{}, fmt.Errorf("otp: cooldown ttl: %w", err)
			}
			return Decision{Reason: ReasonCooldown, RetryAfter: atLeastOneSecond(ttl)}, nil
		}
	}

	daily, err := l.count(ctx, dailyKey(identity))
	if err != nil {
		return Decision{}, err
	}
	if daily >= int64(l.cfg.MaxPerDay) {
		ttl, err := l.store.TTL(ctx, dailyKey(identity))
		if err != nil {
			return Decision{}, fmt.Errorf("otp: daily ttl: %w", err)
		}
		return Decision{Reason: ReasonDailyLimit, RetryAfter: atLeastOneSecond(ttl)}, nil
	}

	perFlow, err := l.count(ctx, flowKey(identity, flow))
	if err != nil {
		return Decision{}, err
	}
	if perFlow >= int64(l.cfg.MaxPerFlow) {
		return Decision{Reason: ReasonFlowLimit}, nil
	}
	return Decision{Allowed: true}, nil
}

// Check is CanRequest with denials returned as *LimitError.
func (l *Limiter) Check(ctx context.Context, identity string, flow Flow) error {
	d, err := l.CanRequest(ctx, identity, flow)
	if err != nil {
		return err
	}
	if d.Allowed {
		return nil
	}
	return l.limitError(d)
}

// Record counts one sent code against the flow and daily windows and starts
// the cooldown.
func (l *Limiter) Record(ctx context.Context, identity string, flow Flow) (Usage, error) {
	flowCount, err := l.store.IncrWithExpiry(ctx, flowKey(identity, flow), l.cfg.CodeTTL+l.cfg.FlowBuffer)
	if err != nil {
		return Usage{}, fmt.Errorf("otp: record flow attempt: %w", err)
	}
	dailyCount, err := l.store.IncrWithExpiry(ctx, dailyKey(identity), l.cfg.DailyWindow)
	if err != nil {
		return Usage{}, fmt.Errorf("otp: record daily attempt: %w", err)
	}
	if l.cfg.Cooldown > 0 {
		if err := l.store.SetEX(ctx, cooldownKey(identity), "1", l.cfg.Cooldown); err != nil {
			return Usage{}, fmt.Errorf("otp: start cooldown: %w", err)
		}
	}
	return Usage{FlowCount: flowCount, DailyCount: dailyCount}, nil
}

// Reset clears every flow counter and the cooldown for identity. The daily
// counter is left to expire on its own.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	if _, err := l.store.DelPrefix(ctx, flowPrefix(identity)); err != nil {
		return fmt.Errorf("otp: reset flow counters: %w", err)
	}
	if err := l.store.Del(ctx, cooldownKey(identity)); err != nil {
		return fmt.Errorf("otp: reset cooldown: %w", err)
	}
	return nil
}

// Remaining returns how many sends are left in the flow and the day, floored at zero.
func (l *Limiter) Remaining(u Usage) (flow, daily int64) {
	return max(int64(l.cfg.MaxPerFlow)-u.FlowCount, 0), max(int64(l.cfg.MaxPerDay)-u.DailyCount, 0)
}

func (l *Limiter) count(ctx context.Context, key string) (int64, error) {
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("otp: read counter: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("otp: counter %s is not an integer: %w", key, err)
	}
	return n, nil
}

func atLeastOneSecond(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d
}

func codeKey(identity string) string     { return "otp:" + identity }
func dailyKey(identity string) string    { return "otp_daily:" + identity }
func cooldownKey(identity string) string { return "otp_cooldown:" + identity }
func flowPrefix(identity string) string  { return "otp_flow:" + identity + ":" }

func flowKey(identity string, flow Flow) string { return flowPrefix(identity) + string(flow) }
