package otp

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-auth-otp/internal/domain"
)

var (
	ErrCodeExpired  = errors.New("otp: code expired or not issued")
	ErrCodeMismatch = errors.New("otp: code mismatch")
)

// LimitError is a denied OTP request. It unwraps to domain.ErrTooManyRequests.
type LimitError struct {
	Reason     Reason
	RetryAfter time.Duration
	Message    string
}

func (e *LimitError) Error() string { return e.Message }

func (e *LimitError) Unwrap() error { return domain.ErrTooManyRequests }

// LimitType is the short limit name reported to clients: "daily", "flow", or
// empty for a cooldown.
func (e *LimitError) LimitType() string {
	switch e.Reason {
	case ReasonDailyLimit:
		return "daily"
	case ReasonFlowLimit:
		return "flow"
	default:
		return ""
	}
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (e *LimitError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

func (l *Limiter) limitError(d Decision) *LimitError {
	e := &LimitError{Reason: d.Reason, RetryAfter: d.RetryAfter}
	switch d.Reason {
	case ReasonCooldown:
		e.Message = fmt.Sprintf("Please wait %d seconds before requesting a new OTP.", e.RetryAfterSeconds())
	case ReasonDailyLimit:
		hours := int(math.Ceil(d.RetryAfter.Hours()))
		e.Message = fmt.Sprintf("Maximum daily OTP attempts (%d) reached. Please try again in %d hours.", l.cfg.MaxPerDay, hours)
	case ReasonFlowLimit:
		e.Message = fmt.Sprintf("Maximum OTP attempts (%d) reached for this verification. Please try a different method or contact support.", l.cfg.MaxPerFlow)
	}
	return e
}
