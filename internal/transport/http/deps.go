package http

import (
	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/application/token"
	"github.com/go-auth-otp/internal/infrastructure/cache"
	appmiddleware "github.com/go-auth-otp/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Users       auth.UserStore
	ResetTokens auth.ResetTokenStore
	Cache       *cache.Store
	Signer      token.Signer
	Mail        auth.Notifier
	Jobs        auth.JobQueue
	// Google is nil when Google sign-in is not configured.
	Google auth.GoogleOAuth
	// SensitiveRL throttles the public credential endpoints. NewRouter creates
	// one when it is nil; the caller owns stopping it.
	SensitiveRL *appmiddleware.RateLimiter
}
