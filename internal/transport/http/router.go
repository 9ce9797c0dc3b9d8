package http

import (
	"net/http"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/application/lockout"
	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/application/token"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/transport/http/handler"
	appmiddleware "github.com/go-auth-otp/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewAuthService wires the auth service from its infrastructure.
func NewAuthService(cfg *config.Config, deps *Deps) *auth.Service {
	otpCfg := otp.Config{
		MaxPerFlow:  cfg.OTPMaxAttemptsPerFlow,
		MaxPerDay:   cfg.OTPMaxAttemptsPerDay,
		Cooldown:    cfg.OTPCooldown(),
		CodeTTL:     cfg.OTPExpiry(),
		FlowBuffer:  cfg.OTPFlowBuffer(),
		DailyWindow: cfg.OTPResetWindow(),
	}
	lockCfg := lockout.Config{
		Threshold: cfg.LoginLockoutThreshold,
		Window:    cfg.LoginLockoutWindow,
		Duration:  cfg.LoginLockoutDuration,
	}
	tokCfg := token.Config{
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		ResetTTL:   cfg.ResetTokenTTL,
	}
	return auth.NewService(auth.ServiceDeps{
		Users:       deps.Users,
		ResetTokens: deps.ResetTokens,
		States:      deps.Cache,
		Limiter:     otp.NewLimiter(deps.Cache, otpCfg),
		Codes:       otp.NewCodes(deps.Cache, otpCfg.CodeTTL),
		Lockout:     lockout.NewGuard(deps.Cache, lockCfg),
		Tokens:      token.NewIssuer(deps.Signer, deps.Cache, tokCfg),
		Mail:        deps.Mail,
		Jobs:        deps.Jobs,
		Google:      deps.Google,
		FrontendURL: cfg.FrontendURL,
	})
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, on the public credential endpoints.
	sensitiveRL := deps.SensitiveRL
	if sensitiveRL == nil {
		sensitiveRL = appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	}

	authSvc := NewAuthService(cfg, deps)

	healthH := handler.NewHealthHandler("Auth service")
	authH := handler.NewAuthHandler(authSvc, handler.Cookies{Secure: cfg.CookieSecure})

	r.Get("/", healthH.Ping)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/signup/send-otp", authH.SignupSendOTP)
			r.Post("/signup/verify-otp", authH.SignupVerifyOTP)
			r.Post("/login", authH.Login)
			r.Post("/resend-otp", authH.ResendOTP)
			r.Post("/forgot-password", authH.ForgotPassword)
			r.Post("/reset-password", authH.ResetPassword)
		})

		r.Get("/validate-reset-token", authH.ValidateResetToken)
		r.Post("/logout", authH.Logout)
		r.Post("/refresh-token", authH.Refresh)
		r.Get("/validate-session", authH.ValidateSession)
		r.Get("/google", authH.GoogleAuthURL)
		r.Get("/google/callback", authH.GoogleCallback)

		r.With(appmiddleware.Auth(authSvc)).Get("/me", authH.Me)
	})

	return r
}
