package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/application/email"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/infrastructure/cache"
	"github.com/go-auth-otp/internal/infrastructure/dynamo"
	"github.com/go-auth-otp/internal/infrastructure/google"
	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	"github.com/go-auth-otp/internal/infrastructure/mailclient"
	"github.com/go-auth-otp/internal/infrastructure/postgres"
	"github.com/go-auth-otp/internal/infrastructure/smtp"
	"github.com/go-auth-otp/internal/infrastructure/sns"
	transporthttp "github.com/go-auth-otp/internal/transport/http"
	appmiddleware "github.com/go-auth-otp/internal/transport/http/middleware"
	"github.com/go-auth-otp/internal/worker"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

type stores struct {
	users       auth.UserStore
	resetTokens auth.ResetTokenStore
	emailLogs   email.LogStore
	close       func() error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	setupLogger(cfg)

	ctx := context.Background()

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer func() {
		if err := st.close(); err != nil {
			slog.Warn("close store", "err", err)
		}
	}()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}

	notifier, err := newNotifier(ctx, cfg, st.emailLogs)
	if err != nil {
		log.Fatalf("email transport: %v", err)
	}

	dispatcher := worker.NewDispatcher(worker.Config{
		Workers:    cfg.EmailWorkers,
		QueueSize:  cfg.EmailQueueSize,
		JobTimeout: cfg.EmailJobTimeout,
	}, slog.Default())

	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	defer sensitiveRL.Stop()

	deps := &transporthttp.Deps{
		Users:       st.users,
		ResetTokens: st.resetTokens,
		Cache:       cache.NewStore(redisClient),
		Signer:      jwtProvider,
		Mail:        notifier,
		Jobs:        dispatcher,
		SensitiveRL: sensitiveRL,
	}
	if cfg.GoogleClientID != "" {
		deps.Google = google.NewOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	} else {
		log.Println("WARN: GOOGLE_CLIENT_ID not set, Google sign-in disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s, email=%s)", cfg.AppPort, cfg.AppEnv, cfg.StoreDriver, cfg.EmailTransport)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	dispatcher.Close()
	if n := dispatcher.Dropped(); n > 0 {
		slog.Warn("email jobs dropped while running", "count", n)
	}
	log.Println("Server stopped")
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsDevelopment() {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(h))
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Create tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return &stores{
			users:       dynamo.NewUserRepo(client, cfg.DynamoTables.Users),
			resetTokens: dynamo.NewResetTokenRepo(client, cfg.DynamoTables.ResetTokens),
			emailLogs:   dynamo.NewEmailLogRepo(client, cfg.DynamoTables.EmailLogs),
			close:       func() error { return nil },
		}, nil
	default:
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &stores{
			users:       postgres.NewUserRepo(db),
			resetTokens: postgres.NewResetTokenRepo(db),
			emailLogs:   postgres.NewEmailLogRepo(db),
			close:       db.Close,
		}, nil
	}
}

// newNotifier selects how emails leave the auth service.
func newNotifier(ctx context.Context, cfg *config.Config, logs email.LogStore) (auth.Notifier, error) {
	switch cfg.EmailTransport {
	case config.EmailTransportHTTP:
		return mailclient.New(cfg.EmailServiceURL, nil, cfg.EmailHTTPTimeout), nil
	case config.EmailTransportSNS:
		p, err := sns.NewPublisher(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return email.NewService(email.ServiceDeps{
			Mailer:        smtp.NewMailer(cfg),
			Logs:          logs,
			Product:       cfg.EmailProductName,
			CodeValidity:  cfg.OTPExpiry(),
			ResetValidity: cfg.ResetTokenTTL,
		}), nil
	}
}
