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

	"github.com/go-auth-otp/internal/application/email"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/infrastructure/dynamo"
	"github.com/go-auth-otp/internal/infrastructure/postgres"
	"github.com/go-auth-otp/internal/infrastructure/smtp"
	"github.com/go-auth-otp/internal/transport/http/mailapi"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.IsDevelopment() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	ctx := context.Background()

	var logs email.LogStore
	switch cfg.StoreDriver {
	case config.StoreDriverDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("dynamo: %v", err)
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		logs = dynamo.NewEmailLogRepo(client, cfg.DynamoTables.EmailLogs)
	default:
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		if cfg.DBMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		logs = postgres.NewEmailLogRepo(db)
	}

	svc := email.NewService(email.ServiceDeps{
		Mailer:        smtp.NewMailer(cfg),
		Logs:          logs,
		Product:       cfg.EmailProductName,
		CodeValidity:  cfg.OTPExpiry(),
		ResetValidity: cfg.ResetTokenTTL,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.EmailServicePort),
		Handler:      mailapi.NewRouter(svc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Email service starting on :%s", cfg.EmailServicePort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down email service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("Email service stopped")
}
