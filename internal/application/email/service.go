package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/id"
	"github.com/go-auth-otp/internal/pkg/validate"
)

// Subjects as sent, and as recorded in the email log.
const (
	otpSubject      = "Your Verification Code"
	otpLogSubject   = "Your Verification Code"
	resetSubject    = "Reset Your Password"
	resetLogSubject = "Password Reset Request"
)

// Mailer delivers a rendered HTML email.
type Mailer interface {
	SendHTML(ctx context.Context, to, subject, html string) error
}

// LogStore records every delivery attempt.
type LogStore interface {
	Create(ctx context.Context, l *domain.EmailLog) error
}

type ServiceDeps struct {
	Mailer        Mailer
	Logs          LogStore
	Product       string
	CodeValidity  time.Duration
	ResetValidity time.Duration
}

// Service renders and sends the transactional emails and logs the outcome.
type Service struct {
	mailer        Mailer
	logs          LogStore
	product       string
	codeValidity  time.Duration
	resetValidity time.Duration
}

func NewService(deps ServiceDeps) *Service {
	return &Service{
		mailer:        deps.Mailer,
		logs:          deps.Logs,
		product:       deps.Product,
		codeValidity:  deps.CodeValidity,
		resetValidity: deps.ResetValidity,
	}
}

func (s *Service) SendOTP(ctx context.Context, msg domain.OTPEmail) error {
	if err := validate.Struct(msg); err != nil {
		return domain.NewError(domain.ErrBadRequest, "Email and OTP are required")
	}
	if msg.Type == "" {
		msg.Type = domain.EmailTypeSignup
	}
	html, err := render(otpTemplate, otpView{
		Product:  s.product,
		FullName: msg.FullName,
		OTP:      msg.OTP,
		Validity: humanize(s.codeValidity),
	})
	if err != nil {
		return err
	}
	code := msg.OTP
	return s.deliver(ctx, msg.ToEmail, otpSubject, otpLogSubject, html, msg.Type, &code)
}

func (s *Service) SendPasswordReset(ctx context.Context, msg domain.ResetEmail) error {
	if err := validate.Struct(msg); err != nil {
		return domain.NewError(domain.ErrBadRequest, "Email and reset URL are required")
	}
	u, err := url.Parse(msg.ResetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.NewError(domain.ErrBadRequest, "Email and reset URL are required")
	}
	html, err := render(resetTemplate, resetView{
		Product:  s.product,
		FullName: msg.FullName,
		ResetURL: template.URL(u.String()),
		Validity: humanize(s.resetValidity),
	})
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg.ToEmail, resetSubject, resetLogSubject, html, domain.EmailTypePasswordReset, nil)
}

func (s *Service) deliver(ctx context.Context, to, subject, logSubject, html, kind string, otp *string) error {
	if s.product != "" {
		subject += " - " + s.product
	}
	sendErr := s.mailer.SendHTML(ctx, to, subject, html)

	status := domain.EmailStatusSent
	if sendErr != nil {
		status = domain.EmailStatusFailed
	}
	entry := &domain.EmailLog{
		ID:      id.New(),
		ToEmail: to,
		Subject: logSubject,
		OTP:     otp,
		Type:    kind,
		Status:  status,
		SentAt:  time.Now().UTC(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		slog.Warn("could not write email log", "email", to, "type", kind, "err", err)
	}

	if sendErr != nil {
		return fmt.Errorf("send %s email: %w", kind, sendErr)
	}
	return nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// humanize prints a validity window the way the email copy reads it.
func humanize(d time.Duration) string {
	switch {
	case d <= 0:
		return "a few minutes"
	case d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return fmt.Sprintf("%d seconds", d/time.Second)
	}
}
