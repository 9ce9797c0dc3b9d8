package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-auth-otp/internal/application/lockout"
	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/application/token"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/infrastructure/google"
	"github.com/go-auth-otp/internal/worker"
)

const minPasswordLen = 6

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkVerified(ctx context.Context, userID string) error
	UpdateProfile(ctx context.Context, userID, fullName, passwordHash string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	Touch(ctx context.Context, userID string) error
}

type ResetTokenStore interface {
	Create(ctx context.Context, t *domain.PasswordResetToken) error
	GetActive(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
	Release(ctx context.Context, id string) error
}

// StateStore keeps single-use OAuth state values.
type StateStore interface {
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, bool, error)
}

// Notifier delivers transactional email.
type Notifier interface {
	SendOTP(ctx context.Context, msg domain.OTPEmail) error
	SendPasswordReset(ctx context.Context, msg domain.ResetEmail) error
}

type JobQueue interface {
	Enqueue(job worker.Job) bool
}

type GoogleOAuth interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*google.Payload, error)
}

// ServiceDeps wires the service. Google may be nil when Google sign-in is not
// configured.
type ServiceDeps struct {
	Users        UserStore
	ResetTokens  ResetTokenStore
	States       StateStore
	Limiter      *otp.Limiter
	Codes        *otp.Codes
	Lockout      *lockout.Guard
	Tokens       *token.Issuer
	Mail         Notifier
	Jobs         JobQueue
	Google       GoogleOAuth
	FrontendURL  string
	PasswordCost int // bcrypt cost; zero means bcrypt.DefaultCost
}

// Service implements every authentication use case. Methods return plain
// results or errors; cookies and status codes are the transport's job.
type Service struct {
	users       UserStore
	resetTokens ResetTokenStore
	states      StateStore
	limiter     *otp.Limiter
	codes       *otp.Codes
	lockout     *lockout.Guard
	tokens      *token.Issuer
	mail        Notifier
	jobs        JobQueue
	google      GoogleOAuth
	frontendURL string
	cost        int
	now         func() time.Time
}

func NewService(d ServiceDeps) *Service {
	cost := d.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:       d.Users,
		resetTokens: d.ResetTokens,
		states:      d.States,
		limiter:     d.Limiter,
		codes:       d.Codes,
		lockout:     d.Lockout,
		tokens:      d.Tokens,
		mail:        d.Mail,
		jobs:        d.Jobs,
		google:      d.Google,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		cost:        cost,
		now:         time.Now,
	}
}

// Attempts reports OTP usage after a code was issued.
type Attempts struct {
	AttemptsUsed           int64 `json:"attemptsUsed"`
	AttemptsRemaining      int64 `json:"attemptsRemaining"`
	DailyAttemptsUsed      int64 `json:"dailyAttemptsUsed"`
	DailyAttemptsRemaining int64 `json:"dailyAttemptsRemaining"`
}

// Session is a signed-in user with a fresh token pair.
type Session struct {
	User   *domain.User
	Tokens token.Pair
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) attempts(u otp.Usage) Attempts {
	flow, daily := s.limiter.Remaining(u)
	return Attempts{
		AttemptsUsed:           u.FlowCount,
		AttemptsRemaining:      flow,
		DailyAttemptsUsed:      u.DailyCount,
		DailyAttemptsRemaining: daily,
	}
}

// issueCode rate-limits, stores and records a new code for email under flow.
func (s *Service) issueCode(ctx context.Context, email string, flow otp.Flow) (string, Attempts, error) {
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return "", Attempts{}, err
	}
	usage, err := s.limiter.Record(ctx, email, flow)
	if err != nil {
		return "", Attempts{}, err
	}
	return code, s.attempts(usage), nil
}

// sendAsync hands an email to the background queue. The request never waits
// for delivery and a failed send is only logged.
func (s *Service) sendAsync(name, to string, send func(ctx context.Context) error) {
	if s.jobs.Enqueue(worker.Job{Name: name, Run: send}) {
		return
	}
	slog.Warn("email job not queued", "job", name, "email", to)
}

func (s *Service) sendOTPAsync(u *domain.User, code, kind string) {
	msg := domain.OTPEmail{ToEmail: u.Email, OTP: code, FullName: u.FullName, Type: kind}
	s.sendAsync("send-otp:"+kind, u.Email, func(ctx context.Context) error {
		return s.mail.SendOTP(ctx, msg)
	})
}

func (s *Service) userByEmail(ctx context.Context, email, notFound string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.ErrNotFound, notFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func subjectOf(u *domain.User) token.Subject {
	return token.Subject{UserID: u.UserID, Email: u.Email, AuthProvider: u.AuthProvider}
}

func (s *Service) startSession(ctx context.Context, u *domain.User) (*Session, error) {
	pair, err := s.tokens.Issue(ctx, subjectOf(u))
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Tokens: pair}, nil
}
