package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/infrastructure/google"
	"github.com/go-auth-otp/internal/worker"
)

// memUsers is an in-memory UserStore keyed by user ID with a unique email index.
type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]string
	// passwordErr, when set, fails UpdatePassword.
	passwordErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}, byEmail: map[string]string{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return domain.ErrConflict
	}
	cp := *u
	m.byID[u.UserID] = &cp
	m.byEmail[u.Email] = u.UserID
	return nil
}

func (m *memUsers) Get(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	id, ok := m.byEmail[email]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *memUsers) update(userID string, fn func(u *domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memUsers) MarkVerified(_ context.Context, userID string) error {
	return m.update(userID, func(u *domain.User) { u.Verified = true })
}

func (m *memUsers) UpdateProfile(_ context.Context, userID, fullName, passwordHash string) error {
	return m.update(userID, func(u *domain.User) {
		u.FullName = fullName
		u.PasswordHash = passwordHash
	})
}

func (m *memUsers) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	if m.passwordErr != nil {
		return m.passwordErr
	}
	return m.update(userID, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (m *memUsers) Touch(_ context.Context, userID string) error {
	return m.update(userID, func(*domain.User) {})
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memResetTokens struct {
	mu   sync.Mutex
	rows map[string]*domain.PasswordResetToken
}

func newMemResetTokens() *memResetTokens {
	return &memResetTokens{rows: map[string]*domain.PasswordResetToken{}}
}

func (m *memResetTokens) Create(_ context.Context, t *domain.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *memResetTokens) GetActive(_ context.Context, token string, now time.Time) (*domain.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Token == token && r.Usable(now) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memResetTokens) MarkUsed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Used {
		return domain.ErrNotFound
	}
	r.Used = true
	r.UsedAt = &at
	return nil
}

func (m *memResetTokens) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Used = false
	r.UsedAt = nil
	return nil
}

func (m *memResetTokens) only(t *testing.T) *domain.PasswordResetToken {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.rows, 1)
	for _, r := range m.rows {
		cp := *r
		return &cp
	}
	return nil
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendOTP(ctx context.Context, msg domain.OTPEmail) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockNotifier) SendPasswordReset(ctx context.Context, msg domain.ResetEmail) error {
	return m.Called(ctx, msg).Error(0)
}

// lastOTP returns the most recent OTP email handed to the notifier.
func (m *mockNotifier) lastOTP(t *testing.T) domain.OTPEmail {
	t.Helper()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "SendOTP" {
			return m.Calls[i].Arguments.Get(1).(domain.OTPEmail)
		}
	}
	t.Fatal("no OTP email sent")
	return domain.OTPEmail{}
}

func (m *mockNotifier) lastReset(t *testing.T) domain.ResetEmail {
	t.Helper()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "SendPasswordReset" {
			return m.Calls[i].Arguments.Get(1).(domain.ResetEmail)
		}
	}
	t.Fatal("no reset email sent")
	return domain.ResetEmail{}
}

// fakeQueue holds jobs until the test runs them.
type fakeQueue struct {
	jobs []worker.Job
	full bool
}

func (q *fakeQueue) Enqueue(job worker.Job) bool {
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

func (q *fakeQueue) runAll(t *testing.T) {
	t.Helper()
	jobs := q.jobs
	q.jobs = nil
	for _, j := range jobs {
		require.NoError(t, j.Run(context.Background()), j.Name)
	}
}

type mockGoogle struct{ mock.Mock }

func (m *mockGoogle) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *mockGoogle) Exchange(ctx context.Context, code string) (*google.Payload, error) {
	args := m.Called(ctx, code)
	if p, _ := args.Get(0).(*google.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
