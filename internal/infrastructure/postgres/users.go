package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/go-auth-otp/internal/domain"
)

const userColumns = `user_id, full_name, email, password_hash, google_id, auth_provider, user_verified, created_at, updated_at`

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.UserID, u.FullName, u.Email, u.PasswordHash, u.GoogleID, u.AuthProvider, u.Verified, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return mapErr("create user", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID); err != nil {
		return nil, mapErr("get user", err)
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email); err != nil {
		return nil, mapErr("get user by email", err)
	}
	return &u, nil
}

func (r *UserRepo) MarkVerified(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET user_verified = TRUE, updated_at = $2 WHERE user_id = $1`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return mapErr("mark user verified", err)
	}
	return expectOne("mark user verified", res)
}

// UpdateProfile rewrites the name and password hash of an account that has
// not completed verification yet.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID, fullName, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = $2, password_hash = $3, updated_at = $4 WHERE user_id = $1`,
		userID, fullName, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		return mapErr("update user profile", err)
	}
	return expectOne("update user profile", res)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE user_id = $1`,
		userID, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		return mapErr("update user password", err)
	}
	return expectOne("update user password", res)
}

// Touch bumps updated_at.
func (r *UserRepo) Touch(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET updated_at = $2 WHERE user_id = $1`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return mapErr("touch user", err)
	}
	return expectOne("touch user", res)
}
