package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/go-auth-otp/internal/domain"
)

const resetTokenColumns = `id, user_id, token, expires_at, used, used_at, created_at`

type ResetTokenRepo struct {
	db *sqlx.DB
}

func NewResetTokenRepo(db *sqlx.DB) *ResetTokenRepo {
	return &ResetTokenRepo{db: db}
}

func (r *ResetTokenRepo) Create(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (`+resetTokenColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Token, t.ExpiresAt, t.Used, t.UsedAt, t.CreatedAt,
	)
	if err != nil {
		return mapErr("create reset token", err)
	}
	return nil
}

// GetActive returns the unused, unexpired token row, or domain.ErrNotFound.
func (r *ResetTokenRepo) GetActive(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.db.GetContext(ctx, &t,
		`SELECT `+resetTokenColumns+` FROM password_reset_tokens WHERE token = $1 AND used = FALSE AND expires_at > $2`,
		token, now,
	)
	if err != nil {
		return nil, mapErr("get reset token", err)
	}
	return &t, nil
}

// MarkUsed flips an unused token to used. A token already used reports
// domain.ErrNotFound, so only one caller can redeem it.
func (r *ResetTokenRepo) MarkUsed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = TRUE, used_at = $2 WHERE id = $1 AND used = FALSE`,
		id, at,
	)
	if err != nil {
		return mapErr("mark reset token used", err)
	}
	return expectOne("mark reset token used", res)
}

// Release returns a claimed token to the unused state.
func (r *ResetTokenRepo) Release(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = FALSE, used_at = NULL WHERE id = $1`,
		id,
	)
	if err != nil {
		return mapErr("release reset token", err)
	}
	return expectOne("release reset token", res)
}
