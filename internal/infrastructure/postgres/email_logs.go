package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/go-auth-otp/internal/domain"
)

type EmailLogRepo struct {
	db *sqlx.DB
}

func NewEmailLogRepo(db *sqlx.DB) *EmailLogRepo {
	return &EmailLogRepo{db: db}
}

func (r *EmailLogRepo) Create(ctx context.Context, l *domain.EmailLog) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO email_logs (id, to_email, subject, otp, type, status, sent_at)
		 VALUES (:id, :to_email, :subject, :otp, :type, :status, :sent_at)`,
		l,
	)
	if err != nil {
		return mapErr("create email log", err)
	}
	return nil
}
