package domain

import "time"

// PasswordResetToken is the persisted record of a password-reset link.
// A token is usable once, and only before ExpiresAt.
type PasswordResetToken struct {
	ID        string     `json:"id" db:"id" dynamodbav:"id"`
	UserID    string     `json:"user_id" db:"user_id" dynamodbav:"user_id"`
	Token     string     `json:"-" db:"token" dynamodbav:"token"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at" dynamodbav:"expires_at"`
	Used      bool       `json:"used" db:"used" dynamodbav:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at" dynamodbav:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" dynamodbav:"created_at"`
}

// Usable reports whether the token can still be redeemed at now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
