package domain

import "time"

// Authentication providers.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

type User struct {
	UserID       string    `json:"user_id" db:"user_id" dynamodbav:"user_id"`
	FullName     string    `json:"full_name" db:"full_name" dynamodbav:"full_name"`
	Email        string    `json:"email" db:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" db:"password_hash" dynamodbav:"password_hash"`
	GoogleID     string    `json:"-" db:"google_id" dynamodbav:"google_id"`
	AuthProvider string    `json:"auth_provider" db:"auth_provider" dynamodbav:"auth_provider"` // "email" | "google"
	Verified     bool      `json:"user_verified" db:"user_verified" dynamodbav:"user_verified"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" dynamodbav:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

func (u *User) IsGoogle() bool { return u.AuthProvider == ProviderGoogle }
