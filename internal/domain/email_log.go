package domain

import "time"

// Email delivery outcomes.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// Email kinds recorded in the log.
const (
	EmailTypeSignup        = "signup"
	EmailTypeLogin         = "login"
	EmailTypeResend        = "resend"
	EmailTypePasswordReset = "reset_password"
)

// EmailLog records one outbound email attempt.
type EmailLog struct {
	ID      string    `json:"id" db:"id" dynamodbav:"id"`
	ToEmail string    `json:"to_email" db:"to_email" dynamodbav:"to_email"`
	Subject string    `json:"subject" db:"subject" dynamodbav:"subject"`
	OTP     *string   `json:"-" db:"otp" dynamodbav:"otp,omitempty"`
	Type    string    `json:"type" db:"type" dynamodbav:"type"`
	Status  string    `json:"status" db:"status" dynamodbav:"status"`
	SentAt  time.Time `json:"sent_at" db:"sent_at" dynamodbav:"sent_at"`
}

// OTPEmail asks for a verification code email.
type OTPEmail struct {
	ToEmail  string `json:"to_email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required"`
	FullName string `json:"full_name"`
	Type     string `json:"type"`
}

// ResetEmail asks for a password-reset link email.
type ResetEmail struct {
	ToEmail  string `json:"to_email" validate:"required,email"`
	ResetURL string `json:"reset_url" validate:"required,url"`
	FullName string `json:"full_name"`
}
