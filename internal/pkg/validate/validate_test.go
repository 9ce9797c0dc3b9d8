package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signupInput struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	OTP      string `json:"otp" validate:"omitempty,len=6,numeric"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(signupInput{FullName: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestStruct_MessagesUseJSONNames(t *testing.T) {
	err := Struct(signupInput{Email: "not-an-email", Password: "abc", OTP: "12ab56"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "full_name is required")
		assert.Contains(t, err.Error(), "email must be a valid email address")
		assert.Contains(t, err.Error(), "password must be at least 6 characters")
		assert.Contains(t, err.Error(), "otp must contain only digits")
	}
}
