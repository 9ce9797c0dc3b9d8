package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. User, reset-token and email-log rows are
// keyed by it in both the SQL and DynamoDB stores.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
