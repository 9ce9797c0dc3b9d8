package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Codes holds at most one live, hashed code per identity.
type Codes struct {
	store Store
	ttl   time.Duration
	cost  int
}

func NewCodes(store Store, ttl time.Duration) *Codes {
	return &Codes{store: store, ttl: ttl, cost: bcrypt.DefaultCost}
}

// Issue generates a fresh 6-digit code, replacing any earlier one, and
// returns the plaintext for delivery.
func (c *Codes) Issue(ctx context.Context, identity string) (string, error) {
	code, err := Generate()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), c.cost)
	if err != nil {
		return "", fmt.Errorf("otp: hash code: %w", err)
	}
	if err := c.store.SetEX(ctx, codeKey(identity), string(hash), c.ttl); err != nil {
		return "", fmt.Errorf("otp: store code: %w", err)
	}
	return code, nil
}

// Verify checks code against the live code for identity and consumes it on
// success. A mismatch leaves the code in place.
func (c *Codes) Verify(ctx context.Context, identity, code string) error {
	hash, ok, err := c.store.Get(ctx, codeKey(identity))
	if err != nil {
		return fmt.Errorf("otp: load code: %w", err)
	}
	if !ok {
		return ErrCodeExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrCodeMismatch
		}
		return fmt.Errorf("otp: compare code: %w", err)
	}
	if err := c.store.Del(ctx, codeKey(identity)); err != nil {
		return fmt.Errorf("otp: consume code: %w", err)
	}
	return nil
}

// Generate returns a uniformly random code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
