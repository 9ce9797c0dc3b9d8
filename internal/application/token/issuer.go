package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	pkgtoken "github.com/go-auth-otp/internal/pkg/token"
)

var (
	ErrInvalid = errors.New("token: invalid or expired")
	ErrRevoked = errors.New("token: revoked")
)

// Signer mints and verifies the three token kinds.
type Signer interface {
	SignAccess(userID, email, authProvider string, ttl time.Duration) (string, time.Time, error)
	SignRefresh(userID string, ttl time.Duration) (string, time.Time, error)
	SignReset(userID, email string, ttl time.Duration) (string, time.Time, error)
	VerifyAccess(token string) (*jwtinfra.AccessClaims, error)
	VerifyRefresh(token string) (*jwtinfra.RefreshClaims, error)
	VerifyReset(token string) (*jwtinfra.ResetClaims, error)
}

// Store holds the refresh-token whitelist and the access-token blacklist.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) (int, error)
}

type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

func DefaultConfig() Config {
	return Config{AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour, ResetTTL: time.Hour}
}

// Subject is the identity a token pair is minted for.
type Subject struct {
	UserID       string
	Email        string
	AuthProvider string
}

// Pair is an access token plus the refresh token that can renew it.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SubjectResolver loads the current subject for a user ID when a refresh
// token is redeemed.
type SubjectResolver func(ctx context.Context, userID string) (Subject, error)

// Issuer mints token pairs, whitelists refresh tokens and blacklists revoked
// access tokens.
type Issuer struct {
	signer Signer
	store  Store
	cfg    Config
}

func NewIssuer(signer Signer, store Store, cfg Config) *Issuer {
	return &Issuer{signer: signer, store: store, cfg: cfg}
}

func (i *Issuer) Config() Config { return i.cfg }

// Issue mints a token pair and whitelists the refresh token for its lifetime.
func (i *Issuer) Issue(ctx context.Context, sub Subject) (Pair, error) {
	access, accessExp, err := i.signer.SignAccess(sub.UserID, sub.Email, sub.AuthProvider, i.cfg.AccessTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := i.signer.SignRefresh(sub.UserID, i.cfg.RefreshTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := i.store.SetEX(ctx, whitelistKey(sub.UserID, refresh), "1", i.cfg.RefreshTTL); err != nil {
		return Pair{}, fmt.Errorf("whitelist refresh token: %w", err)
	}
	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess mints a standalone access token.
func (i *Issuer) IssueAccess(sub Subject) (string, time.Time, error) {
	tok, exp, err := i.signer.SignAccess(sub.UserID, sub.Email, sub.AuthProvider, i.cfg.AccessTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue access token: %w", err)
	}
	return tok, exp, nil
}

// VerifyAccess checks the blacklist and then the signature, audience and expiry.
func (i *Issuer) VerifyAccess(ctx context.Context, accessToken string) (*jwtinfra.AccessClaims, error) {
	if accessToken == "" {
		return nil, ErrInvalid
	}
	revoked, err := i.store.Exists(ctx, blacklistKey(accessToken))
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}
	claims, err := i.signer.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return claims, nil
}

// RefreshSubject validates a refresh token and its whitelist entry and
// returns the user ID it belongs to.
func (i *Issuer) RefreshSubject(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrInvalid
	}
	claims, err := i.signer.VerifyRefresh(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	ok, err := i.store.Exists(ctx, whitelistKey(claims.UserID, refreshToken))
	if err != nil {
		return "", fmt.Errorf("check whitelist: %w", err)
	}
	if !ok {
		return "", ErrRevoked
	}
	return claims.UserID, nil
}

// Refresh redeems a whitelisted refresh token for a new access token. The
// refresh token itself is not rotated.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string, resolve SubjectResolver) (string, time.Time, error) {
	userID, err := i.RefreshSubject(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	sub, err := resolve(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	return i.IssueAccess(sub)
}

// Revoke blacklists a still-valid access token for its remaining lifetime
// and removes the refresh token from the whitelist. Tokens that do not
// verify are skipped, so callers can pass whatever the client presented.
func (i *Issuer) Revoke(ctx context.Context, accessToken, refreshToken string) error {
	var errs []error
	if accessToken != "" {
		if claims, err := i.signer.VerifyAccess(accessToken); err == nil && claims.ExpiresAt != nil {
			if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
				if err := i.store.SetEX(ctx, blacklistKey(accessToken), "1", remaining); err != nil {
					errs = append(errs, fmt.Errorf("blacklist access token: %w", err))
				}
			}
		}
	}
	if refreshToken != "" {
		if claims, err := i.signer.VerifyRefresh(refreshToken); err == nil {
			if err := i.store.Del(ctx, whitelistKey(claims.UserID, refreshToken)); err != nil {
				errs = append(errs, fmt.Errorf("drop refresh token: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

// RevokeAllForUser drops every whitelisted refresh token of userID.
// Outstanding access tokens stay valid until they expire.
func (i *Issuer) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := i.store.DelPrefix(ctx, "rt:"+userID+":")
	if err != nil {
		return n, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return n, nil
}

// IssueReset mints a password-reset token.
func (i *Issuer) IssueReset(userID, email string) (string, time.Time, error) {
	tok, exp, err := i.signer.SignReset(userID, email, i.cfg.ResetTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue reset token: %w", err)
	}
	return tok, exp, nil
}

func (i *Issuer) VerifyReset(resetToken string) (*jwtinfra.ResetClaims, error) {
	claims, err := i.signer.VerifyReset(resetToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return claims, nil
}

func whitelistKey(userID, refreshToken string) string {
	return "rt:" + userID + ":" + pkgtoken.Fingerprint(refreshToken)
}

func blacklistKey(accessToken string) string {
	return "bl_token:" + pkgtoken.Fingerprint(accessToken)
}
