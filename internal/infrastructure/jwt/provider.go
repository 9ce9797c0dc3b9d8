package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/go-auth-otp/internal/config"
)

// Token audiences. A token minted for one audience never verifies as another.
const (
	AudienceAccess  = "access"
	AudienceRefresh = "refresh"
	AudienceReset   = "password-reset"
)

// AccessClaims is the payload of a short-lived access token.
type AccessClaims struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	AuthProvider string `json:"auth_provider"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. The registered ID is a
// random UUID so two tokens minted in the same second still differ.
type RefreshClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a password-reset token.
type ResetClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 JWTs.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{privateKey: privKey, publicKey: pubKey, issuer: cfg.JWTIssuer}, nil
}

// NewProviderFromKey builds a Provider around an in-memory key pair.
func NewProviderFromKey(key *rsa.PrivateKey, issuer string) *Provider {
	return &Provider{privateKey: key, publicKey: &key.PublicKey, issuer: issuer}
}

func (p *Provider) SignAccess(userID, email, authProvider string, ttl time.Duration) (string, time.Time, error) {
	reg := p.registered(AudienceAccess, userID, ttl)
	tok, err := p.sign(AccessClaims{UserID: userID, Email: email, AuthProvider: authProvider, RegisteredClaims: reg})
	return tok, reg.ExpiresAt.Time, err
}

func (p *Provider) SignRefresh(userID string, ttl time.Duration) (string, time.Time, error) {
	reg := p.registered(AudienceRefresh, userID, ttl)
	tok, err := p.sign(RefreshClaims{UserID: userID, RegisteredClaims: reg})
	return tok, reg.ExpiresAt.Time, err
}

func (p *Provider) SignReset(userID, email string, ttl time.Duration) (string, time.Time, error) {
	reg := p.registered(AudienceReset, userID, ttl)
	tok, err := p.sign(ResetClaims{UserID: userID, Email: email, RegisteredClaims: reg})
	return tok, reg.ExpiresAt.Time, err
}

func (p *Provider) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := p.verify(tokenStr, claims, AudienceAccess); err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *Provider) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := p.verify(tokenStr, claims, AudienceRefresh); err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *Provider) VerifyReset(tokenStr string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := p.verify(tokenStr, claims, AudienceReset); err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *Provider) registered(audience, subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    p.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (p *Provider) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	s, err := token.SignedString(p.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (p *Provider) verify(tokenStr string, claims jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	},
		jwt.WithAudience(audience),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token claims")
	}
	return nil
}
