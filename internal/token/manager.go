package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Validity is the bearer token window. Clients are expected to
	// refresh before this elapses.
	Validity = 24 * time.Hour

	// refreshGrace is how long past expiry a token is still accepted as
	// proof of identity on the refresh endpoint. Beyond it the user must
	// log in again.
	refreshGrace = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("token is not valid")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Manager issues and verifies HMAC-signed bearer tokens and tracks
// revocations through the blacklist.
type Manager struct {
	secret    []byte
	blacklist Blacklist
	nowFunc   func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc overrides the clock, primarily for tests.
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(secret string, blacklist Blacklist, options ...ManagerOption) *Manager {
	m := &Manager{
		secret:    []byte(secret),
		blacklist: blacklist,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Issue creates a token for userID, valid for Validity from now.
func (m *Manager) Issue(userID string) (string, error) {
	now := m.nowFunc()
	claims := jwt.RegisteredClaims{
		// The jti keeps two tokens for the same user distinct even when
		// issued within the same second, so rotation always rotates.
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(Validity)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and the blacklist, returning the
// subject user id.
func (m *Manager) Verify(ctx context.Context, tokenStr string) (string, error) {
	userID, err := m.parse(tokenStr, false)
	if err != nil {
		return "", err
	}

	revoked, err := m.blacklist.IsRevoked(ctx, tokenStr)
	if err != nil {
		return "", fmt.Errorf("blacklist lookup failed: %w", err)
	}
	if revoked {
		return "", ErrRevokedToken
	}

	return userID, nil
}

// Refresh exchanges a token for a fresh one. The old token may already
// be expired, up to refreshGrace, because clients refresh reactively
// when they notice expiry. The old token is revoked so it cannot be
// replayed.
func (m *Manager) Refresh(ctx context.Context, tokenStr string) (string, error) {
	userID, err := m.parse(tokenStr, true)
	if err != nil {
		return "", err
	}

	revoked, err := m.blacklist.IsRevoked(ctx, tokenStr)
	if err != nil {
		return "", fmt.Errorf("blacklist lookup failed: %w", err)
	}
	if revoked {
		return "", ErrRevokedToken
	}

	if err := m.Revoke(ctx, tokenStr); err != nil {
		return "", err
	}

	return m.Issue(userID)
}

// Revoke blacklists a token for the remainder of its acceptance window.
func (m *Manager) Revoke(ctx context.Context, tokenStr string) error {
	// Keep the entry until even the refresh grace has passed.
	if err := m.blacklist.Revoke(ctx, tokenStr, Validity+refreshGrace); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (m *Manager) parse(tokenStr string, allowExpired bool) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	if allowExpired {
		if claims.ExpiresAt == nil {
			return "", ErrInvalidToken
		}
		if m.nowFunc().After(claims.ExpiresAt.Time.Add(refreshGrace)) {
			return "", ErrExpiredToken
		}
	}

	return claims.Subject, nil
}
