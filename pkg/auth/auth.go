// Package auth provides access-token sources for the MySkoda REST client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken means the provider has no token to hand out.
	ErrNoToken = errors.New("no access token available")
	// ErrTokenExpired means a stored token is past its expiry.
	ErrTokenExpired = errors.New("access token expired")
)

// Provider hands out bearer tokens.
type Provider interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenStore is the persistence a Stored provider reads from.
type TokenStore interface {
	LoadToken(key string) (token string, expiresAt time.Time, ok bool, err error)
}

// Static returns the same token on every call.
type Static string

// AccessToken implements Provider.
func (s Static) AccessToken(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Stored reads a token persisted in a TokenStore.
type Stored struct {
	store TokenStore
	key   string
	now   func() time.Time
}

// NewStored builds a Stored provider for key.
func NewStored(store TokenStore, key string) *Stored {
	return &Stored{store: store, key: key, now: time.Now}
}

// AccessToken implements Provider.
func (s *Stored) AccessToken(ctx context.Context) (string, error) {
	if s == nil || s.store == nil {
		return "", ErrNoToken
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, expiresAt, ok, err := s.store.LoadToken(s.key)
	if err != nil {
		return "", fmt.Errorf("load token %q: %w", s.key, err)
	}
	if !ok || token == "" {
		return "", fmt.Errorf("%w under key %q", ErrNoToken, s.key)
	}
	if !expiresAt.IsZero() && !expiresAt.After(s.now()) {
		return "", fmt.Errorf("%w at %s", ErrTokenExpired, expiresAt.UTC().Format(time.RFC3339))
	}
	return token, nil
}

// Chain tries each provider in order and returns the first token.
type Chain []Provider

// AccessToken implements Provider.
func (c Chain) AccessToken(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c {
		if p == nil {
			continue
		}
		token, err := p.AccessToken(ctx)
		if err == nil {
			return token, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", ErrNoToken
	}
	return "", errors.Join(errs...)
}

// ExpiryFromJWT reads the exp claim of token without verifying its signature.
// ok is false when the token carries no exp claim.
func ExpiryFromJWT(token string) (time.Time, bool, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parse jwt: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}
