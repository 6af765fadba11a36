package callkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshSkew is how long before expiry a refreshing credential fetches
// a new token.
const refreshSkew = 2 * time.Minute

// TokenCredential supplies the bearer token the engine authenticates
// with. The token content is opaque to the SDK; only the expiry claim is
// inspected, and only to schedule refreshes.
type TokenCredential interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredential wraps a fixed token. Suitable for short-lived tools
// and tests; long-running applications should use RefreshingCredential.
type StaticCredential struct {
	token string
}

// NewStaticCredential creates a credential from a fixed token.
func NewStaticCredential(token string) (*StaticCredential, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}
	return &StaticCredential{token: token}, nil
}

// Token returns the wrapped token.
func (c *StaticCredential) Token(ctx context.Context) (string, error) {
	return c.token, nil
}

// RefreshCallback fetches a fresh token from the application's identity
// service.
type RefreshCallback func(ctx context.Context) (string, error)

// RefreshingCredential serves a JWT and transparently replaces it via
// the refresh callback shortly before its exp claim. Tokens are parsed
// unverified: signature validation is the calling service's job, the
// SDK only needs the expiry.
type RefreshingCredential struct {
	refresh RefreshCallback

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewRefreshingCredential creates a credential from an initial token and
// a refresh callback.
func NewRefreshingCredential(initial string, refresh RefreshCallback) (*RefreshingCredential, error) {
	if initial == "" {
		return nil, errors.New("initial token cannot be empty")
	}
	if refresh == nil {
		return nil, errors.New("refresh callback cannot be nil")
	}

	expiresAt, err := tokenExpiry(initial)
	if err != nil {
		return nil, fmt.Errorf("parse initial token: %w", err)
	}
	return &RefreshingCredential{
		refresh:   refresh,
		token:     initial,
		expiresAt: expiresAt,
	}, nil
}

// Token returns the current token, refreshing it first when it is
// within the skew window of its expiry.
func (c *RefreshingCredential) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expiresAt.IsZero() || time.Now().Before(c.expiresAt.Add(-refreshSkew)) {
		return c.token, nil
	}

	fresh, err := c.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	expiresAt, err := tokenExpiry(fresh)
	if err != nil {
		return "", fmt.Errorf("parse refreshed token: %w", err)
	}

	c.token = fresh
	c.expiresAt = expiresAt
	return c.token, nil
}

// tokenExpiry extracts the exp claim. A token without one never
// triggers a refresh.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
