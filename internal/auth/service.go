package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Service orchestrates login, refresh and logout. It holds no mutable state
// between calls; everything lives in the injected store, so concurrent
// requests only rely on row-level consistency underneath.
type Service struct {
	store  Store
	codec  *TokenCodec
	tokens *Tokens
	now    func() time.Time

	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// ServiceOption configures Service construction.
type ServiceOption func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the auth service around a store and signing secret.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	svc := &Service{
		store:      store,
		secret:     secret,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	codec, err := NewTokenCodec(secret, svc.accessTTL)
	if err != nil {
		return nil, err
	}
	codec.now = svc.now
	svc.codec = codec
	svc.tokens = NewTokens(store, svc.refreshTTL)
	svc.tokens.now = svc.now
	return svc, nil
}

// Login verifies credentials and issues a fresh access/refresh pair. Unknown
// email and wrong password are indistinguishable to the caller: both return
// ErrInvalidCredentials, and both cost one bcrypt comparison.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		equalizeTiming(password)
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			equalizeTiming(password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	accessToken, accessExp, err := s.codec.Sign(user)
	if err != nil {
		return LoginResult{}, err
	}
	// A fresh row per login; rows are never reused between sessions.
	raw, rec, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		User: user,
		TokenPair: TokenPair{
			AccessToken:      accessToken,
			RefreshToken:     raw,
			AccessExpiresAt:  accessExp,
			RefreshExpiresAt: rec.ExpiresAt,
		},
	}, nil
}

// Refresh exchanges a still-valid refresh token for a new access token. The
// refresh token itself is not rotated: it stays valid until its own expiry or
// an explicit logout.
func (s *Service) Refresh(ctx context.Context, raw string) (string, time.Time, error) {
	rec, err := s.tokens.Validate(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpiredToken) {
			return "", time.Time{}, ErrInvalidRefreshToken
		}
		return "", time.Time{}, err
	}
	user, err := s.store.Users(ctx).Find(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, ErrUserNotFound
		}
		return "", time.Time{}, err
	}
	return s.codec.Sign(user)
}

// Logout revokes the refresh token. It reports success whether or not the
// token ever existed.
func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.tokens.Revoke(ctx, raw)
}

// Authenticate validates a bearer access token and loads its user. Used by
// the HTTP middleware on protected routes.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}
