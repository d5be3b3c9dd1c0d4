package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/GlensonAnsin/lumina/internal/ids"
)

const refreshTokenBytes = 32

// Tokens is the refresh-token registry. Refresh tokens are opaque
// high-entropy strings, stateful and revocable, in contrast to the stateless
// access tokens minted by TokenCodec.
type Tokens struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewTokens wires the registry to its persistence.
func NewTokens(store Store, ttl time.Duration) *Tokens {
	return &Tokens{store: store, ttl: ttl, now: time.Now}
}

// Issue generates a fresh opaque token for the user, persists it with
// revoked=false and expiry now+ttl, and returns the raw value. The raw value
// is never derivable again; callers must hand it to the client immediately.
func (t *Tokens) Issue(ctx context.Context, userID string) (string, *RefreshToken, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, err
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	rec := &RefreshToken{
		ID:        ids.New(),
		UserID:    userID,
		Token:     raw,
		ExpiresAt: t.now().UTC().Add(t.ttl),
	}
	if err := t.store.RefreshTokens(ctx).Create(ctx, rec); err != nil {
		return "", nil, err
	}
	return raw, rec, nil
}

// Validate resolves the raw value to its non-revoked row. Expired rows are
// revoked on first detection rather than swept proactively, then reported as
// ErrExpiredToken.
func (t *Tokens) Validate(ctx context.Context, raw string) (*RefreshToken, error) {
	if raw == "" {
		return nil, ErrNotFound
	}
	store := t.store.RefreshTokens(ctx)
	rec, err := store.FindByToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !t.now().UTC().Before(rec.ExpiresAt) {
		if err := store.MarkRevoked(ctx, raw); err != nil {
			return nil, err
		}
		return nil, ErrExpiredToken
	}
	return rec, nil
}

// Revoke flips the revoked flag. It is idempotent and succeeds silently for
// unknown or already-revoked tokens, so logout never leaks token validity.
func (t *Tokens) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return t.store.RefreshTokens(ctx).MarkRevoked(ctx, raw)
}
