package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// UserStore manages account rows. Lookup methods never return soft-deleted
// users.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, error)
	Count(ctx context.Context) (int, error)
}

// RefreshTokenStore manages refresh token rows. Rows are never hard-deleted
// here; cleanup of stale rows is an external housekeeping concern.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	// FindByToken returns the non-revoked row holding the exact token value.
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	// MarkRevoked flips the revoked flag. It succeeds silently when no
	// matching non-revoked row exists.
	MarkRevoked(ctx context.Context, token string) error
}
