package auth

import "errors"

var (
	// ErrNotFound is returned by stores when no row matches.
	ErrNotFound = errors.New("auth: not found")
	// ErrAlreadyExists is returned when a unique constraint is violated.
	ErrAlreadyExists = errors.New("auth: already exists")
	// ErrInvalidInput rejects malformed data before it reaches a store.
	ErrInvalidInput = errors.New("auth: invalid input")

	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two cases deliberately share one error so responses cannot be used
	// to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers missing, revoked and expired refresh
	// tokens without revealing which.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUserNotFound signals the owning user vanished after token issuance.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken indicates an access token failed validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token whose lifetime has elapsed.
	ErrExpiredToken = errors.New("token expired")
)
