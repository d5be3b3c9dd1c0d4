package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/GlensonAnsin/lumina/internal/ids"
)

const (
	defaultRole = "user"

	minNameLength     = 2
	minPasswordLength = 8
)

// CreateUserInput is the transient payload for account creation. The
// plaintext password exists only for the duration of the call.
type CreateUserInput struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// CreateUser validates input, hashes the password and persists the account.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	in.Firstname = strings.TrimSpace(in.Firstname)
	in.Lastname = strings.TrimSpace(in.Lastname)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Role = strings.TrimSpace(strings.ToLower(in.Role))

	if len(in.Firstname) < minNameLength || len(in.Lastname) < minNameLength {
		return nil, fmt.Errorf("%w: names must be at least %d characters", ErrInvalidInput, minNameLength)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if in.Role == "" {
		in.Role = defaultRole
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           ids.New(),
		Firstname:    in.Firstname,
		Lastname:     in.Lastname,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns one page of accounts plus pagination meta. Soft-deleted
// users are excluded by the store.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]*User, PageMeta, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	offset := (page - 1) * perPage

	users := s.store.Users(ctx)
	total, err := users.Count(ctx)
	if err != nil {
		return nil, PageMeta{}, err
	}
	rows, err := users.List(ctx, perPage, offset)
	if err != nil {
		return nil, PageMeta{}, err
	}

	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	meta := PageMeta{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
		From:        offset + 1,
		To:          offset + len(rows),
	}
	if len(rows) == 0 {
		meta.From = 0
		meta.To = 0
	}
	return rows, meta, nil
}
