package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL via database/sql.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(context context.Context) UserStore { return &userStore{db: s.db} }
func (s *PGStore) RefreshTokens(context context.Context) RefreshTokenStore {
	return &refreshTokenStore{db: s.db}
}

const uniqueViolation = "23505"

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *User) error {
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, firstname, lastname, email, password, role)
		 values($1,$2,$3,$4,$5,$6)
		 returning created_at, updated_at`,
		u.ID, u.Firstname, u.Lastname, u.Email, u.PasswordHash, u.Role,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapPGError(err)
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, firstname, lastname, email, password, role, is_deleted, created_at, updated_at
		 from users where id=$1 and is_deleted=false`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, firstname, lastname, email, password, role, is_deleted, created_at, updated_at
		 from users where email=$1 and is_deleted=false`, email)
	return scanUser(row)
}

func (s *userStore) List(ctx context.Context, limit, offset int) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, firstname, lastname, email, password, role, is_deleted, created_at, updated_at
		 from users where is_deleted=false order by created_at asc limit $1 offset $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where is_deleted=false`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Firstname, &u.Lastname, &u.Email, &u.PasswordHash,
		&u.Role, &u.Deleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Refresh token store ------------------------------------------------------
type refreshTokenStore struct{ db *sql.DB }

func (s *refreshTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	row := s.db.QueryRowContext(ctx,
		`insert into refresh_tokens(id, user_id, token, expires_at)
		 values($1,$2,$3,$4)
		 returning created_at, updated_at`,
		tok.ID, tok.UserID, tok.Token, tok.ExpiresAt,
	)
	if err := row.Scan(&tok.CreatedAt, &tok.UpdatedAt); err != nil {
		return mapPGError(err)
	}
	return nil
}

func (s *refreshTokenStore) FindByToken(ctx context.Context, token string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token, expires_at, revoked, created_at, updated_at
		 from refresh_tokens where token=$1 and revoked=false`, token)
	var t RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.Revoked, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *refreshTokenStore) MarkRevoked(ctx context.Context, token string) error {
	// revoked is monotone: the predicate keeps the update idempotent under
	// concurrent logouts.
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked=true, updated_at=now() where token=$1 and revoked=false`,
		token)
	return err
}
