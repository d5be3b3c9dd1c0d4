package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store used to exercise the service without a
// database.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*User
	tokens map[string]*RefreshToken
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*User),
		tokens: make(map[string]*RefreshToken),
	}
}

func (m *memStore) Users(context.Context) UserStore                 { return (*memUserStore)(m) }
func (m *memStore) RefreshTokens(context.Context) RefreshTokenStore { return (*memTokenStore)(m) }

type memUserStore memStore

func (m *memUserStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrAlreadyExists
		}
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *memUserStore) Find(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Deleted {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && !u.Deleted {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUserStore) List(_ context.Context, limit, offset int) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*User
	for _, u := range m.users {
		if !u.Deleted {
			clone := *u
			all = append(all, &clone)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memUserStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if !u.Deleted {
			n++
		}
	}
	return n, nil
}

type memTokenStore memStore

func (m *memTokenStore) Create(_ context.Context, tok *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.tokens[tok.Token]; dup {
		return ErrAlreadyExists
	}
	tok.CreatedAt = time.Now().UTC()
	tok.UpdatedAt = tok.CreatedAt
	clone := *tok
	m.tokens[tok.Token] = &clone
	return nil
}

func (m *memTokenStore) FindByToken(_ context.Context, token string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok || t.Revoked {
		return nil, ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *memTokenStore) MarkRevoked(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[token]; ok && !t.Revoked {
		t.Revoked = true
		t.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// row returns the stored row regardless of revocation, for side-effect
// assertions.
func (m *memStore) row(token string) *RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[token]
}

const testSecret = "unit-test-secret-0123456789"

func newTestService(t *testing.T, store *memStore, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(store, testSecret, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedAlice(t *testing.T, svc *Service) *User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Firstname: "Alice",
		Lastname:  "Example",
		Email:     "alice@example.com",
		Password:  "secret123",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestLoginScenario(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	seedAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if res.User.Role != "user" {
		t.Fatalf("unexpected role: %s", res.User.Role)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if strings.Contains(string(data), res.User.PasswordHash) || strings.Contains(string(data), "password") {
		t.Fatalf("serialized login result leaks the password hash: %s", data)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginErrorsAreIndistinguishable(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	seedAlice(t, svc)
	ctx := context.Background()

	_, errUnknown := svc.Login(ctx, "ghost@example.com", "whatever1")
	_, errWrong := svc.Login(ctx, "alice@example.com", "whatever1")
	if errUnknown == nil || errWrong == nil {
		t.Fatal("expected both logins to fail")
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("error messages differ: %q vs %q", errUnknown, errWrong)
	}
}

func TestLoginIssuesFreshRowPerLogin(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	seedAlice(t, svc)
	ctx := context.Background()

	first, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("logins reused a refresh token")
	}
	if len(store.tokens) != 2 {
		t.Fatalf("expected 2 refresh rows, got %d", len(store.tokens))
	}
}

func TestRefreshKeepsTokenValid(t *testing.T) {
	store := newMemStore()
	current := time.Now().UTC()
	svc := newTestService(t, store, WithClock(func() time.Time { return current }))
	seedAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	current = current.Add(time.Second)
	access1, _, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if access1 == res.AccessToken {
		t.Fatal("refresh returned the original access token")
	}

	// No implicit single use: the same refresh token keeps working.
	current = current.Add(time.Second)
	access2, _, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if access2 == access1 {
		t.Fatal("expected a distinct access token per refresh")
	}
}

func TestRefreshExpiredTokenRevokesRow(t *testing.T) {
	store := newMemStore()
	current := time.Now().UTC()
	svc := newTestService(t, store,
		WithClock(func() time.Time { return current }),
		WithRefreshTTL(time.Hour))
	seedAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// expires_at exactly now must already be rejected.
	current = current.Add(time.Hour)
	if _, _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expired refresh: got %v, want ErrInvalidRefreshToken", err)
	}
	row := store.row(res.RefreshToken)
	if row == nil || !row.Revoked {
		t.Fatal("expired token row was not revoked as a side effect")
	}
}

func TestRefreshAfterUserDeleted(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	user := seedAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	store.mu.Lock()
	store.users[user.ID].Deleted = true
	store.mu.Unlock()

	if _, _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	seedAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, res.RefreshToken); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := svc.Logout(ctx, res.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Fatalf("logout of unknown token: %v", err)
	}

	if _, _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout: got %v, want ErrInvalidRefreshToken", err)
	}
}

func TestAuthenticate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	user := seedAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	got, err := svc.Authenticate(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("wrong user authenticated: %s", got.ID)
	}

	if _, err := svc.Authenticate(ctx, res.AccessToken+"x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token: got %v, want ErrInvalidToken", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	cases := []CreateUserInput{
		{Firstname: "A", Lastname: "Example", Email: "a@example.com", Password: "secret123"},
		{Firstname: "Alice", Lastname: "E", Email: "a@example.com", Password: "secret123"},
		{Firstname: "Alice", Lastname: "Example", Email: "not-an-email", Password: "secret123"},
		{Firstname: "Alice", Lastname: "Example", Email: "a@example.com", Password: "short"},
	}
	for i, in := range cases {
		if _, err := svc.CreateUser(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: got %v, want ErrInvalidInput", i, err)
		}
	}

	if _, err := svc.CreateUser(ctx, CreateUserInput{
		Firstname: "Alice", Lastname: "Example", Email: "a@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	if _, err := svc.CreateUser(ctx, CreateUserInput{
		Firstname: "Alice", Lastname: "Example", Email: "a@example.com", Password: "secret123",
	}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate email: got %v, want ErrAlreadyExists", err)
	}
}

func TestListUsersPagination(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, err := svc.CreateUser(ctx, CreateUserInput{
			Firstname: "Test", Lastname: "User", Email: email, Password: "secret123",
		}); err != nil {
			t.Fatalf("seed %s: %v", email, err)
		}
	}

	rows, meta, err := svc.ListUsers(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("page size = %d, want 2", len(rows))
	}
	if meta.Total != 3 || meta.LastPage != 2 || meta.From != 1 || meta.To != 2 {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	rows, meta, err = svc.ListUsers(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListUsers page 2: %v", err)
	}
	if len(rows) != 1 || meta.From != 3 || meta.To != 3 {
		t.Fatalf("unexpected page 2: rows=%d meta=%+v", len(rows), meta)
	}
}
