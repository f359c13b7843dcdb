package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/finwise/internal/model"
)

type mockCredentialFinder struct {
	users map[string]*model.User
	err   error
	calls []string
}

func (m *mockCredentialFinder) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.calls = append(m.calls, email)
	if m.err != nil {
		return nil, m.err
	}
	return m.users[email], nil
}

func newFinderWithUser(t *testing.T, email, password string, enabled bool) *mockCredentialFinder {
	t.Helper()
	hash, err := HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return &mockCredentialFinder{users: map[string]*model.User{
		email: {ID: "user-1", Email: email, PasswordHash: hash, Enabled: enabled},
	}}
}

func TestPasswordAuthenticator_Success(t *testing.T) {
	finder := newFinderWithUser(t, "alice@example.com", "s3cret-pass", true)
	a := NewPasswordAuthenticator(finder, bcrypt.MinCost)

	authn, err := a.Authenticate(context.Background(), " Alice@Example.com ", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !authn.IsAuthenticated() {
		t.Error("expected authenticated state")
	}
	if authn.Principal.Kind() != model.PrincipalDirect {
		t.Errorf("principal kind = %v, want direct", authn.Principal.Kind())
	}
	if authn.Principal.Identifier() != "alice@example.com" {
		t.Errorf("identifier = %q", authn.Principal.Identifier())
	}
	if authn.UserID != "user-1" {
		t.Errorf("user id = %q", authn.UserID)
	}
}

func TestPasswordAuthenticator_Failures(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		email    string
		password string
		want     error
	}{
		{"パスワード不一致", true, "alice@example.com", "wrong-pass", ErrBadCredentials},
		{"未登録のメールアドレス", true, "nobody@example.com", "s3cret-pass", ErrBadCredentials},
		{"無効化されたアカウント", false, "alice@example.com", "s3cret-pass", ErrAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := newFinderWithUser(t, "alice@example.com", "s3cret-pass", tt.enabled)
			a := NewPasswordAuthenticator(finder, bcrypt.MinCost)

			authn, err := a.Authenticate(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.want)
			}
			if authn != nil {
				t.Errorf("expected nil authentication, got %+v", authn)
			}
		})
	}
}

func TestPasswordAuthenticator_UnknownEmail_StillComparesHash(t *testing.T) {
	a := NewPasswordAuthenticator(&mockCredentialFinder{}, bcrypt.MinCost)

	_, err := a.Authenticate(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	if a.dummyHash == "" {
		t.Error("fallback hash should be computed for unknown emails")
	}
}

func TestPasswordAuthenticator_StoreError(t *testing.T) {
	a := NewPasswordAuthenticator(&mockCredentialFinder{err: errors.New("db down")}, bcrypt.MinCost)

	_, err := a.Authenticate(context.Background(), "alice@example.com", "pw")
	if err == nil || errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected store error, got %v", err)
	}
}
