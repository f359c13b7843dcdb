package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hitoshi/finwise/internal/model"
)

// ErrBadCredentials は未登録のメールアドレスまたはパスワード不一致を表す。
var ErrBadCredentials = errors.New("bad credentials")

// ErrAccountDisabled は無効化されたアカウントでの認証を表す。
var ErrAccountDisabled = errors.New("account disabled")

// CredentialFinder は認証キーからユーザーを取得する。
type CredentialFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Authenticator は資格情報を検証し、認証済みの状態を返す。
// 失敗の理由は呼び出し側に区別させない前提で error を返す。
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (*model.Authentication, error)
}

// PasswordAuthenticator はメールアドレスとパスワードでユーザーを認証する。
type PasswordAuthenticator struct {
	users CredentialFinder
	cost  int

	dummyOnce sync.Once
	dummyHash string
}

// NewPasswordAuthenticator はPasswordAuthenticatorを生成する。
func NewPasswordAuthenticator(users CredentialFinder, bcryptCost int) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users, cost: bcryptCost}
}

// Authenticate は資格情報を検証する。
// 成功時は identifier を名前とする DirectCredential プリンシパルを返す。
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, identifier, secret string) (*model.Authentication, error) {
	email := model.NormalizeEmail(identifier)

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if user == nil {
		// 未登録でも比較処理を行い、応答時間からメールアドレスの存在を推測させない
		_ = ComparePasswordAndHash(secret, a.fallbackHash())
		return nil, ErrBadCredentials
	}

	if err := ComparePasswordAndHash(secret, user.PasswordHash); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	if !user.Enabled {
		return nil, ErrAccountDisabled
	}

	return &model.Authentication{
		Principal:     model.DirectCredential(email),
		Authenticated: true,
		UserID:        user.ID,
	}, nil
}

func (a *PasswordAuthenticator) fallbackHash() string {
	a.dummyOnce.Do(func() {
		h, err := HashPassword("finwise-unknown-account", a.cost)
		if err == nil {
			a.dummyHash = h
		}
	})
	return a.dummyHash
}

// compile-time interface check
var _ Authenticator = (*PasswordAuthenticator)(nil)
