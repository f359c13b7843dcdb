// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// DefaultRole はロール未設定のユーザーに割り当てるロール。
const DefaultRole = "USER"

// User はサービス利用ユーザー（認証情報を含む）を表す。
// FirstName、LastName、ImageURL、Role は未設定の場合 nil となる。
type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	FirstName       *string
	LastName        *string
	ImageURL        *string
	Role            *string
	IsNewUser       bool
	Enabled         bool
	FamilyProfileID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Session はユーザーのログインセッションを表す。
// Email は認証キーであり、リクエストごとのユーザー解決に使われる。
type Session struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Registration は新規登録リクエストの入力。
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl"`
}

// Normalize は前後の空白を除去し、メールアドレスを小文字に揃えたコピーを返す。
// パスワードはそのまま保持する。
func (r Registration) Normalize() Registration {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	return r
}

// NormalizeEmail は認証キーとして使うメールアドレスの表記を揃える。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StringPtr は空文字列を nil として扱う *string を返す。
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
