package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost はパスワードハッシュの既定コスト。
const DefaultBcryptCost = 12

// MaxPasswordBytes はbcryptが受け付けるパスワードの最大バイト数。
const MaxPasswordBytes = 72

// ErrEmptyPassword は空のパスワードをハッシュしようとした場合に返す。
var ErrEmptyPassword = errors.New("password must not be empty")

// ErrPasswordMismatch はパスワードとハッシュが一致しない場合に返す。
var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword はパスワードのbcryptハッシュを生成する。
// costが範囲外の場合は既定値を使う。
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// ComparePasswordAndHash は平文パスワードがハッシュと一致するか検証する。
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
