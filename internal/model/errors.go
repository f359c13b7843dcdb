package model

import (
	"fmt"
	"sort"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, transaction, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeEmailExists          = "EMAIL_EXISTS"
	ErrCodeUsernameTaken        = "USERNAME_TAKEN"
	ErrCodeUserAlreadyExists    = "USER_ALREADY_EXISTS"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeIdentityInconsistent = "IDENTITY_INCONSISTENT"
	ErrCodeLogoutFailed         = "LOGOUT_FAILED"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeTransactionNotFound  = "TRANSACTION_NOT_FOUND"
	ErrCodeInvalidTransaction   = "INVALID_TRANSACTION"
	ErrCodeCSRFFailed           = "CSRF_VALIDATION_FAILED"
)

// InvalidCredentialsMessage は認証失敗時に返す唯一のメッセージ。
// メールアドレスの存在有無を区別させない。
const InvalidCredentialsMessage = "Invalid email or password"

// NewEmailExistsError はメールアドレス重複エラーを生成する。
func NewEmailExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailExists,
		Message:  "An account with this email already exists",
		Category: "validation",
		Action:   "Log in with this email or register with a different one.",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "Username is already taken",
		Category: "validation",
		Action:   "Choose a different username.",
	}
}

// NewUserAlreadyExistsError はどの一意制約に違反したか特定できない重複エラーを生成する。
func NewUserAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  "User already exists",
		Category: "validation",
		Action:   "Log in with the existing account.",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  InvalidCredentialsMessage,
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewIdentityInconsistentError は認証成功後にユーザーを再取得できなかった場合のエラーを生成する。
func NewIdentityInconsistentError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityInconsistent,
		Message:  "User not found after authentication",
		Category: "system",
		Action:   "Please try again later.",
	}
}

// NewLogoutFailedError はセッション破棄の失敗エラーを生成する。
func NewLogoutFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeLogoutFailed,
		Message:  fmt.Sprintf("Logout failed: %s", reason),
		Category: "system",
		Action:   "Please try logging out again.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication is required.",
		Category: "auth",
		Action:   "Please log in.",
	}
}

// NewCSRFFailedError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "CSRF token validation failed.",
		Category: "auth",
		Action:   "Fetch a new token from /api/csrf-token and retry.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Please log in again.",
	}
}

// NewTransactionNotFoundError は取引が見つからない場合のエラーを生成する。
func NewTransactionNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeTransactionNotFound,
		Message:  fmt.Sprintf("Transaction not found: %s", id),
		Category: "transaction",
		Action:   "Check the transaction ID.",
	}
}

// FieldError はフィールド単位の検証エラー。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError はリクエストの検証エラーをフィールドごとに保持する。
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError はフィールド名をキーとするエラーの集合から ValidationError を生成する。
// フィールドはレスポンスが安定するよう名前順に並べる。
func NewValidationError(errs map[string]error) *ValidationError {
	fields := make([]FieldError, 0, len(errs))
	for name, err := range errs {
		if err == nil {
			continue
		}
		fields = append(fields, FieldError{Field: name, Message: err.Error()})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Field < fields[j].Field
	})
	return &ValidationError{Fields: fields}
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
