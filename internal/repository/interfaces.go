// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/finwise/internal/model"
)

// ErrNotFound は削除・更新対象の行が存在しない場合に返す。
var ErrNotFound = errors.New("repository: not found")

// UserRepository はユーザーデータ（資格情報ストア）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// ExistsByEmail はメールアドレスが登録済みかどうかを返す。
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByUsername はユーザー名が使用済みかどうかを返す。
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create はユーザーを作成する。
	// 一意制約違反の場合は model.APIError（EMAIL_EXISTS / USERNAME_TAKEN）を返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、financial_transactionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合も成功とする。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// TransactionRepository は収支記録の永続化インターフェース。
type TransactionRepository interface {
	// FindByUserOrderByTransactionDateDesc はユーザーの取引を取引日の新しい順に返す。
	FindByUserOrderByTransactionDateDesc(ctx context.Context, userID string) ([]*model.FinancialTransaction, error)

	// FindByUser はユーザーの取引を登録順に返す。
	FindByUser(ctx context.Context, userID string) ([]*model.FinancialTransaction, error)

	// FindByID は指定IDの取引を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.FinancialTransaction, error)

	// Create は取引を作成する。
	Create(ctx context.Context, tx *model.FinancialTransaction) error

	// DeleteByIDAndUser は指定ユーザーが所有する取引を削除する。
	// 該当行がない場合は ErrNotFound を返す。
	DeleteByIDAndUser(ctx context.Context, id, userID string) error

	// DeleteByUserID はユーザーの全取引を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
