package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/finwise/internal/model"
)

// PostgreSQLの一意制約違反エラーコード
const pqUniqueViolation = "23505"

// usersテーブルの一意制約名
const (
	usersEmailConstraint    = "users_email_key"
	usersUsernameConstraint = "users_username_key"
)

const selectUserColumns = `SELECT id, username, email, password_hash, first_name, last_name,
	image_url, role, is_new_user, enabled, family_profile_id, created_at, updated_at
	FROM users`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// ExistsByEmail はメールアドレスが登録済みかどうかを返す。
func (r *PostgresUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// ExistsByUsername はユーザー名が使用済みかどうかを返す。
func (r *PostgresUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

// Create はユーザーを作成する。
// 同時登録による一意制約違反は、違反した制約に応じた APIError に変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, first_name, last_name,
		 image_url, role, is_new_user, enabled, family_profile_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		nullString(user.FirstName), nullString(user.LastName), nullString(user.ImageURL),
		nullString(user.Role), user.IsNewUser, user.Enabled, nullString(user.FamilyProfileID),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if apiErr := uniqueViolationError(err); apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するsessions、financial_transactionsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var firstName, lastName, imageURL, role, familyProfileID sql.NullString
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&firstName, &lastName, &imageURL, &role,
		&user.IsNewUser, &user.Enabled, &familyProfileID,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user.FirstName = stringFromNull(firstName)
	user.LastName = stringFromNull(lastName)
	user.ImageURL = stringFromNull(imageURL)
	user.Role = stringFromNull(role)
	user.FamilyProfileID = stringFromNull(familyProfileID)
	return user, nil
}

// uniqueViolationError はusersテーブルの一意制約違反をAPIErrorに変換する。
// 一意制約違反でない場合はnilを返す。
func uniqueViolationError(err error) *model.APIError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqUniqueViolation {
		return nil
	}
	switch pqErr.Constraint {
	case usersEmailConstraint:
		return model.NewEmailExistsError()
	case usersUsernameConstraint:
		return model.NewUsernameTakenError()
	default:
		return model.NewUserAlreadyExistsError()
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
