package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/finwise/internal/model"
)

const selectTransactionColumns = `SELECT id, user_id, amount, type, category, description,
	transaction_date, created_at, updated_at
	FROM financial_transactions`

// PostgresTransactionRepo はPostgreSQLを使用した収支記録リポジトリ。
type PostgresTransactionRepo struct {
	db *sql.DB
}

// NewPostgresTransactionRepo はPostgresTransactionRepoを生成する。
func NewPostgresTransactionRepo(db *sql.DB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{db: db}
}

// FindByUserOrderByTransactionDateDesc はユーザーの取引を取引日の新しい順に返す。
// 同じ取引日の場合は登録が新しいものを先にする。
func (r *PostgresTransactionRepo) FindByUserOrderByTransactionDateDesc(ctx context.Context, userID string) ([]*model.FinancialTransaction, error) {
	return r.list(ctx,
		selectTransactionColumns+` WHERE user_id = $1 ORDER BY transaction_date DESC, created_at DESC`,
		userID,
	)
}

// FindByUser はユーザーの取引を登録順に返す。
func (r *PostgresTransactionRepo) FindByUser(ctx context.Context, userID string) ([]*model.FinancialTransaction, error) {
	return r.list(ctx,
		selectTransactionColumns+` WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
}

// FindByID は指定IDの取引を取得する。見つからない場合はnilを返す。
func (r *PostgresTransactionRepo) FindByID(ctx context.Context, id string) (*model.FinancialTransaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, selectTransactionColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return tx, nil
}

// Create は取引を作成する。
func (r *PostgresTransactionRepo) Create(ctx context.Context, tx *model.FinancialTransaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO financial_transactions
		 (id, user_id, amount, type, category, description, transaction_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tx.ID, tx.UserID, tx.Amount, string(tx.Type), tx.Category, tx.Description,
		tx.TransactionDate, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// DeleteByIDAndUser は指定ユーザーが所有する取引を削除する。
// 他ユーザーの取引は存在しないものとして扱う。
func (r *PostgresTransactionRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM financial_transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUserID はユーザーの全取引を削除する。
func (r *PostgresTransactionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM financial_transactions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user transactions: %w", err)
	}
	return nil
}

func (r *PostgresTransactionRepo) list(ctx context.Context, query string, args ...any) ([]*model.FinancialTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.FinancialTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(row rowScanner) (*model.FinancialTransaction, error) {
	tx := &model.FinancialTransaction{}
	var txType string
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &txType, &tx.Category, &tx.Description,
		&tx.TransactionDate, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Type = model.TransactionType(txType)
	return tx, nil
}

// compile-time interface check
var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
