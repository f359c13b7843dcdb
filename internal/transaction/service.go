// Package transaction はユーザーごとの収支記録のドメインロジックを提供する。
package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/hitoshi/finwise/internal/model"
	"github.com/hitoshi/finwise/internal/repository"
)

// 入力の上限
const (
	MaxCategoryLength    = 50
	MaxDescriptionLength = 500
)

// TextSanitizer は表示用テキストからHTMLを除去する。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// Service は収支記録のサービス層。
type Service struct {
	repo      repository.TransactionRepository
	sanitizer TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.TransactionRepository, sanitizer TextSanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// List はユーザーの取引を取引日の新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.FinancialTransaction, error) {
	txs, err := s.repo.FindByUserOrderByTransactionDateDesc(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("取引一覧の取得に失敗しました: %w", err)
	}
	if txs == nil {
		txs = []*model.FinancialTransaction{}
	}
	return txs, nil
}

// Create は入力を検証して取引を登録する。
func (s *Service) Create(ctx context.Context, userID string, input model.TransactionInput) (*model.FinancialTransaction, error) {
	input.Type = strings.ToUpper(strings.TrimSpace(input.Type))
	input.Category = s.sanitize(input.Category)
	input.Description = s.sanitize(input.Description)
	input.TransactionDate = strings.TrimSpace(input.TransactionDate)

	if err := validateInput(input); err != nil {
		return nil, err
	}

	date, err := time.Parse(model.TransactionDateLayout, input.TransactionDate)
	if err != nil {
		// validateInputで検証済み
		return nil, fmt.Errorf("取引日の解析に失敗しました: %w", err)
	}

	now := time.Now()
	tx := &model.FinancialTransaction{
		ID:              uuid.New().String(),
		UserID:          userID,
		Amount:          input.Amount,
		Type:            model.TransactionType(input.Type),
		Category:        input.Category,
		Description:     input.Description,
		TransactionDate: date,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("取引の登録に失敗しました: %w", err)
	}

	slog.Info("取引を登録しました",
		slog.String("user_id", userID),
		slog.String("transaction_id", tx.ID),
		slog.String("type", input.Type),
	)
	return tx, nil
}

// Delete はユーザーが所有する取引を削除する。
// 他ユーザーの取引IDやUUID形式でないIDは存在しないものとして扱う。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewTransactionNotFoundError(id)
	}
	if err := s.repo.DeleteByIDAndUser(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewTransactionNotFoundError(id)
		}
		return fmt.Errorf("取引の削除に失敗しました: %w", err)
	}
	return nil
}

func (s *Service) sanitize(raw string) string {
	if s.sanitizer == nil {
		return strings.TrimSpace(raw)
	}
	return s.sanitizer.Sanitize(raw)
}

func validateInput(input model.TransactionInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Amount,
			validation.Required.Error("amount must be greater than zero"),
			validation.Min(int64(1)).Error("amount must be greater than zero"),
		),
		validation.Field(&input.Type,
			validation.Required.Error("type is required"),
			validation.In(string(model.TransactionTypeIncome), string(model.TransactionTypeExpense)).Error("type must be INCOME or EXPENSE"),
		),
		validation.Field(&input.Category,
			validation.Required.Error("category is required"),
			validation.Length(1, MaxCategoryLength),
		),
		validation.Field(&input.Description, validation.Length(0, MaxDescriptionLength)),
		validation.Field(&input.TransactionDate,
			validation.Required.Error("transactionDate is required"),
			validation.Date(model.TransactionDateLayout).Error("transactionDate must be in YYYY-MM-DD format"),
		),
	)
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		return model.NewValidationError(errs)
	}
	return err
}
