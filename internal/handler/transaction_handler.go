package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/finwise/internal/middleware"
	"github.com/hitoshi/finwise/internal/model"
)

// TransactionServiceInterface は収支ハンドラーが必要とするサービスインターフェース。
type TransactionServiceInterface interface {
	List(ctx context.Context, userID string) ([]*model.FinancialTransaction, error)
	Create(ctx context.Context, userID string, input model.TransactionInput) (*model.FinancialTransaction, error)
	Delete(ctx context.Context, userID, id string) error
}

// TransactionHandler は収支記録のHTTPハンドラー。
type TransactionHandler struct {
	service TransactionServiceInterface
}

// NewTransactionHandler はTransactionHandlerを生成する。
func NewTransactionHandler(service TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// transactionResponse は取引のAPIレスポンス。
type transactionResponse struct {
	ID              string    `json:"id"`
	Amount          int64     `json:"amount"`
	Type            string    `json:"type"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	TransactionDate string    `json:"transactionDate"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toTransactionResponse(tx *model.FinancialTransaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		Amount:          tx.Amount,
		Type:            string(tx.Type),
		Category:        tx.Category,
		Description:     tx.Description,
		TransactionDate: tx.TransactionDate.Format(model.TransactionDateLayout),
		CreatedAt:       tx.CreatedAt,
	}
}

// List はユーザーの取引を取引日の新しい順に返す。
// GET /api/transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	txs, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は取引を登録する。
// POST /api/transactions
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var input model.TransactionInput
	if err := decodeJSONBody(w, r, &input); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	tx, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// Delete は取引を削除する。
// DELETE /api/transactions/{id}
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
