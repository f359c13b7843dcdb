package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/finwise/internal/middleware"
	"github.com/hitoshi/finwise/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Withdraw はユーザーの退会処理を実行する。
	// 収支記録、セッション、ユーザーを削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
// 退会後にセッションCookieを失効させるためCookie設定を受け取る。
func NewUserHandler(service UserServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	// セッションは削除済みのためCookieも失効させる
	clearSessionCookie(w, h.config)
	w.WriteHeader(http.StatusNoContent)
}
