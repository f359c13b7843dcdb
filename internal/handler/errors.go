package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/finwise/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
// 検証エラーの場合のみ errors にフィールドごとの理由を含める。
type apiErrorResponse struct {
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Category string             `json:"category"`
	Action   string             `json:"action"`
	Errors   []model.FieldError `json:"errors,omitempty"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeValidationErrorResponse は検証エラーを400で返す。
func writeValidationErrorResponse(w http.ResponseWriter, vErr *model.ValidationError) {
	writeJSON(w, http.StatusBadRequest, apiErrorResponse{
		Code:     model.ErrCodeValidationFailed,
		Message:  "Validation failed",
		Category: "validation",
		Action:   "Correct the highlighted fields and retry.",
		Errors:   vErr.Fields,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		writeValidationErrorResponse(w, vErr)
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, internalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidTransaction, errCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeEmailExists, model.ErrCodeUsernameTaken, model.ErrCodeUserAlreadyExists:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeCSRFFailed:
		return http.StatusForbidden
	case model.ErrCodeTransactionNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeIdentityInconsistent, model.ErrCodeLogoutFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

const errCodeInvalidRequest = "INVALID_REQUEST"

// invalidBodyError はJSONボディの解析に失敗した場合のエラー。
func invalidBodyError() *model.APIError {
	return &model.APIError{
		Code:     errCodeInvalidRequest,
		Message:  "Failed to parse the request body.",
		Category: "validation",
		Action:   "Send a valid JSON body.",
	}
}

func internalError() *model.APIError {
	return &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// decodeJSONBody はリクエストボディをJSONとして読み込む。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// failureMessage は500応答用に失敗の要約を付けたメッセージを返す。
// 要約はサービス層が付けた最外側の文脈のみで、ドライバ由来の詳細は含めない。
func failureMessage(prefix string, err error) string {
	cause, _, _ := strings.Cut(err.Error(), ": ")
	if cause == "" {
		return prefix
	}
	return prefix + ": " + cause
}
