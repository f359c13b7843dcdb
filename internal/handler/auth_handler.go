// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/finwise/internal/auth"
	"github.com/hitoshi/finwise/internal/middleware"
	"github.com/hitoshi/finwise/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	ResolveIdentity(ctx context.Context, authn *model.Authentication) model.IdentityResult
	Register(ctx context.Context, reg model.Registration, previousSessionID string) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password, previousSessionID string) (*auth.AuthResult, error)
	Logout(ctx context.Context, sessionIDs ...string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はパスワード認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// authResponse はログイン・登録のレスポンス。
type authResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	User    *model.UserSummary `json:"user,omitempty"`
	Errors  []model.FieldError `json:"errors,omitempty"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CurrentUser は現在のユーザーを返す。
// GET /api/auth/user
// 未認証の理由にかかわらず常に200で {"isAuthenticated": false} を返す。
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	authn := middleware.AuthenticationFromContext(r.Context())
	writeJSON(w, http.StatusOK, h.service.ResolveIdentity(r.Context(), authn))
}

// Register はユーザー登録とログインを一度に行う。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decodeJSONBody(w, r, &reg); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{
			Message: invalidBodyError().Message,
		})
		return
	}

	result, err := h.service.Register(r.Context(), reg, requestSessionID(r))
	if err != nil {
		h.writeRegisterError(w, err)
		return
	}

	setSessionCookie(w, h.config, result.Session)
	summary := model.NewUserSummary(result.User)
	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "Registration successful",
		User:    &summary,
	})
}

func (h *AuthHandler) writeRegisterError(w http.ResponseWriter, err error) {
	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, authResponse{
			Message: "Validation failed",
			Errors:  vErr.Fields,
		})
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, mapAPIErrorToHTTPStatus(apiErr), authResponse{Message: apiErr.Message})
		return
	}

	slog.Error("registration failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, authResponse{Message: failureMessage("Registration failed", err)})
}

// Login はメールアドレスとパスワードで認証する。
// POST /api/auth/login
// 失敗理由は区別せず同じ401レスポンスを返す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusUnauthorized, authResponse{Message: model.InvalidCredentialsMessage})
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, requestSessionID(r))
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, mapAPIErrorToHTTPStatus(apiErr), authResponse{Message: apiErr.Message})
			return
		}
		slog.Error("login failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "Login failed"})
		return
	}

	setSessionCookie(w, h.config, result.Session)
	summary := model.NewUserSummary(result.User)
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		User:    &summary,
	})
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
// セッションがなくても200を返す。ストアの削除に失敗した場合のみ500。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ids := []string{requestSessionID(r)}
	if authn := middleware.AuthenticationFromContext(r.Context()); authn != nil {
		ids = append(ids, authn.SessionID)
	}

	// 以降の処理では旧セッションの認証を参照させない
	ctx := middleware.ContextWithoutAuthentication(r.Context())

	clearSessionCookie(w, h.config)

	if err := h.service.Logout(ctx, ids...); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError,
			model.NewLogoutFailedError("the session could not be removed"))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// requestSessionID はリクエストが持つセッションCookieの値を返す。
func requestSessionID(r *http.Request) string {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func setSessionCookie(w http.ResponseWriter, config AuthHandlerConfig, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   config.SessionMaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを失効させる。
func clearSessionCookie(w http.ResponseWriter, config AuthHandlerConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
