// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/finwise/internal/model"
)

// SessionCookieName はセッションIDを運ぶCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// authenticationContextKey はリクエスト単位の認証状態を格納するキー。
	authenticationContextKey = contextKey("authentication")
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
)

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewAuthenticationMiddleware はCookieのセッションを読み込み、
// 認証状態をリクエストコンテキストに載せるミドルウェアを返す。
// セッションがない、期限切れ、取得失敗のいずれでも拒否はせず未認証として次へ渡す。
func NewAuthenticationMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithAuthentication(r.Context(), authenticationFromSession(session))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthentication は未認証のリクエストを401で拒否する。
// NewAuthenticationMiddlewareの後に配置する。
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := UserIDFromContext(r.Context()); err != nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticationFromSession は保存済みセッションからプリンシパルを復元する。
// 認証キーを持たない古いセッションは文字列表現のみのプリンシパルになる。
func authenticationFromSession(session *model.Session) *model.Authentication {
	principal := model.OpaquePrincipal(session.UserID)
	if session.Email != "" {
		principal = model.StructuredPrincipal(model.UserDetails{
			UserID:   session.UserID,
			Username: session.Email,
		})
	}
	return &model.Authentication{
		Principal:     principal,
		Authenticated: true,
		UserID:        session.UserID,
		SessionID:     session.ID,
	}
}

// AuthenticationFromContext はリクエストの認証状態を返す。未認証なら nil。
func AuthenticationFromContext(ctx context.Context) *model.Authentication {
	authn, _ := ctx.Value(authenticationContextKey).(*model.Authentication)
	return authn
}

// ContextWithAuthentication はコンテキストに認証状態を注入する。
func ContextWithAuthentication(ctx context.Context, authn *model.Authentication) context.Context {
	ctx = context.WithValue(ctx, authenticationContextKey, authn)
	if authn.IsAuthenticated() && authn.UserID != "" {
		ctx = context.WithValue(ctx, userIDContextKey, authn.UserID)
	}
	return ctx
}

// ContextWithoutAuthentication は認証状態を取り除いたコンテキストを返す。
// ログアウト後の処理が旧セッションの認証を参照しないようにする。
func ContextWithoutAuthentication(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, authenticationContextKey, (*model.Authentication)(nil))
	return context.WithValue(ctx, userIDContextKey, "")
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアでセッションが確認できたリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
