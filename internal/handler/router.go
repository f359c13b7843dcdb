package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/finwise/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 運用
	HealthChecker  HealthChecker
	Logger         *slog.Logger
	HTTPMetrics    middleware.HTTPMetricsRecorder // nil の場合は記録しない
	MetricsHandler http.Handler                   // nil の場合は /metrics を公開しない

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 収支記録
	TransactionService TransactionServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → SecurityHeaders → CORS → Authentication → Logging → Metrics
//
// Authentication は拒否しないため全ルートに適用し、保護ルートのみ RequireAuthentication で401を返す。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewAuthenticationMiddleware(deps.SessionFinder))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	txHandler := NewTransactionHandler(deps.TransactionService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/user", authHandler.CurrentUser)
		r.Post("/logout", authHandler.Logout)

		// ログイン・登録はクライアントIP単位で試行回数を制限する
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthAttemptMiddleware())
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: RequireAuthentication → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuthentication)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Route("/api/transactions", func(r chi.Router) {
			r.Get("/", txHandler.List)
			r.Post("/", txHandler.Create)
			r.Delete("/{id}", txHandler.Delete)
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
