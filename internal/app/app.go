package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/finwise/internal/auth"
	"github.com/hitoshi/finwise/internal/config"
	"github.com/hitoshi/finwise/internal/database"
	"github.com/hitoshi/finwise/internal/handler"
	"github.com/hitoshi/finwise/internal/logger"
	"github.com/hitoshi/finwise/internal/metrics"
	"github.com/hitoshi/finwise/internal/middleware"
	"github.com/hitoshi/finwise/internal/repository"
	"github.com/hitoshi/finwise/internal/security"
	"github.com/hitoshi/finwise/internal/transaction"
	"github.com/hitoshi/finwise/internal/user"
	"github.com/hitoshi/finwise/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newSessionRepository は設定に応じたセッションストアを返す。
// 返されるcloseはRedisクライアントなど追加の接続を解放する。
func newSessionRepository(ctx context.Context, cfg *config.Config, db *sql.DB) (repository.SessionRepository, func() error, error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return repository.NewPostgresSessionRepo(db), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis session store connected", slog.String("addr", opts.Addr))
	return repository.NewRedisSessionRepo(client, repository.DefaultRedisKeyPrefix), client.Close, nil
}

// newMetricsRegistry はアプリケーションとランタイムのメトリクスを登録したレジストリを返す。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// newRateLimiter は1分あたりの設定値からレートリミッターを構成する。
func newRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate, rlCfg.GeneralBurst = middleware.PerMinute(cfg.RateLimitGeneral)
	rlCfg.AuthRate, rlCfg.AuthBurst = middleware.PerMinute(cfg.RateLimitAuth)
	return middleware.NewRateLimiter(rlCfg)
}

// buildRouterDeps は全依存関係をワイヤリングしてルーターの依存を組み立てる。
func buildRouterDeps(
	cfg *config.Config,
	db *sql.DB,
	sessionRepo repository.SessionRepository,
	reg *prometheus.Registry,
	collector *metrics.Collector,
) *handler.RouterDeps {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	txRepo := repository.NewPostgresTransactionRepo(db)

	// 2. セキュリティサービスの初期化
	sanitizer := security.NewTextSanitizer()

	// 3. ドメインサービスの初期化
	authService := auth.NewService(
		auth.NewPasswordAuthenticator(userRepo, cfg.BcryptCost),
		userRepo, sessionRepo, sanitizer, collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge, BcryptCost: cfg.BcryptCost},
	)
	txService := transaction.NewService(txRepo, sanitizer)
	userService := user.NewService(userRepo, sessionRepo, txRepo)

	return &handler.RouterDeps{
		HealthChecker:  db,
		Logger:         slog.Default(),
		HTTPMetrics:    collector,
		MetricsHandler: metrics.Handler(reg),

		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       newRateLimiter(cfg),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		TransactionService: txService,
		UserService:        userService,
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionRepo, closeSessions, err := newSessionRepository(context.Background(), cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	reg, collector := newMetricsRegistry()
	deps := buildRouterDeps(cfg, db, sessionRepo, reg, collector)
	defer deps.RateLimiter.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップを定期実行し、メトリクスを公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionRepo, closeSessions, err := newSessionRepository(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	reg, collector := newMetricsRegistry()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// ワーカーのメトリクスはサーバーと別ポートで公開する
	metricsServer := &http.Server{
		Addr:              ":" + workerMetricsPort(cfg.ServerPort),
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	job := cleanup.NewCleanupJob(sessionRepo, collector, slog.Default())
	job.Interval = cfg.SessionCleanupInterval

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", job.Interval),
		slog.String("metrics_addr", metricsServer.Addr),
	)

	// ctx がキャンセルされるまでブロックする
	job.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// workerMetricsPort はAPIポートの次の番号をワーカーのメトリクスポートとする。
func workerMetricsPort(serverPort string) string {
	port, err := strconv.Atoi(serverPort)
	if err != nil || port <= 0 {
		return "9090"
	}
	return strconv.Itoa(port + 1)
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.Redacted()
}
