// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証系メトリクスの result ラベル値
const (
	ResultSuccess      = "success"
	ResultFailure      = "failure"
	ResultConflict     = "conflict"
	ResultInvalid      = "invalid"
	ResultInconsistent = "inconsistent"
	ResultNoSession    = "no_session"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordRegistration(result string)
	RecordLogout(result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordExpiredSessionsDeleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	login           *prometheus.CounterVec
	registration    *prometheus.CounterVec
	logout          *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	sessionsExpired prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finwise_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		registration: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finwise_registration_total",
			Help: "新規登録の結果別合計数",
		}, []string{"result"}),
		logout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finwise_logout_total",
			Help: "ログアウトの結果別合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finwise_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finwise_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finwise_sessions_expired_deleted_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.login,
		c.registration,
		c.logout,
		c.httpStatus,
		c.requestDuration,
		c.sessionsExpired,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.login.WithLabelValues(result).Inc()
}

// RecordRegistration は新規登録の結果を記録する。
func (c *Collector) RecordRegistration(result string) {
	c.registration.WithLabelValues(result).Inc()
}

// RecordLogout はログアウトの結果を記録する。
func (c *Collector) RecordLogout(result string) {
	c.logout.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordExpiredSessionsDeleted はクリーンアップで削除したセッション数を記録する。
func (c *Collector) RecordExpiredSessionsDeleted(count int64) {
	c.sessionsExpired.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
