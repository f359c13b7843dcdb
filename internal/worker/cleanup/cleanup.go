// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// PostgreSQLのセッションは期限を過ぎても行が残るため、ワーカーが定期的に削除する。
// Redisのセッションは TTL で消えるため、削除件数は常に0件となる。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval は既定の実行間隔。
const DefaultInterval = time.Hour

// ExpiredSessionDeleter は期限切れセッションを削除し、削除件数を返す。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// MetricsRecorder は削除件数を記録する。
type MetricsRecorder interface {
	RecordExpiredSessionsDeleted(count int64)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 削除は冪等であり、対象がなくてもエラーにならない。
type CleanupJob struct {
	sessions ExpiredSessionDeleter
	metrics  MetricsRecorder
	logger   *slog.Logger
	Interval time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。metrics は nil でもよい。
func NewCleanupJob(sessions ExpiredSessionDeleter, metrics MetricsRecorder, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		Interval: DefaultInterval,
	}
}

// Run は期限切れセッションを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordExpiredSessionsDeleted(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、以降 Interval ごとに実行する。
// ctx がキャンセルされるまでブロックする。失敗はログに記録して次回に持ち越す。
func (j *CleanupJob) Start(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
