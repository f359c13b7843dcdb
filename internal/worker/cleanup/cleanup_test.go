package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockSessionDeleter はDeleteExpiredの呼び出しを記録するモック。
type mockSessionDeleter struct {
	mu      sync.Mutex
	calls   int
	deleted int64
	err     error
}

func (m *mockSessionDeleter) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.deleted, m.err
}

func (m *mockSessionDeleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockMetrics struct {
	recorded []int64
}

func (m *mockMetrics) RecordExpiredSessionsDeleted(count int64) {
	m.recorded = append(m.recorded, count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogField はJSONログの各行から指定キーの値を探す。
func findLogField(buf *bytes.Buffer, key string) (any, bool) {
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func TestNewCleanupJob_DefaultInterval(t *testing.T) {
	job := NewCleanupJob(&mockSessionDeleter{}, nil, nil)

	if job.Interval != time.Hour {
		t.Errorf("Interval = %v, want %v", job.Interval, time.Hour)
	}
}

func TestCleanupJob_Run_DeletesAndRecords(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockSessionDeleter{deleted: 42}
	metrics := &mockMetrics{}
	job := NewCleanupJob(deleter, metrics, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if deleter.callCount() != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", deleter.callCount())
	}
	if len(metrics.recorded) != 1 || metrics.recorded[0] != 42 {
		t.Errorf("recorded = %v, want [42]", metrics.recorded)
	}
	if v, ok := findLogField(&buf, "deleted_count"); !ok || v != float64(42) {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
	if _, ok := findLogField(&buf, "duration_ms"); !ok {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_ZeroRowsIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockSessionDeleter{}, nil, newTestLogger(&buf))

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("Run() #%d がエラーを返した: %v", i+1, err)
		}
	}
	if v, ok := findLogField(&buf, "deleted_count"); !ok || v != float64(0) {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_ReturnsErrorOnStoreFailure(t *testing.T) {
	var buf bytes.Buffer
	storeErr := errors.New("connection refused")
	metrics := &mockMetrics{}
	job := NewCleanupJob(&mockSessionDeleter{err: storeErr}, metrics, newTestLogger(&buf))

	err := job.Run(context.Background())
	if !errors.Is(err, storeErr) {
		t.Fatalf("Run() error = %v, want wrapped %v", err, storeErr)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
	if len(metrics.recorded) != 0 {
		t.Errorf("失敗時は件数を記録しない: %v", metrics.recorded)
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockSessionDeleter{}
	job := NewCleanupJob(deleter, nil, newTestLogger(&buf))
	job.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for deleter.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("DeleteExpired calls = %d, want >= 2", deleter.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start がキャンセル後に終了しない")
	}
}
