package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockHTTPMetrics struct {
	statuses  []int
	durations []time.Duration
}

func (m *mockHTTPMetrics) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockHTTPMetrics) RecordRequestDuration(duration time.Duration) {
	m.durations = append(m.durations, duration)
}

func TestMetricsMiddleware_RecordsStatusAndDuration(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{
			name:    "明示的なステータス",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusConflict) },
			want:    http.StatusConflict,
		},
		{
			name:    "Writeのみは200",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("{}")) },
			want:    http.StatusOK,
		},
		{
			name:    "何も書かない場合も200",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			want:    http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockHTTPMetrics{}
			handler := NewMetricsMiddleware(rec)(tt.handler)

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))

			if len(rec.statuses) != 1 || rec.statuses[0] != tt.want {
				t.Errorf("statuses = %v, want [%d]", rec.statuses, tt.want)
			}
			if len(rec.durations) != 1 || rec.durations[0] < 0 {
				t.Errorf("durations = %v", rec.durations)
			}
		})
	}
}
