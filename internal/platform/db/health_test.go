package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	stats := func() *PoolStatus { return &PoolStatus{Total: 4, Idle: 3, Acquired: 1, Max: 10} }

	tests := []struct {
		name     string
		err      error
		wantCode int
		want     DBStatus
	}{
		{"healthy", nil, http.StatusOK, DBStatus{Status: "healthy", Version: "1.2.0", Pool: stats()}},
		{"unreachable", errors.New("connection refused"), http.StatusServiceUnavailable,
			DBStatus{Status: "unhealthy", Version: "1.2.0", Error: "connection refused", Pool: stats()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health/db", nil), rec)

			if err := healthHandler(fakePinger{tt.err}, stats, "1.2.0")(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var got DBStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("status mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
