package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codecom/codecom-api/internal/cache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticRelayStatus cache.RelayStatus

func (s staticRelayStatus) Get(ctx context.Context) cache.RelayStatus {
	return cache.RelayStatus(s)
}

func TestHealthHandler_Healthcheck(t *testing.T) {
	checkedAt := time.Date(2030, time.January, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status cache.RelayStatus
		want   string
	}{
		{
			name:   "relay reachable",
			status: cache.RelayStatus{Configured: true, Reachable: true, CheckedAt: checkedAt},
			want:   `{"status":"ok","relay":{"configured":true,"reachable":true,"checked_at":"2030-01-01T12:00:00Z"}}`,
		},
		{
			name:   "relay unreachable",
			status: cache.RelayStatus{Configured: true, Error: "dial tcp: timeout", CheckedAt: checkedAt},
			want:   `{"status":"degraded","relay":{"configured":true,"reachable":false,"error":"dial tcp: timeout","checked_at":"2030-01-01T12:00:00Z"}}`,
		},
		{
			name:   "relay not configured",
			status: cache.RelayStatus{CheckedAt: checkedAt},
			want:   `{"status":"degraded","relay":{"configured":false,"reachable":false,"checked_at":"2030-01-01T12:00:00Z"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(staticRelayStatus(tt.status))
			router := gin.New()
			router.GET("/healthcheck", handler.Healthcheck)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/healthcheck", http.NoBody)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Equal(t, "no-cache, no-store, max-age=0, must-revalidate", w.Header().Get("Cache-Control"))
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}
