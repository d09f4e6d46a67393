package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
		wantStore  string
	}{
		{"healthy", nil, http.StatusOK, "healthy", "connected"},
		{"unhealthy", errors.New("connection refused"), http.StatusServiceUnavailable, "unhealthy", "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(healthFunc(func(context.Context) error { return tt.err }), "qdrant")
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantStore, resp.Store)
			assert.Equal(t, "qdrant", resp.Backend)
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

type countingStore struct {
	count uint64
	err   error
}

func (s countingStore) Health(context.Context) error { return nil }

func (s countingStore) Count(context.Context) (uint64, error) { return s.count, s.err }

func TestHealthHandler_ReportsIdeaCount(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(countingStore{count: 42}, "pgvector")(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Ideas)
	assert.Equal(t, uint64(42), *resp.Ideas)

	rec = httptest.NewRecorder()
	NewHealthHandler(countingStore{err: errors.New("timeout")}, "pgvector")(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"ideas"`)
}

func TestLandingHandler(t *testing.T) {
	handler := NewLandingHandler()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/toc/structure")

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogRequestsRecordsStatus(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	logRequests(next, slog.New(slog.NewTextHandler(io.Discard, nil))).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
