package mcp

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string  `json:"status"`
	Backend   string  `json:"backend"`
	Store     string  `json:"store"`
	Ideas     *uint64 `json:"ideas,omitempty"`
	Timestamp string  `json:"timestamp"`
}

// HealthChecker is implemented by the embedding store backends.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// IdeaCounter is implemented by stores that can report their size cheaply.
type IdeaCounter interface {
	Count(ctx context.Context) (uint64, error)
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It checks store connectivity and answers 200 or 503. When the store is an IdeaCounter
// and the count succeeds, the number of stored ideas is included.
func NewHealthHandler(store HealthChecker, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Backend:   backend,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		if err := store.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Store = "disconnected"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}

		response.Status = "healthy"
		response.Store = "connected"
		if counter, ok := store.(IdeaCounter); ok {
			if n, err := counter.Count(ctx); err == nil {
				response.Ideas = &n
			}
		}
		writeJSON(w, http.StatusOK, response)
	}
}
