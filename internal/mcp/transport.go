package mcp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the MCP HTTP transport.
type HTTPHandlerOptions struct {
	// Stateless disables session management. Tool calls here never need server-to-client
	// requests, so stateless mode lets any replica answer any request.
	Stateless bool
	// Logger receives one line per MCP request. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewHTTPHandler serves the MCP server over Streamable HTTP, for mounting at "/mcp":
//
//	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{
		Stateless: opts.Stateless,
	})
	return logRequests(handler, logger)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps server-sent event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logRequests(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("MCP request",
			"method", r.Method,
			"status", rec.status,
			"session", r.Header.Get("Mcp-Session-Id"),
			"duration", time.Since(start),
		)
	})
}
