package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bull/idea-toc-server/internal/originality"
	"github.com/bull/idea-toc-server/internal/toc"
)

// errorResponse is the body of every non-2xx TOC response.
type errorResponse struct {
	Detail string `json:"detail"`
}

// TOCHandlers serves the table of contents over plain HTTP.
type TOCHandlers struct {
	toc    TOC
	logger *slog.Logger
}

// NewTOCHandlers creates the HTTP handlers for the table of contents.
func NewTOCHandlers(t TOC, logger *slog.Logger) *TOCHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &TOCHandlers{toc: t, logger: logger}
}

// Register mounts the handlers on mux:
//
//	GET  /toc            cached tree, built on a cache miss
//	POST /toc/rebuild    rebuild and return the new tree
//	GET  /toc/structure  rebuild with an optional max_items query parameter
func (h *TOCHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /toc", h.Get)
	mux.HandleFunc("POST /toc/rebuild", h.Rebuild)
	mux.HandleFunc("GET /toc/structure", h.Structure)
}

// Get serves the cached tree.
func (h *TOCHandlers) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (toc.Tree, error) {
		return h.toc.Cached(ctx)
	})
}

// Rebuild forces a rebuild with the configured item cap.
func (h *TOCHandlers) Rebuild(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (toc.Tree, error) {
		return h.toc.BuildWithLimit(ctx, 0)
	})
}

// Structure rebuilds the tree reading at most max_items ideas.
func (h *TOCHandlers) Structure(w http.ResponseWriter, r *http.Request) {
	maxItems := 0
	if v := r.URL.Query().Get("max_items"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "max_items must be a positive integer"})
			return
		}
		maxItems = n
	}

	h.respond(w, r, func(ctx context.Context) (toc.Tree, error) {
		return h.toc.BuildWithLimit(ctx, maxItems)
	})
}

func (h *TOCHandlers) respond(w http.ResponseWriter, r *http.Request, build func(context.Context) (toc.Tree, error)) {
	tree, err := build(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, originality.ErrInsufficientData) {
			status = http.StatusUnprocessableEntity
		}
		h.logger.Error("TOC request failed", "path", r.URL.Path, "status", status, "error", err)
		writeJSON(w, status, errorResponse{Detail: "Error generating TOC structure: " + err.Error()})
		return
	}
	if tree == nil {
		tree = toc.Tree{}
	}
	writeJSON(w, http.StatusOK, tree)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
