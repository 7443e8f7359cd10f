// Package server exposes the HTTP API: the composite upsert endpoint,
// per-collection CRUD, the checklist flow and an iCalendar export. All
// routes except /healthz sit behind bearer authentication.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"almanac/server/auth"
	"almanac/server/composite"
	"almanac/server/storage"
)

// Options configures optional handler behavior.
type Options struct {
	// Logger receives request and error logs. Defaults to a discard logger.
	Logger *slog.Logger
}

// Handler serves the API on top of a document store.
type Handler struct {
	store  storage.Store
	orch   *composite.Orchestrator
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a handler serving store, guarding every route except
// /healthz with verifier.
func New(store storage.Store, verifier auth.Verifier, opts *Options) *Handler {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h := &Handler{
		store:  store,
		orch:   composite.New(store, logger),
		logger: logger,
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /composite", h.handleComposite)
	api.HandleFunc("PUT /composite", h.handleComposite)
	h.registerResources(api)
	h.registerChecklist(api)
	api.HandleFunc("GET /export.ics", h.handleExport)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", h.handleHealthz)
	root.Handle("/", auth.Middleware(verifier, logger)(api))
	h.mux = root
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// owner returns the authenticated user ID. The auth middleware guarantees
// a principal on every protected route.
func owner(r *http.Request) string {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		return ""
	}
	return p.UID
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encode failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// fetchOwned loads one document and enforces ownership. The returned status
// is http.StatusOK on success, otherwise the status to respond with.
func (h *Handler) fetchOwned(r *http.Request, col storage.Collection, id string) (storage.Document, int) {
	doc, err := h.store.Get(r.Context(), col, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, http.StatusNotFound
		}
		h.logger.Error("document fetch failed",
			"collection", col, "id", id, "error", err)
		return nil, http.StatusInternalServerError
	}
	if doc[storage.OwnerField] != owner(r) {
		return nil, http.StatusForbidden
	}
	return doc, http.StatusOK
}
