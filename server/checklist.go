package server

import (
	"net/http"
	"time"

	"almanac/internal/stamps"
	"almanac/server/storage"
)

// Checklist items are lightweight one-off tasks. They live outside the
// composite flow: an item is created, stays active until completed, and
// keeps its completion time for history views.
func (h *Handler) registerChecklist(mux *http.ServeMux) {
	mux.HandleFunc("GET /checklist/active", h.handleChecklistView(true))
	mux.HandleFunc("GET /checklist/complete", h.handleChecklistView(false))
	mux.HandleFunc("POST /checklist", h.handleChecklistCreate)
	mux.HandleFunc("PUT /checklist/{id}", h.handleUpdate(storage.Checklist))
	mux.HandleFunc("POST /checklist/{id}/complete", h.handleChecklistComplete)
	mux.HandleFunc("DELETE /checklist/{id}", h.handleDelete(storage.Checklist))
}

func (h *Handler) handleChecklistView(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := &storage.ListOptions{Where: map[string]any{"active": active}}
		docs, err := h.store.List(r.Context(), storage.Checklist, owner(r), opts)
		if err != nil {
			h.logger.Error("checklist list failed", "active", active, "error", err)
			h.writeError(w, http.StatusInternalServerError, "list failed")
			return
		}
		out := make([]storage.Document, 0, len(docs))
		for _, doc := range docs {
			out = append(out, stamps.ToWire(doc))
		}
		h.writeJSON(w, http.StatusOK, out)
	}
}

func (h *Handler) handleChecklistCreate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := readJSON(r, &body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	delete(body, storage.IDField)
	doc := stamps.ToInternal(body)
	doc["active"] = true
	doc["createdStamp"] = time.Now().UTC()
	doc[storage.OwnerField] = owner(r)

	id := h.store.NewID()
	if err := h.store.Set(r.Context(), storage.Checklist, id, doc, false); err != nil {
		h.logger.Error("checklist create failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	h.writeJSON(w, http.StatusCreated, stamps.ToWire(storage.WithID(id, doc)))
}

func (h *Handler) handleChecklistComplete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, status := h.fetchOwned(r, storage.Checklist, id); status != http.StatusOK {
		h.writeError(w, status, http.StatusText(status))
		return
	}
	patch := storage.Document{
		"active":         false,
		"completedStamp": time.Now().UTC(),
	}
	if err := h.store.Set(r.Context(), storage.Checklist, id, patch, true); err != nil {
		h.logger.Error("checklist complete failed", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "complete failed")
		return
	}
	doc, err := h.store.Get(r.Context(), storage.Checklist, id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "read back failed")
		return
	}
	h.writeJSON(w, http.StatusOK, stamps.ToWire(storage.WithID(id, doc)))
}
