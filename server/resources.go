package server

import (
	"net/http"

	"almanac/internal/stamps"
	"almanac/server/storage"
)

// Collections served through the generic CRUD routes. The checklist has its
// own lifecycle and is registered separately.
var crudCollections = map[string]storage.Collection{
	"forms":       storage.Forms,
	"events":      storage.Events,
	"schedules":   storage.Schedules,
	"completions": storage.Completions,
}

func (h *Handler) registerResources(mux *http.ServeMux) {
	for path, col := range crudCollections {
		mux.HandleFunc("GET /"+path, h.handleList(col))
		mux.HandleFunc("POST /"+path, h.handleCreate(col))
		mux.HandleFunc("GET /"+path+"/{id}", h.handleGet(col))
		mux.HandleFunc("PUT /"+path+"/{id}", h.handleUpdate(col))
		mux.HandleFunc("DELETE /"+path+"/{id}", h.handleDelete(col))
	}
}

// listOptions builds store filters from the query string. start and end use
// the wire timestamp format and bound events by overlap.
func listOptions(r *http.Request) (*storage.ListOptions, error) {
	opts := &storage.ListOptions{}
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := stamps.ParseWire(raw)
		if err != nil {
			return nil, err
		}
		opts.Start = &t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := stamps.ParseWire(raw)
		if err != nil {
			return nil, err
		}
		opts.End = &t
	}
	return opts, nil
}

func (h *Handler) handleList(col storage.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := listOptions(r)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid time range: "+err.Error())
			return
		}
		docs, err := h.store.List(r.Context(), col, owner(r), opts)
		if err != nil {
			h.logger.Error("list failed", "collection", col, "error", err)
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

func (h *Handler) handleGet(col storage.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		doc, status := h.fetchOwned(r, col, id)
		if status != http.StatusOK {
			h.writeError(w, status, http.StatusText(status))
			return
		}
		h.writeJSON(w, http.StatusOK, stamps.ToWire(storage.WithID(id, doc)))
	}
}

func (h *Handler) handleCreate(col storage.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := readJSON(r, &body); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		delete(body, storage.IDField)
		doc := stamps.ToInternal(body)
		doc[storage.OwnerField] = owner(r)

		id := h.store.NewID()
		if err := h.store.Set(r.Context(), col, id, doc, false); err != nil {
			h.logger.Error("create failed", "collection", col, "error", err)
			h.writeError(w, http.StatusInternalServerError, "create failed")
			return
		}
		h.writeJSON(w, http.StatusCreated, stamps.ToWire(storage.WithID(id, doc)))
	}
}

func (h *Handler) handleUpdate(col storage.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, status := h.fetchOwned(r, col, id); status != http.StatusOK {
			h.writeError(w, status, http.StatusText(status))
			return
		}
		var body map[string]any
		if err := readJSON(r, &body); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		delete(body, storage.IDField)
		doc := stamps.ToInternal(body)
		doc[storage.OwnerField] = owner(r)

		if err := h.store.Set(r.Context(), col, id, doc, true); err != nil {
			h.logger.Error("update failed", "collection", col, "error", err)
			h.writeError(w, http.StatusInternalServerError, "update failed")
			return
		}
		updated, err := h.store.Get(r.Context(), col, id)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "read back failed")
			return
		}
		h.writeJSON(w, http.StatusOK, stamps.ToWire(storage.WithID(id, updated)))
	}
}

func (h *Handler) handleDelete(col storage.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, status := h.fetchOwned(r, col, id); status != http.StatusOK {
			h.writeError(w, status, http.StatusText(status))
			return
		}
		if err := h.store.Delete(r.Context(), col, id); err != nil {
			h.logger.Error("delete failed", "collection", col, "error", err)
			h.writeError(w, http.StatusInternalServerError, "delete failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
