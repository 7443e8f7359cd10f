package server

import (
	"errors"
	"net/http"

	"almanac/server/composite"
	"almanac/server/storage"
)

// emptyEcho is the 400 body for invalid composite payloads. Clients treat a
// rejected batch as "nothing written" and re-render from this shell.
func emptyEcho() map[string]any {
	return map[string]any{
		"form":       map[string]any{},
		"event":      map[string]any{},
		"schedules":  []any{},
		"completion": []any{},
	}
}

func (h *Handler) handleComposite(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := readJSON(r, &raw); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := composite.Validate(raw)
	if err != nil {
		var ve *composite.ValidationError
		if errors.As(err, &ve) {
			h.logger.Warn("composite payload rejected",
				"owner", owner(r),
				"violations", ve.Violations)
			h.writeJSON(w, http.StatusBadRequest, emptyEcho())
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if status := h.checkCompositeOwnership(r, req); status != http.StatusOK {
		h.writeError(w, status, http.StatusText(status))
		return
	}

	res, err := h.orch.Upsert(r.Context(), owner(r), req)
	if err != nil {
		var ce *composite.CommitError
		if errors.As(err, &ce) {
			h.writeError(w, http.StatusInternalServerError, "batch commit failed")
			return
		}
		h.logger.Error("composite upsert failed", "owner", owner(r), "error", err)
		h.writeError(w, http.StatusInternalServerError, "upsert failed")
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// checkCompositeOwnership verifies that every referenced persisted entity
// belongs to the caller before anything is staged.
func (h *Handler) checkCompositeOwnership(r *http.Request, req *composite.Request) int {
	check := func(col storage.Collection, ent composite.Entity, touched bool) int {
		id, ok := ent.ID.Get()
		if !ok || (ent.Action == composite.ActionNone && !touched) {
			return http.StatusOK
		}
		_, status := h.fetchOwned(r, col, id)
		if status == http.StatusNotFound {
			// Ownership is only checkable when the document exists. A
			// missing referenced ID behaves as if no prior entity existed:
			// deletes are no-ops and writes create the document.
			return http.StatusOK
		}
		return status
	}

	// A dirty completion rewires the event's completion pointer even when
	// the event itself is clean, so the event needs an ownership check too.
	completionDirty := req.Completion.Action == composite.ActionCreate ||
		req.Completion.Action == composite.ActionUpdate

	if s := check(storage.Forms, req.Form, false); s != http.StatusOK {
		return s
	}
	if s := check(storage.Events, req.Event, completionDirty); s != http.StatusOK {
		return s
	}
	if s := check(storage.Completions, req.Completion, false); s != http.StatusOK {
		return s
	}
	for _, ent := range req.Schedules {
		if s := check(storage.Schedules, ent, false); s != http.StatusOK {
			return s
		}
	}
	return http.StatusOK
}
