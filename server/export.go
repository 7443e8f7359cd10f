package server

import (
	"bytes"
	"net/http"
	"time"

	"github.com/emersion/go-ical"

	"almanac/server/storage"
)

// handleExport renders the caller's events as a VCALENDAR stream, one
// VEVENT per stored event. Range bounds from the query string apply the
// same way they do for the event list.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid time range: "+err.Error())
		return
	}
	docs, err := h.store.List(r.Context(), storage.Events, owner(r), opts)
	if err != nil {
		h.logger.Error("export list failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//almanac//NONSGML v1.0//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")

	now := time.Now().UTC()
	for _, doc := range docs {
		ev := ical.NewEvent()
		if id, ok := doc[storage.IDField].(string); ok {
			ev.Props.SetText(ical.PropUID, id)
		}
		ev.Props.SetDateTime(ical.PropDateTimeStamp, now)
		if name, ok := doc["name"].(string); ok {
			ev.Props.SetText(ical.PropSummary, name)
		}
		if desc, ok := doc["description"].(string); ok && desc != "" {
			ev.Props.SetText(ical.PropDescription, desc)
		}
		if start, ok := doc["startStamp"].(time.Time); ok {
			ev.Props.SetDateTime(ical.PropDateTimeStart, start)
		}
		if end, ok := doc["endStamp"].(time.Time); ok {
			ev.Props.SetDateTime(ical.PropDateTimeEnd, end)
		}
		cal.Children = append(cal.Children, ev.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		h.logger.Error("export encode failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", ical.MIMEType)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("export write failed", "error", err)
	}
}
