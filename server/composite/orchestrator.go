package composite

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"almanac/internal/stamps"
	"almanac/server/storage"
)

// CommitError reports that the atomic batch failed to apply. The store
// guarantees nothing was written.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return "batch commit failed: " + e.Err.Error()
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Deletions summarizes removed entities by ID.
type Deletions struct {
	Form       string   `json:"form"`
	Event      string   `json:"event"`
	Completion string   `json:"completion"`
	Schedules  []string `json:"schedules"`
}

// Result is the authoritative post-write state. Entities that were not
// written carry an explicit null ID placeholder rather than being omitted,
// so callers can tell "not requested" from "requested and empty".
type Result struct {
	Form       storage.Document   `json:"form"`
	Event      storage.Document   `json:"event"`
	Completion storage.Document   `json:"completion"`
	Schedules  []storage.Document `json:"schedules"`
	Deletions  Deletions          `json:"deletions"`
}

func placeholder() storage.Document {
	return storage.Document{storage.IDField: nil}
}

// Orchestrator translates a validated composite request into one atomic set
// of store mutations and re-reads the written entities for the response. It
// owns no persistent state of its own.
type Orchestrator struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates an orchestrator on top of store.
func New(store storage.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{store: store, logger: logger}
}

// Upsert applies req on behalf of uid. Every staged write lands in a single
// batch; a commit failure leaves the store unchanged and surfaces as
// *CommitError.
func (o *Orchestrator) Upsert(ctx context.Context, uid string, req *Request) (*Result, error) {
	res := &Result{
		Form:       placeholder(),
		Event:      placeholder(),
		Completion: placeholder(),
		Schedules:  []storage.Document{},
		Deletions:  Deletions{Schedules: []string{}},
	}
	batch := o.store.Batch()

	completionDirty := req.Completion.Action == ActionCreate || req.Completion.Action == ActionUpdate

	// Resolve or allocate IDs up front; the completion's eventID and the
	// event's completionID pointer both need them before any write.
	eventID, hasEventID := req.Event.ID.Get()
	needsEventID := req.Event.Action == ActionCreate ||
		(req.Event.Action == ActionNone && completionDirty)
	if !hasEventID && needsEventID {
		eventID = o.store.NewID()
	}
	completionID, hasCompletionID := req.Completion.ID.Get()
	if !hasCompletionID && req.Completion.Action == ActionCreate {
		completionID = o.store.NewID()
	}

	// Event
	var eventWritten bool
	switch {
	case req.Event.Action == ActionDelete:
		if hasEventID {
			batch.Delete(storage.Events, eventID)
			res.Deletions.Event = eventID
		}
	case req.Event.Action == ActionCreate || req.Event.Action == ActionUpdate:
		fields := storage.Clone(req.Event.Fields)
		if completionDirty {
			fields["completionID"] = completionID
		}
		fields = stamps.ToInternal(fields)
		fields[storage.OwnerField] = uid
		batch.Set(storage.Events, eventID, fields, true)
		eventWritten = true
	case completionDirty:
		// The event itself is untouched; only its completion pointer moves.
		batch.Set(storage.Events, eventID, storage.Document{
			"completionID":     completionID,
			storage.OwnerField: uid,
		}, true)
		eventWritten = true
	}

	// Completion
	var completionWritten bool
	switch {
	case req.Completion.Action == ActionDelete:
		if hasCompletionID {
			batch.Delete(storage.Completions, completionID)
			res.Deletions.Completion = completionID
		}
	case completionDirty:
		fields := storage.Clone(req.Completion.Fields)
		fields["eventID"] = eventID
		fields = stamps.ToInternal(fields)
		fields[storage.OwnerField] = uid
		batch.Set(storage.Completions, completionID, fields, true)
		completionWritten = true
	}

	// Form
	formID, hasFormID := req.Form.ID.Get()
	var formWritten bool
	switch req.Form.Action {
	case ActionDelete:
		if hasFormID {
			batch.Delete(storage.Forms, formID)
			res.Deletions.Form = formID
		}
	case ActionCreate, ActionUpdate:
		if !hasFormID {
			formID = o.store.NewID()
		}
		fields := storage.Clone(req.Form.Fields)
		fields[storage.OwnerField] = uid
		batch.Set(storage.Forms, formID, fields, true)
		formWritten = true
	}

	// Schedules, in key order so responses are deterministic.
	schedKeys := make([]string, 0, len(req.Schedules))
	for key := range req.Schedules {
		schedKeys = append(schedKeys, key)
	}
	sort.Strings(schedKeys)

	writtenSchedules := []string{}
	for _, key := range schedKeys {
		ent := req.Schedules[key]
		id, hasID := ent.ID.Get()
		switch ent.Action {
		case ActionDelete:
			if !hasID {
				// client-only placeholder, nothing was ever persisted
				continue
			}
			batch.Delete(storage.Schedules, id)
			res.Deletions.Schedules = append(res.Deletions.Schedules, id)
		case ActionCreate, ActionUpdate:
			if !hasID {
				id = o.store.NewID()
			}
			fields := storage.Clone(ent.Fields)
			fields = stamps.ToInternal(fields)
			fields[storage.OwnerField] = uid
			batch.Set(storage.Schedules, id, fields, true)
			writtenSchedules = append(writtenSchedules, id)
		}
	}

	o.logger.Debug("composite batch staged",
		"owner", uid,
		"operations", batch.Len())

	if err := batch.Commit(ctx); err != nil {
		o.logger.Error("composite batch commit failed",
			"owner", uid,
			"error", err)
		return nil, &CommitError{Err: err}
	}

	// Authoritative re-read: written entities come back from the store, not
	// from the staged copies, so server-side write rules are reflected.
	if eventWritten {
		doc, err := o.readBack(ctx, storage.Events, eventID)
		if err != nil {
			return nil, err
		}
		res.Event = doc
	}
	if completionWritten {
		doc, err := o.readBack(ctx, storage.Completions, completionID)
		if err != nil {
			return nil, err
		}
		res.Completion = doc
	}
	if formWritten {
		doc, err := o.readBack(ctx, storage.Forms, formID)
		if err != nil {
			return nil, err
		}
		res.Form = doc
	}
	for _, id := range writtenSchedules {
		doc, err := o.readBack(ctx, storage.Schedules, id)
		if err != nil {
			return nil, err
		}
		res.Schedules = append(res.Schedules, doc)
	}

	o.logger.Info("composite upsert applied",
		"owner", uid,
		"event", res.Event[storage.IDField],
		"deleted_event", res.Deletions.Event,
		"schedules_written", len(writtenSchedules),
		"schedules_deleted", len(res.Deletions.Schedules))

	return res, nil
}

func (o *Orchestrator) readBack(ctx context.Context, col storage.Collection, id string) (storage.Document, error) {
	doc, err := o.store.Get(ctx, col, id)
	if err != nil {
		o.logger.Error("post-commit read failed",
			"collection", col,
			"id", id,
			"error", err)
		return nil, err
	}
	var wire storage.Document = stamps.ToWire(doc)
	return storage.WithID(id, wire), nil
}
