// Package composite implements the composite upsert engine: one request
// describing changes to an event, its owning form, zero or more schedules
// and an optional completion record, validated and applied as a single
// atomic batch.
package composite

import (
	"github.com/samber/mo"

	"almanac/server/storage"
)

// Action is the per-entity decision derived from the client-declared dirty
// and delete flags. Delete wins over dirty; dirty wins over no-op.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// Entity is one validated member of the composite payload.
type Entity struct {
	// ID is the store-assigned document ID, absent for entities that have
	// never been persisted.
	ID mo.Option[string]
	// Fields holds the entity's content with bookkeeping keys stripped.
	Fields storage.Document
	// Dirty and Remove are the caller-declared flags.
	Dirty  bool
	Remove bool
	// Action is computed from the flags once validation has passed.
	Action Action
}

func (e *Entity) computeAction() {
	switch {
	case e.Remove:
		e.Action = ActionDelete
	case e.Dirty && e.ID.IsPresent():
		e.Action = ActionUpdate
	case e.Dirty:
		e.Action = ActionCreate
	default:
		e.Action = ActionNone
	}
}

// Request is the normalized composite payload produced by Validate.
type Request struct {
	Form       Entity
	Event      Entity
	Completion Entity
	// CompletionKey is the client-assigned key linking the completion's
	// flags to the entity; required when the completion is created or
	// deleted.
	CompletionKey string
	// Schedules is keyed by the client's schedule keys (a document ID for
	// persisted schedules, a client-only placeholder otherwise).
	Schedules map[string]Entity
}
