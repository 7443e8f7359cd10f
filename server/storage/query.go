package storage

import "time"

// Matches reports whether doc satisfies opts for the given owner. Backends
// share this so equality/range semantics stay identical across them.
func Matches(doc Document, ownerID string, opts *ListOptions) bool {
	if owner, _ := doc[OwnerField].(string); owner != ownerID {
		return false
	}
	if opts == nil {
		return true
	}
	for field, want := range opts.Where {
		if doc[field] != want {
			return false
		}
	}
	if opts.Start != nil {
		end, ok := doc["endStamp"].(time.Time)
		if !ok || end.Before(*opts.Start) {
			return false
		}
	}
	if opts.End != nil {
		start, ok := doc["startStamp"].(time.Time)
		if !ok || !start.Before(*opts.End) {
			return false
		}
	}
	return true
}
