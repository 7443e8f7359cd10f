package composite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/mo"

	"almanac/server/storage"
)

// ValidationError carries every violation found in a payload, so the caller
// can fix all of them in one round trip.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid composite payload: " + strings.Join(e.Violations, "; ")
}

var flagKeys = []string{"form", "event", "completion", "schedules"}

// flagSet is one decoded dirty/toDelete map.
type flagSet struct {
	Form       bool
	Event      bool
	Completion bool
	Schedules  map[string]bool
}

// Validate checks the raw composite payload structurally and referentially
// and produces the normalized request. All violations are collected; on any
// violation the request is nil and nothing may be written.
func Validate(raw map[string]any) (*Request, error) {
	var violations []string
	note := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	// 1. Top-level shape: six objects, empty permitted.
	form := asObject(raw, "form", note)
	event := asObject(raw, "event", note)
	schedules := asObject(raw, "schedules", note)
	completion := asObject(raw, "completion", note)
	dirtyRaw := asObject(raw, "dirty", note)
	deleteRaw := asObject(raw, "toDelete", note)

	// 2. Flag map shapes.
	dirty := decodeFlagSet("dirty", dirtyRaw, note)
	toDelete := decodeFlagSet("toDelete", deleteRaw, note)

	schedEntities := map[string]map[string]any{}
	for _, key := range sortedKeys(schedules) {
		obj, ok := schedules[key].(map[string]any)
		if !ok {
			note("schedules.%s: expected an object", key)
			continue
		}
		schedEntities[key] = obj
	}

	// 3. Key alignment between the schedule entity map and both flag maps.
	checkAlignment("dirty.schedules", schedules, dirty.Schedules, note)
	checkAlignment("toDelete.schedules", schedules, toDelete.Schedules, note)

	// 4. Cross-entity reference checks.
	formID := extractID("form", form, note)
	eventID := extractID("event", event, note)
	completionID := extractID("completion", completion, note)

	eventSchedule, hasEventSchedule := refField("event", event, "scheduleID", note)
	completionSchedule, hasCompletionSchedule := refField("completion", completion, "scheduleID", note)
	if hasEventSchedule && hasCompletionSchedule && eventSchedule != completionSchedule {
		note("event.scheduleID must match completion.scheduleID")
	}

	if ref, ok := refField("event", event, "completionID", note); ok {
		if id, present := completionID.Get(); !present || id != ref {
			note("event.completionID must match completion._id")
		}
	}

	if ref, ok := refField("completion", completion, "eventID", note); ok {
		if id, present := eventID.Get(); !present || id != ref {
			note("completion.eventID must match event._id")
		}
	}

	if dirtyRaw != nil && deleteRaw != nil && toDelete.Event != toDelete.Completion {
		note("toDelete.event must match toDelete.completion")
	}

	completionKey, _ := completion["key"].(string)
	creatingCompletion := dirty.Completion && completionID.IsAbsent()
	if (creatingCompletion || toDelete.Completion) && completionKey == "" {
		note("completion.key is required when creating or deleting a completion")
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	req := &Request{
		Form: Entity{
			ID:     formID,
			Fields: entityFields(form),
			Dirty:  dirty.Form,
			Remove: toDelete.Form,
		},
		Event: Entity{
			ID:     eventID,
			Fields: entityFields(event),
			Dirty:  dirty.Event,
			Remove: toDelete.Event,
		},
		Completion: Entity{
			ID:     completionID,
			Fields: completionFields(completion),
			Dirty:  dirty.Completion,
			Remove: toDelete.Completion,
		},
		CompletionKey: completionKey,
		Schedules:     map[string]Entity{},
	}
	req.Form.computeAction()
	req.Event.computeAction()
	req.Completion.computeAction()

	for key, fields := range schedEntities {
		ent := Entity{
			ID:     extractID("schedules."+key, fields, note),
			Fields: entityFields(fields),
			Dirty:  dirty.Schedules[key],
			Remove: toDelete.Schedules[key],
		}
		ent.computeAction()
		req.Schedules[key] = ent
	}

	return req, nil
}

// asObject pulls a required top-level object out of the payload.
func asObject(raw map[string]any, key string, note func(string, ...any)) map[string]any {
	v, ok := raw[key]
	if !ok {
		note("%s: expected an object", key)
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		note("%s: expected an object", key)
		return nil
	}
	return obj
}

// decodeFlagSet checks a dirty/toDelete map: exactly the four known keys,
// booleans for the entities, a string-to-boolean map for schedules.
func decodeFlagSet(name string, m map[string]any, note func(string, ...any)) flagSet {
	out := flagSet{Schedules: map[string]bool{}}
	if m == nil {
		return out
	}

	for _, key := range flagKeys {
		if _, ok := m[key]; !ok {
			note("%s: missing key %q", name, key)
		}
	}
	for _, key := range sortedKeys(m) {
		known := false
		for _, want := range flagKeys {
			if key == want {
				known = true
				break
			}
		}
		if !known {
			note("%s: unexpected key %q", name, key)
		}
	}

	boolFlag := func(key string) bool {
		v, ok := m[key]
		if !ok {
			return false
		}
		b, ok := v.(bool)
		if !ok {
			note("%s.%s: expected a boolean", name, key)
			return false
		}
		return b
	}
	out.Form = boolFlag("form")
	out.Event = boolFlag("event")
	out.Completion = boolFlag("completion")

	if v, ok := m["schedules"]; ok {
		sched, ok := v.(map[string]any)
		if !ok {
			note("%s.schedules: expected an object", name)
			return out
		}
		for _, key := range sortedKeys(sched) {
			b, ok := sched[key].(bool)
			if !ok {
				note("%s.schedules.%s: expected a boolean", name, key)
				continue
			}
			out.Schedules[key] = b
		}
	}
	return out
}

// checkAlignment requires the flag map and the entity map to share exactly
// the same keys; orphans on either side are violations.
func checkAlignment(name string, entities map[string]any, flags map[string]bool, note func(string, ...any)) {
	for _, key := range sortedKeys(entities) {
		if _, ok := flags[key]; !ok {
			note("%s: missing key %q", name, key)
		}
	}
	flagKeys := make([]string, 0, len(flags))
	for key := range flags {
		flagKeys = append(flagKeys, key)
	}
	sort.Strings(flagKeys)
	for _, key := range flagKeys {
		if _, ok := entities[key]; !ok {
			note("%s: unknown key %q", name, key)
		}
	}
}

// extractID pulls the optional _id out of an entity map. Null and empty
// string both mean "never persisted".
func extractID(name string, m map[string]any, note func(string, ...any)) mo.Option[string] {
	v, ok := m[storage.IDField]
	if !ok || v == nil {
		return mo.None[string]()
	}
	id, ok := v.(string)
	if !ok {
		note("%s._id: expected a string", name)
		return mo.None[string]()
	}
	if id == "" {
		return mo.None[string]()
	}
	return mo.Some(id)
}

// refField reads a weak-reference field, reporting whether a usable value is
// present.
func refField(entity string, m map[string]any, field string, note func(string, ...any)) (string, bool) {
	v, ok := m[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		note("%s.%s: expected a string", entity, field)
		return "", false
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// entityFields strips the _id bookkeeping key from an entity map.
func entityFields(m map[string]any) storage.Document {
	out := make(storage.Document, len(m))
	for k, v := range m {
		if k == storage.IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// completionFields additionally strips the client-assigned flag-map key,
// which is bookkeeping rather than entity content.
func completionFields(m map[string]any) storage.Document {
	out := entityFields(m)
	delete(out, "key")
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
