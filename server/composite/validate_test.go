package composite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// basePayload returns the smallest payload that passes validation: all six
// objects present, nothing dirty, nothing deleted.
func basePayload() map[string]any {
	return map[string]any{
		"form":       map[string]any{},
		"event":      map[string]any{},
		"schedules":  map[string]any{},
		"completion": map[string]any{},
		"dirty": map[string]any{
			"form": false, "event": false, "completion": false,
			"schedules": map[string]any{},
		},
		"toDelete": map[string]any{
			"form": false, "event": false, "completion": false,
			"schedules": map[string]any{},
		},
	}
}

func violationsOf(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Violations
}

func TestValidate_MinimalPayload(t *testing.T) {
	req, err := Validate(basePayload())
	require.NoError(t, err)

	assert.Equal(t, ActionNone, req.Form.Action)
	assert.Equal(t, ActionNone, req.Event.Action)
	assert.Equal(t, ActionNone, req.Completion.Action)
	assert.Empty(t, req.Schedules)
}

func TestValidate_TopLevelShape(t *testing.T) {
	payload := basePayload()
	delete(payload, "form")
	payload["event"] = "not an object"

	vs := violationsOf(t, mustFail(t, payload))
	assert.Contains(t, vs, "form: expected an object")
	assert.Contains(t, vs, "event: expected an object")
}

func mustFail(t *testing.T, payload map[string]any) error {
	t.Helper()
	req, err := Validate(payload)
	require.Error(t, err)
	require.Nil(t, req)
	return err
}

func TestValidate_FlagMapShape(t *testing.T) {
	payload := basePayload()
	payload["dirty"] = map[string]any{
		"form": "yes", "event": true,
		"schedules": map[string]any{"s1": "maybe"},
		"extra":     true,
	}

	vs := violationsOf(t, mustFail(t, payload))
	assert.Contains(t, vs, `dirty: missing key "completion"`)
	assert.Contains(t, vs, `dirty: unexpected key "extra"`)
	assert.Contains(t, vs, "dirty.form: expected a boolean")
	assert.Contains(t, vs, "dirty.schedules.s1: expected a boolean")
}

func TestValidate_ScheduleKeyAlignment(t *testing.T) {
	payload := basePayload()
	payload["schedules"] = map[string]any{"s1": map[string]any{}}
	payload["dirty"].(map[string]any)["schedules"] = map[string]any{"ghost": true}

	vs := violationsOf(t, mustFail(t, payload))
	assert.Contains(t, vs, `dirty.schedules: missing key "s1"`)
	assert.Contains(t, vs, `dirty.schedules: unknown key "ghost"`)
	assert.Contains(t, vs, `toDelete.schedules: missing key "s1"`)
}

func TestValidate_ScheduleMismatchAlwaysRejected(t *testing.T) {
	// dirty.schedules with a key the entity map lacks is never accepted,
	// regardless of flag values.
	payload := basePayload()
	payload["dirty"].(map[string]any)["schedules"] = map[string]any{"s9": false}
	payload["toDelete"].(map[string]any)["schedules"] = map[string]any{"s9": false}

	mustFail(t, payload)
}

func TestValidate_ScheduleIDMirror(t *testing.T) {
	payload := basePayload()
	payload["event"] = map[string]any{"scheduleID": "sched-1"}
	payload["completion"] = map[string]any{"scheduleID": "sched-2"}

	vs := violationsOf(t, mustFail(t, payload))
	assert.Contains(t, vs, "event.scheduleID must match completion.scheduleID")
}

func TestValidate_CompletionPointerMirror(t *testing.T) {
	t.Run("dangling event.completionID", func(t *testing.T) {
		payload := basePayload()
		payload["event"] = map[string]any{"completionID": "c1"}
		vs := violationsOf(t, mustFail(t, payload))
		assert.Contains(t, vs, "event.completionID must match completion._id")
	})

	t.Run("matching pair accepted", func(t *testing.T) {
		payload := basePayload()
		payload["event"] = map[string]any{"_id": "e1", "completionID": "c1"}
		payload["completion"] = map[string]any{"_id": "c1", "eventID": "e1"}
		_, err := Validate(payload)
		assert.NoError(t, err)
	})

	t.Run("mismatched completion.eventID", func(t *testing.T) {
		payload := basePayload()
		payload["event"] = map[string]any{"_id": "e1"}
		payload["completion"] = map[string]any{"_id": "c1", "eventID": "other"}
		vs := violationsOf(t, mustFail(t, payload))
		assert.Contains(t, vs, "completion.eventID must match event._id")
	})
}

func TestValidate_EventCompletionDeletedTogether(t *testing.T) {
	payload := basePayload()
	payload["event"] = map[string]any{"_id": "e1"}
	payload["toDelete"].(map[string]any)["event"] = true

	vs := violationsOf(t, mustFail(t, payload))
	assert.Contains(t, vs, "toDelete.event must match toDelete.completion")
}

func TestValidate_CompletionKeyRequired(t *testing.T) {
	payload := basePayload()
	payload["dirty"].(map[string]any)["completion"] = true
	payload["dirty"].(map[string]any)["event"] = true

	vs := violationsOf(t, mustFail(t, payload))
	assert.Contains(t, vs, "completion.key is required when creating or deleting a completion")

	// Same payload with a key passes.
	payload["completion"] = map[string]any{"key": "done-1"}
	req, err := Validate(payload)
	require.NoError(t, err)
	assert.Equal(t, "done-1", req.CompletionKey)
	// The key is bookkeeping, not entity content.
	assert.NotContains(t, req.Completion.Fields, "key")
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	payload := basePayload()
	delete(payload, "form")
	payload["event"] = map[string]any{"scheduleID": "a"}
	payload["completion"] = map[string]any{"scheduleID": "b"}
	payload["toDelete"].(map[string]any)["completion"] = true

	vs := violationsOf(t, mustFail(t, payload))
	require.GreaterOrEqual(t, len(vs), 3)
	// Shape violations come before referential ones.
	assert.Equal(t, "form: expected an object", vs[0])
}

func TestValidate_Actions(t *testing.T) {
	payload := basePayload()
	payload["form"] = map[string]any{"_id": "f1", "path": "work"}
	payload["event"] = map[string]any{"startStamp": "2025-01-08T18:00:00Z"}
	payload["schedules"] = map[string]any{
		"s1":    map[string]any{"_id": "s1"},
		"new_0": map[string]any{},
	}
	payload["dirty"] = map[string]any{
		"form": true, "event": true, "completion": false,
		"schedules": map[string]any{"s1": true, "new_0": true},
	}
	payload["toDelete"] = map[string]any{
		"form": false, "event": false, "completion": false,
		"schedules": map[string]any{"s1": false, "new_0": false},
	}

	req, err := Validate(payload)
	require.NoError(t, err)

	assert.Equal(t, ActionUpdate, req.Form.Action)
	assert.Equal(t, "f1", req.Form.ID.MustGet())
	assert.Equal(t, ActionCreate, req.Event.Action)
	assert.True(t, req.Event.ID.IsAbsent())
	assert.Equal(t, ActionNone, req.Completion.Action)
	assert.Equal(t, ActionUpdate, req.Schedules["s1"].Action)
	assert.Equal(t, ActionCreate, req.Schedules["new_0"].Action)
}

func TestValidate_DeleteWinsOverDirty(t *testing.T) {
	payload := basePayload()
	payload["event"] = map[string]any{"_id": "e1"}
	payload["completion"] = map[string]any{"_id": "c1", "key": "k1"}
	payload["dirty"].(map[string]any)["event"] = true
	payload["toDelete"].(map[string]any)["event"] = true
	payload["toDelete"].(map[string]any)["completion"] = true

	req, err := Validate(payload)
	require.NoError(t, err)
	assert.Equal(t, ActionDelete, req.Event.Action)
	assert.Equal(t, ActionDelete, req.Completion.Action)
}

func TestValidate_IDExtraction(t *testing.T) {
	t.Run("null id is absent", func(t *testing.T) {
		payload := basePayload()
		payload["form"] = map[string]any{"_id": nil}
		req, err := Validate(payload)
		require.NoError(t, err)
		assert.True(t, req.Form.ID.IsAbsent())
	})

	t.Run("non-string id rejected", func(t *testing.T) {
		payload := basePayload()
		payload["form"] = map[string]any{"_id": float64(7)}
		vs := violationsOf(t, mustFail(t, payload))
		assert.Contains(t, vs, "form._id: expected a string")
	})
}
