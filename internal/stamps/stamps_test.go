package stamps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWire(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "utc suffix",
			input: "2025-01-08T18:00:00Z",
			want:  time.Date(2025, 1, 8, 18, 0, 0, 0, time.UTC),
		},
		{
			name:  "explicit offset",
			input: "2025-01-08T13:00:00-05:00",
			want:  time.Date(2025, 1, 8, 18, 0, 0, 0, time.UTC),
		},
		{
			name:  "millisecond precision",
			input: "2025-01-08T18:00:00.250Z",
			want:  time.Date(2025, 1, 8, 18, 0, 0, 250_000_000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWire(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	// Any input offset must land on the same instant after a full cycle.
	inputs := []string{
		"2025-01-08T18:00:00Z",
		"2025-01-08T18:00:00.123Z",
		"2025-06-30T23:59:59+08:00",
		"2024-02-29T00:00:00-11:30",
	}
	for _, in := range inputs {
		first, err := ParseWire(in)
		require.NoError(t, err)
		second, err := ParseWire(FormatWire(first))
		require.NoError(t, err)
		assert.True(t, first.Equal(second), "round trip drifted for %s", in)
	}
}

func TestToInternal(t *testing.T) {
	doc := map[string]any{
		"startStamp": "2025-01-08T18:00:00Z",
		"endStamp":   "2025-01-08T16:00:00-05:00",
		"until":      time.Date(2025, 2, 1, 0, 0, 0, 0, time.FixedZone("EST", -5*3600)),
		"path":       "work/meetings",
		"interval":   float64(2),
	}

	got := ToInternal(doc)

	assert.Equal(t, time.Date(2025, 1, 8, 18, 0, 0, 0, time.UTC), got["startStamp"])
	assert.Equal(t, time.Date(2025, 1, 8, 21, 0, 0, 0, time.UTC), got["endStamp"])
	assert.Equal(t, time.UTC, got["until"].(time.Time).Location())
	assert.Equal(t, "work/meetings", got["path"])
	assert.Equal(t, float64(2), got["interval"])

	// input untouched
	assert.Equal(t, "2025-01-08T18:00:00Z", doc["startStamp"])
}

func TestToInternalBadStampPassesThrough(t *testing.T) {
	doc := map[string]any{"startStamp": "not-a-date", "endStamp": float64(42)}
	got := ToInternal(doc)
	assert.Equal(t, "not-a-date", got["startStamp"])
	assert.Equal(t, float64(42), got["endStamp"])
}

func TestToWire(t *testing.T) {
	doc := map[string]any{
		"startStamp":     time.Date(2025, 1, 8, 13, 0, 0, 0, time.FixedZone("EST", -5*3600)),
		"scheduleStart":  time.Date(2025, 1, 8, 9, 0, 0, 500_000_000, time.UTC),
		"completedStamp": time.Date(2025, 1, 9, 8, 0, 0, 0, time.UTC),
		"complete":       true,
	}

	got := ToWire(doc)

	assert.Equal(t, "2025-01-08T18:00:00.000Z", got["startStamp"])
	assert.Equal(t, "2025-01-08T09:00:00.500Z", got["scheduleStart"])
	assert.Equal(t, "2025-01-09T08:00:00.000Z", got["completedStamp"])
	assert.Equal(t, true, got["complete"])
}

func TestSliceConversions(t *testing.T) {
	docs := []map[string]any{
		{"startStamp": "2025-01-08T18:00:00Z"},
		{"until": "2025-03-01T00:00:00+02:00"},
	}

	internal := SliceToInternal(docs)
	require.Len(t, internal, 2)
	assert.IsType(t, time.Time{}, internal[0]["startStamp"])
	assert.IsType(t, time.Time{}, internal[1]["until"])

	wire := SliceToWire(internal)
	assert.Equal(t, "2025-01-08T18:00:00.000Z", wire[0]["startStamp"])
	assert.Equal(t, "2025-02-28T22:00:00.000Z", wire[1]["until"])
}
