// Package stamps converts temporal fields between the ISO-8601 wire format
// and the store-native time.Time representation. Only a fixed set of field
// names is touched; everything else passes through untouched.
package stamps

import (
	"time"
)

// WireFormat is the output layout: always UTC with a literal Z suffix and
// millisecond precision.
const WireFormat = "2006-01-02T15:04:05.000Z"

// Fields lists the temporal field names subject to conversion.
var Fields = []string{
	"startStamp", "endStamp", "until", "scheduleStart",
	"createdStamp", "completedStamp",
}

// ParseWire parses a wire-format timestamp. A trailing Z or an explicit
// offset are both accepted; the result is normalized to UTC.
func ParseWire(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatWire renders t in the wire format, normalized to UTC.
func FormatWire(t time.Time) string {
	return t.UTC().Format(WireFormat)
}

// ToInternal returns a copy of doc with every temporal field converted to a
// UTC time.Time. Strings that fail to parse are left as-is rather than
// reported; a bad stamp is the caller's value to keep.
func ToInternal(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, field := range Fields {
		v, ok := out[field]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if t, err := ParseWire(val); err == nil {
				out[field] = t
			}
		case time.Time:
			out[field] = val.UTC()
		}
	}
	return out
}

// ToWire returns a copy of doc with every temporal time.Time field rendered
// in the wire format. Non-temporal values pass through unchanged.
func ToWire(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, field := range Fields {
		if t, ok := out[field].(time.Time); ok {
			out[field] = FormatWire(t)
		}
	}
	return out
}

// SliceToInternal applies ToInternal over a list of documents.
func SliceToInternal(docs []map[string]any) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = ToInternal(d)
	}
	return out
}

// SliceToWire applies ToWire over a list of documents.
func SliceToWire(docs []map[string]any) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = ToWire(d)
	}
	return out
}
