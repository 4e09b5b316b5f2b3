// Package domain defines the sensor data model shared by every layer of the
// relay: individual records, ordered batches, and their XML wire form.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// TimestampLayout is the wire format for record timestamps: ISO-8601 with
// millisecond precision, "Z" for UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Reserved field names. Keys in a key-value add that match one of these are
// mapped onto the corresponding Record field; everything else becomes a
// property.
const (
	FieldTimestamp      = "Timestamp"
	FieldRuntime        = "Runtime"
	FieldOwner          = "Owner"
	FieldTool           = "Tool"
	FieldSensorDataType = "SensorDataType"
	FieldResource       = "Resource"
)

// DefaultTool is the tool name assigned when a key-value add omits "Tool".
const DefaultTool = "unknown"

// ErrInvalidRecord indicates a record that cannot be queued: a missing
// mandatory field, an unparseable timestamp, or a malformed property list.
var ErrInvalidRecord = errors.New("domain: invalid sensor data record")

var reservedFields = map[string]bool{
	FieldTimestamp:      true,
	FieldRuntime:        true,
	FieldOwner:          true,
	FieldTool:           true,
	FieldSensorDataType: true,
	FieldResource:       true,
}

// Property is one (key, value) pair in a record's optional property list.
type Property struct {
	Key   string
	Value string
}

// Record is a single telemetry event. Timestamp and Runtime carry
// millisecond precision; Resource is an opaque string, often a URI.
type Record struct {
	Timestamp      time.Time
	Runtime        time.Time
	Owner          string
	Tool           string
	SensorDataType string
	Resource       string
	Properties     []Property
}

// NewRecord builds a Record from a key-value map. The six reserved keys
// populate the fixed fields (Timestamp and Runtime default to now, Owner to
// defaultOwner, Tool to "unknown"); all remaining keys become properties,
// sorted by key so serialization is deterministic.
func NewRecord(keyVals map[string]string, defaultOwner string, now time.Time) (Record, error) {
	rec := Record{
		Owner:          defaultOwner,
		Tool:           DefaultTool,
		Timestamp:      now,
		Runtime:        now,
	}
	if v, ok := keyVals[FieldOwner]; ok {
		rec.Owner = v
	}
	if v, ok := keyVals[FieldTool]; ok {
		rec.Tool = v
	}
	if v, ok := keyVals[FieldSensorDataType]; ok {
		rec.SensorDataType = v
	}
	if v, ok := keyVals[FieldResource]; ok {
		rec.Resource = v
	}
	if v, ok := keyVals[FieldTimestamp]; ok {
		ts, err := ParseTimestamp(v)
		if err != nil {
			return Record{}, fmt.Errorf("%w: Timestamp %q: %v", ErrInvalidRecord, v, err)
		}
		rec.Timestamp = ts
	}
	if v, ok := keyVals[FieldRuntime]; ok {
		ts, err := ParseTimestamp(v)
		if err != nil {
			return Record{}, fmt.Errorf("%w: Runtime %q: %v", ErrInvalidRecord, v, err)
		}
		rec.Runtime = ts
	}

	keys := make([]string, 0, len(keyVals))
	for k := range keyVals {
		if !reservedFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.Properties = append(rec.Properties, Property{Key: k, Value: keyVals[k]})
	}
	return rec, nil
}

// Validate reports whether the record satisfies the invariants required for
// queueing: non-zero timestamps, non-empty Owner/Tool/SensorDataType, and a
// property list whose keys are unique and distinct from the field names.
func (r *Record) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: Timestamp is required", ErrInvalidRecord)
	}
	if r.Runtime.IsZero() {
		return fmt.Errorf("%w: Runtime is required", ErrInvalidRecord)
	}
	if r.Owner == "" {
		return fmt.Errorf("%w: Owner is required", ErrInvalidRecord)
	}
	if r.Tool == "" {
		return fmt.Errorf("%w: Tool is required", ErrInvalidRecord)
	}
	if r.SensorDataType == "" {
		return fmt.Errorf("%w: SensorDataType is required", ErrInvalidRecord)
	}
	seen := make(map[string]bool, len(r.Properties))
	for _, p := range r.Properties {
		if reservedFields[p.Key] {
			return fmt.Errorf("%w: property key %q collides with a field name", ErrInvalidRecord, p.Key)
		}
		if seen[p.Key] {
			return fmt.Errorf("%w: duplicate property key %q", ErrInvalidRecord, p.Key)
		}
		seen[p.Key] = true
	}
	return nil
}

// ParseTimestamp parses an ISO-8601 instant, with or without a fractional
// second.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// FormatTimestamp renders an instant in the wire format, normalized to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
