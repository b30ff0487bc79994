package audit

import (
	"reflect"
	"sort"
)

// FieldChange is a single field-level difference between two snapshots.
type FieldChange struct {
	Field string      `json:"field"`
	From  interface{} `json:"from"`
	To    interface{} `json:"to"`
}

// Diff compares two snapshots and returns the changed fields sorted by name.
// A nil snapshot is treated as empty, so a create diffs every field.
func Diff(before, after map[string]interface{}) []FieldChange {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	fields := make([]string, 0, len(keys))
	for k := range keys {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	changes := make([]FieldChange, 0)
	for _, field := range fields {
		from, to := before[field], after[field]
		if reflect.DeepEqual(from, to) {
			continue
		}
		changes = append(changes, FieldChange{Field: field, From: from, To: to})
	}
	return changes
}

// ChangesToMaps converts changes into plain maps for JSON metadata columns.
func ChangesToMaps(changes []FieldChange) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(changes))
	for _, c := range changes {
		out = append(out, map[string]interface{}{"field": c.Field, "from": c.From, "to": c.To})
	}
	return out
}
