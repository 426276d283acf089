/**
 * Fragment aggregation.
 *
 * Business types merge fragments into a name-keyed map so repeated mentions
 * of the same entity accumulate, filtering out the "does not exist"
 * placeholders models emit for absent information. Essential types flatten
 * fragment values into a single list.
 */

package annotate

import (
	"sort"
	"strings"
)

var placeholderMarkers = []string{"does not exist", "none"}

// IsItemValid reports whether a keyed fragment item carries real content.
// Empty items, empty keys or values, and placeholder answers are all
// rejected.
func IsItemValid(key string, item map[string]any) bool {
	if len(item) == 0 || !valuePresent(key) {
		return false
	}
	if containsPlaceholder(key) {
		return false
	}
	for _, value := range item {
		text, ok := value.(string)
		if ok && (!valuePresent(text) || containsPlaceholder(text)) {
			return false
		}
		if !ok && value == nil {
			return false
		}
	}
	return true
}

func valuePresent(s string) bool {
	return strings.TrimSpace(s) != ""
}

func containsPlaceholder(s string) bool {
	lowered := strings.ToLower(s)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// AggregateBusiness merges fragments keyed by entity name. Each fragment
// maps names to detail objects; details for a recurring name append under
// that name.
func AggregateBusiness(fragments []Fragment) map[string][]map[string]any {
	merged := make(map[string][]map[string]any)
	for _, fragment := range fragments {
		for key, value := range fragment {
			item, ok := value.(map[string]any)
			if !ok || !IsItemValid(key, item) {
				continue
			}
			merged[key] = append(merged[key], item)
		}
	}
	return merged
}

// AggregateList flattens fragments into one list: each fragment contributes
// its values, in key order so output is deterministic
func AggregateList(fragments []Fragment) []any {
	var items []any
	for _, fragment := range fragments {
		keys := make([]string, 0, len(fragment))
		for key := range fragment {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			items = append(items, fragment[key])
		}
	}
	return items
}
