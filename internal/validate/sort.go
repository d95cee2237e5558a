package validate

import "sort"

// SortedKeys returns a sorted copy of a map's string keys, used wherever
// subscriber fan-out or roster listing needs deterministic iteration order.
func SortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
