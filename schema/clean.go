package schema

// Clean returns a copy of v with nil-valued object properties removed at
// every nesting depth, recursing through arrays. Non-nil falsy values
// (0, false, "") are preserved. Inputs are JSON-model values
// (map[string]any, []any, scalars); other values pass through untouched.
func Clean(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if item == nil {
				continue
			}
			out[k] = Clean(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Clean(item)
		}
		return out
	default:
		return v
	}
}
