package record

import "strings"

// VisitStrings walks an arbitrarily nested value of lists, maps and leaves,
// applying fn to every string leaf and returning the rewritten structure.
// Non-string, non-container values pass through untouched.
func VisitStrings(v any, fn func(string) string) any {
	switch node := v.(type) {
	case string:
		return fn(node)
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = VisitStrings(item, fn)
		}
		return out
	case []string:
		out := make([]string, len(node))
		for i, item := range node {
			out[i] = fn(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, item := range node {
			out[k] = VisitStrings(item, fn)
		}
		return out
	default:
		return v
	}
}

// ConcatStrings joins every string leaf reachable from v, depth first,
// separated by newlines. Leaves rejected by keep are replaced with the empty
// string, matching the corpus-building behaviour of the language tagger.
func ConcatStrings(v any, keep func(string) bool) string {
	switch node := v.(type) {
	case string:
		if keep != nil && !keep(node) {
			return ""
		}
		return node
	case []any:
		parts := make([]string, len(node))
		for i, item := range node {
			parts[i] = ConcatStrings(item, keep)
		}
		return strings.Join(parts, "\n")
	case []string:
		parts := make([]string, len(node))
		for i, item := range node {
			parts[i] = ConcatStrings(item, keep)
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		parts := make([]string, 0, len(node))
		for _, item := range node {
			parts = append(parts, ConcatStrings(item, keep))
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// DeepCopyValue clones nested lists and maps so translation merging can
// mutate copies without aliasing the canonical record.
func DeepCopyValue(v any) any {
	switch node := v.(type) {
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = DeepCopyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), node...)
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, item := range node {
			out[k] = DeepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
