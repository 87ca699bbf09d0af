package version

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"lifeplan-backend/internal/domain"
	"lifeplan-backend/internal/registry"
)

// Diff returns the registry field keys whose normalized values differ between
// a draft's content and its parent's. Pure function: identical inputs always
// produce identical output, and Diff(x, x) is empty. Result order follows the
// registry.
func Diff(documentType domain.DocumentType, draft, parent domain.FieldContent) []string {
	changed := []string{}
	for _, f := range registry.Fields(documentType) {
		if normalizeValue(draft[f.Key]) != normalizeValue(parent[f.Key]) {
			changed = append(changed, f.Key)
		}
	}
	return changed
}

// normalizeValue reduces a content value to a canonical comparable string:
// strings are trimmed, booleans and numbers stringified, structured values
// serialized to JSON (map keys marshal sorted, so the form is stable).
func normalizeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case json.Number:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// SectionsTouched maps refined field keys to their sections: a section is
// touched iff any of its fields was marked refined. Keys unknown to the
// registry are ignored. Result order follows the registry's section order.
func SectionsTouched(documentType domain.DocumentType, refinedFields []string) []string {
	refined := make(map[string]bool, len(refinedFields))
	for _, key := range refinedFields {
		refined[key] = true
	}

	touched := []string{}
	seen := map[string]bool{}
	for _, f := range registry.Fields(documentType) {
		if refined[f.Key] && !seen[f.Section] {
			seen[f.Section] = true
			touched = append(touched, f.Section)
		}
	}
	return touched
}
