package usecase

import (
	"fmt"
	"strings"

	"github.com/akosterin/docqa/internal/core/domain"
)

// fieldFilter is one search-provider predicate: a schema field plus the
// values it should match. Multi-valued schema fields use ANY() syntax.
type fieldFilter struct {
	field  string
	multi  bool
	values []string
}

// schemaFilterField maps logical hint fields to search index schema fields.
func schemaFilterField(field domain.FilterField) (name string, multi bool, ok bool) {
	switch field {
	case domain.FilterOrganization:
		return "organization", false, true
	case domain.FilterTopic:
		// Tags is an array field in the index schema.
		return "tags", true, true
	default:
		return "", false, false
	}
}

// BuildFilterExpression turns filter hints into the search provider's boolean
// filter syntax. Returns "" when there is nothing to filter on.
func BuildFilterExpression(hints []domain.FilterHint, logic domain.FilterLogic) string {
	if len(hints) == 0 {
		return ""
	}

	filters := groupHintsByField(hints)
	if len(filters) == 0 {
		return ""
	}

	if logic == domain.FilterLogicAND {
		groups := make([]string, 0, len(filters))
		for _, f := range filters {
			groups = append(groups, renderFieldFilter(f))
		}
		if len(groups) == 1 {
			return groups[0]
		}
		return "(" + strings.Join(groups, ") AND (") + ")"
	}

	predicates := make([]string, 0, len(filters))
	for _, f := range filters {
		predicates = append(predicates, renderFieldFilter(f))
	}
	return strings.Join(predicates, " OR ")
}

func groupHintsByField(hints []domain.FilterHint) []fieldFilter {
	out := make([]fieldFilter, 0, len(hints))
	index := make(map[string]int, len(hints))

	for _, hint := range hints {
		name, multi, ok := schemaFilterField(hint.Field)
		if !ok || hint.Value == "" {
			continue
		}
		if i, seen := index[name]; seen {
			if !containsValue(out[i].values, hint.Value) {
				out[i].values = append(out[i].values, hint.Value)
			}
			continue
		}
		index[name] = len(out)
		out = append(out, fieldFilter{field: name, multi: multi, values: []string{hint.Value}})
	}
	return out
}

// renderFieldFilter emits one predicate. A scalar field with several values
// collapses into field: ANY(...) rather than repeating the field.
func renderFieldFilter(f fieldFilter) string {
	if f.multi || len(f.values) > 1 {
		quoted := make([]string, 0, len(f.values))
		for _, v := range f.values {
			quoted = append(quoted, fmt.Sprintf("%q", v))
		}
		return fmt.Sprintf("%s: ANY(%s)", f.field, strings.Join(quoted, ", "))
	}
	return fmt.Sprintf("%s: %q", f.field, f.values[0])
}

func containsValue(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
