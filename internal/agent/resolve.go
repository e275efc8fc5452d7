package agent

import (
	"strings"

	"todo-agent-backend/internal/tools"
)

// Resolve finds the task a free-form identifier refers to, using three
// case-insensitive tiers in order: exact title match, identifier as a
// substring of the title, then any shared token between identifier and
// title. Within a tier the first match in the slice's order wins, so
// the caller's listing order is the tie-break. Nil when nothing
// matches or the identifier is empty.
func Resolve(candidates []tools.TaskSnapshot, identifier string) *tools.TaskSnapshot {
	if identifier == "" {
		return nil
	}
	needle := strings.ToLower(identifier)

	for i := range candidates {
		if strings.ToLower(candidates[i].Title) == needle {
			return &candidates[i]
		}
	}

	for i := range candidates {
		if strings.Contains(strings.ToLower(candidates[i].Title), needle) {
			return &candidates[i]
		}
	}

	needleTokens := strings.Fields(needle)
	for i := range candidates {
		titleTokens := make(map[string]bool)
		for _, t := range strings.Fields(strings.ToLower(candidates[i].Title)) {
			titleTokens[t] = true
		}
		for _, t := range needleTokens {
			if titleTokens[t] {
				return &candidates[i]
			}
		}
	}

	return nil
}
