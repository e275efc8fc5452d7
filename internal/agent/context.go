package agent

import "strings"

// DefaultContextMessages bounds how many recent messages feed the
// conversation context.
const DefaultContextMessages = 10

// MessageView is the slice of a stored message the agent cares about.
type MessageView struct {
	Role    string
	Content string
}

// Context is a transient, per-request projection of recent
// conversation history: message texts oldest to newest, a count, and
// the distinct speaker roles seen. It is never persisted.
type Context struct {
	RecentMessages []string
	MessageCount   int
	Participants   map[string]bool
}

// BuildContext derives a Context from recent messages ordered oldest
// to newest, keeping at most limit of the newest ones.
func BuildContext(messages []MessageView, limit int) Context {
	if limit <= 0 {
		limit = DefaultContextMessages
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	ctx := Context{
		MessageCount: len(messages),
		Participants: make(map[string]bool),
	}
	for _, m := range messages {
		ctx.RecentMessages = append(ctx.RecentMessages, m.Content)
		ctx.Participants[m.Role] = true
	}
	return ctx
}

// Empty reports whether the context carries no usable history.
func (c Context) Empty() bool {
	return len(c.RecentMessages) == 0
}

var contextTaskIndicators = []string{"task", "to do", "todo", "need to", "have to", "should"}

var carryoverTriggers = map[string]bool{"add": true, "create": true, "make": true, "task": true}

// RecentTasksMentioned scans the context for task-like phrases: in any
// message containing a task indicator, the up-to-three words following
// a trigger word or the connector "to" become a candidate. Candidates
// are deduplicated case-insensitively preserving first-seen order.
func RecentTasksMentioned(c Context) []string {
	var mentioned []string

	for _, message := range c.RecentMessages {
		lower := strings.ToLower(message)
		if !containsAny(lower, contextTaskIndicators) {
			continue
		}

		words := strings.Fields(message)
		for i, word := range words {
			wl := strings.ToLower(word)
			if carryoverTriggers[wl] && i+1 < len(words) {
				if candidate := phraseAfter(words, i); candidate != "" {
					mentioned = append(mentioned, candidate)
				}
			}
			if wl == "to" && i+1 < len(words) {
				if candidate := phraseAfter(words, i); candidate != "" {
					mentioned = append(mentioned, candidate)
				}
			}
		}
	}

	seen := make(map[string]bool)
	var unique []string
	for _, m := range mentioned {
		key := strings.ToLower(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, m)
	}
	return unique
}

// InferIdentifier substitutes a missing task identifier with the most
// recently mentioned task phrase from conversation history. Empty when
// the context offers nothing.
func InferIdentifier(c Context) string {
	mentioned := RecentTasksMentioned(c)
	if len(mentioned) == 0 {
		return ""
	}
	return mentioned[len(mentioned)-1]
}

// phraseAfter joins up to three words following index i.
func phraseAfter(words []string, i int) string {
	end := i + 4
	if end > len(words) {
		end = len(words)
	}
	return strings.TrimSpace(strings.Join(words[i+1:end], " "))
}
