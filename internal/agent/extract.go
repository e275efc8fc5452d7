package agent

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Prefixes checked in order; the first match is stripped. More
// specific forms come before their shorter variants.
var explicitAddPrefixes = []string{
	"add task ", "create task ", "make task ", "new task ",
	"add a task ", "create a task ", "make a task ",
	"add ", "create ", "make ", "new ",
	"remind me to ", "remember to ", "don't forget to ",
}

var implicitAddPrefixes = []string{
	"i have to ", "i need to ", "i should ", "i must ", "i will ", "i want to ",
	"need to ", "have to ", "should ", "must ", "going to ", "gonna ",
	"add a task that ", "create a task that ",
}

// Leading filler between the verb phrase and the task title proper.
var connectorWords = []string{"to ", "that ", "task ", "a task ", "the task "}

// ExtractTaskDetails pulls the task title out of an add-intent
// utterance. Returns ok=false when the remainder is too short to be a
// real title, which the composer turns into a clarification request.
func ExtractTaskDetails(normalized string) (title, description string, ok bool) {
	remainder := strings.TrimSpace(normalized)

	for _, prefix := range explicitAddPrefixes {
		if strings.HasPrefix(remainder, prefix) {
			remainder = strings.TrimSpace(remainder[len(prefix):])
			break
		}
	}

	for _, phrase := range implicitAddPrefixes {
		if strings.HasPrefix(remainder, phrase) {
			remainder = strings.TrimSpace(remainder[len(phrase):])
			break
		}
	}

	for _, word := range connectorWords {
		if strings.HasPrefix(remainder, word) {
			remainder = strings.TrimSpace(remainder[len(word):])
		}
	}

	if len(remainder) > 2 {
		return capitalize(remainder), "", true
	}
	return "", "", false
}

// ExtractStatusFilter finds a status keyword in a list-intent
// utterance. Empty string means no filter. Evaluation order matters:
// "done" is checked before "not done".
func ExtractStatusFilter(normalized string) string {
	switch {
	case strings.Contains(normalized, "completed") || strings.Contains(normalized, "done"):
		return "completed"
	case strings.Contains(normalized, "pending") || strings.Contains(normalized, "not done"):
		return "pending"
	case strings.Contains(normalized, "in progress"):
		return "in_progress"
	}
	return ""
}

var identifierStopWords = map[string]bool{
	"complete": true, "done": true, "finish": true, "mark": true,
	"update": true, "change": true, "delete": true, "remove": true, "as": true,
}

// ExtractTaskIdentifier pulls a free-form task reference out of a
// complete/delete utterance. Empty when nothing usable survives.
func ExtractTaskIdentifier(normalized string) string {
	msg := strings.ReplaceAll(normalized, "the task", "")
	msg = strings.ReplaceAll(msg, "that task", "")
	msg = strings.ReplaceAll(msg, "task", "")

	var kept []string
	for _, word := range strings.Fields(msg) {
		if identifierStopWords[word] || len(word) <= 2 {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

var updateFillerWords = map[string]bool{
	"update": true, "change": true, "modify": true, "edit": true,
	"alter": true, "switch": true, "task": true, "the": true, "a": true,
}

// ExtractTaskAndNewTitle splits an update utterance on the first
// occurrence of the word "to": the left side (minus update verbs and
// filler) identifies the task, the right side is the new title.
func ExtractTaskAndNewTitle(normalized string) (identifier, newTitle string, ok bool) {
	padded := " " + normalized + " "
	i := strings.Index(padded, " to ")
	if i < 0 {
		return "", "", false
	}

	left := strings.TrimSpace(padded[:i])
	right := strings.TrimSpace(padded[i+len(" to "):])

	var kept []string
	for _, word := range strings.Fields(left) {
		if updateFillerWords[word] {
			continue
		}
		kept = append(kept, word)
	}
	identifier = strings.Join(kept, " ")

	if identifier == "" || right == "" {
		return "", "", false
	}
	return identifier, capitalize(right), true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
