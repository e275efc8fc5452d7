package agent

import "strings"

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentAddTask      Intent = "add_task"
	IntentListTasks    Intent = "list_tasks"
	IntentCompleteTask Intent = "complete_task"
	IntentUpdateTask   Intent = "update_task"
	IntentDeleteTask   Intent = "delete_task"
	IntentUnknown      Intent = "unknown"
)

// Normalize prepares a raw utterance for classification and extraction.
func Normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

// Explicit verbs that signal task creation.
var addKeywords = []string{"add", "create", "make", "new", "put in", "enter", "remember"}

// Common phrases that imply task creation without an explicit verb.
var implicitTaskPhrases = []string{
	"i have to", "i need to", "i should", "i must", "i will", "i want to",
	"need to", "have to", "should", "must", "going to", "gonna",
	"remind me to", "don't forget to",
}

var taskRelated = []string{"task", "todo", "to do", "thing", "item"}

var listKeywords = []string{"list", "show", "display", "view", "see", "what", "my", "all", "current"}
var listTaskRelated = []string{"tasks", "todos", "to dos", "things", "items", "list"}

var completeKeywords = []string{"complete", "done", "finished", "finish", "mark as"}
var updateKeywords = []string{"update", "change", "modify", "edit", "alter", "switch"}
var deleteKeywords = []string{"delete", "remove", "erase", "get rid of", "cancel"}

func containsAny(message string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(message, t) {
			return true
		}
	}
	return false
}

func isAddIntent(message string) bool {
	hasAdd := containsAny(message, addKeywords)
	hasImplicit := containsAny(message, implicitTaskPhrases)
	hasTaskWord := containsAny(message, taskRelated)
	return hasAdd || hasImplicit || (hasTaskWord && hasAdd)
}

func isListIntent(message string) bool {
	return (containsAny(message, listKeywords) && containsAny(message, listTaskRelated)) ||
		strings.Contains(message, "my tasks")
}

func isCompleteIntent(message string) bool {
	return containsAny(message, completeKeywords) && containsAny(message, taskRelated)
}

func isUpdateIntent(message string) bool {
	return containsAny(message, updateKeywords) && containsAny(message, taskRelated)
}

func isDeleteIntent(message string) bool {
	return containsAny(message, deleteKeywords) && containsAny(message, taskRelated)
}

type intentRule struct {
	intent Intent
	match  func(string) bool
}

// intentRules is evaluated top to bottom and the first hit wins. The
// ordering resolves ambiguous utterances ("update my task list" matches
// both list and update predicates) deterministically; changing it
// changes observable classification.
var intentRules = []intentRule{
	{IntentAddTask, isAddIntent},
	{IntentListTasks, isListIntent},
	{IntentCompleteTask, isCompleteIntent},
	{IntentUpdateTask, isUpdateIntent},
	{IntentDeleteTask, isDeleteIntent},
}

// Classify maps a normalized utterance to exactly one intent. Pure:
// no state, same input always yields the same intent.
func Classify(normalized string) Intent {
	for _, rule := range intentRules {
		if rule.match(normalized) {
			return rule.intent
		}
	}
	return IntentUnknown
}
