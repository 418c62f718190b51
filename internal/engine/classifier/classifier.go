package classifier

import "strings"

// Categories derived from the namespace of an event type.
const (
	Session   = "session"
	User      = "user"
	Assistant = "assistant"
	Tool      = "tool"
	Other     = "other"
)

// Result holds the derived classification of a single event type.
type Result struct {
	Category string
	Badge    string
}

// Category returns the namespace before the first "." of eventType when it
// is one of the recognized prefixes, and Other otherwise. A type without a
// dot has no namespace.
func Category(eventType string) string {
	ns, _, ok := strings.Cut(eventType, ".")
	if !ok {
		return Other
	}
	switch ns {
	case Session, User, Assistant, Tool:
		return ns
	default:
		return Other
	}
}

// Badge maps a category to its display tag.
func Badge(category string) string {
	switch category {
	case Session, User, Assistant, Tool:
		return "badge-" + category
	default:
		return "badge-info"
	}
}

// Classify derives both the category and badge for eventType.
func Classify(eventType string) Result {
	c := Category(eventType)
	return Result{Category: c, Badge: Badge(c)}
}
