package summarizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/timeline/internal/model"
)

// MaxLen is the longest summary, in characters, before truncation.
const MaxLen = 260

const ellipsis = "…"

// Summarize returns a single-line description of an event.
func Summarize(e model.Event) string {
	return FromPayload(e.Type, model.DecodePayload(e))
}

// FromPayload renders the summary for an already decoded payload.
func FromPayload(eventType string, p model.Payload) string {
	switch p := p.(type) {
	case model.SessionStart:
		return normalize(fmt.Sprintf("Session started - %s v%s", or(p.Producer, "copilot"), or(p.CopilotVersion, "?")))
	case model.SessionInfo:
		return normalize(fmt.Sprintf("[%s] %s", or(p.InfoType, "info"), p.Message))
	case model.SessionEnd:
		return "Session ended"
	case model.SessionTruncation:
		return normalize(fmt.Sprintf("Truncation: %s tokens removed", or(p.TokensRemoved, "0")))
	case model.UserMessage:
		return normalize("User: " + p.Content)
	case model.AssistantMessage:
		if len(p.ToolNames) > 0 {
			return normalize("Assistant calls: " + strings.Join(p.ToolNames, ", "))
		}
		return normalize("Assistant: " + or(p.Content, "(no content)"))
	case model.TurnStart:
		return fmt.Sprintf("Turn %s started", or(p.TurnID, "?"))
	case model.TurnEnd:
		return fmt.Sprintf("Turn %s ended", or(p.TurnID, "?"))
	case model.ToolExecutionStart:
		keys := p.ArgumentKeys
		if len(keys) > 2 {
			keys = keys[:2]
		}
		preview := make([]string, len(keys))
		for i, k := range keys {
			preview[i] = k + "=..."
		}
		return normalize(fmt.Sprintf("⚡ %s(%s)", or(p.ToolName, "tool"), strings.Join(preview, ", ")))
	case model.ToolExecutionComplete:
		status := "✗"
		if p.Success {
			status = "✓"
		}
		return normalize(fmt.Sprintf("%s %s completed", status, or(p.ToolName, "tool")))
	default:
		return normalize(eventType)
	}
}

// normalize collapses whitespace runs to single spaces, trims the ends and
// caps the result at MaxLen characters.
func normalize(s string) string {
	return truncate(strings.Join(strings.Fields(s), " "), MaxLen)
}

// truncate shortens s to maxLen runes, the last of which is an ellipsis.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + ellipsis
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
