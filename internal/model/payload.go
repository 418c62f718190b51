package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Known event types.
const (
	TypeSessionStart          = "session.start"
	TypeSessionInfo           = "session.info"
	TypeSessionEnd            = "session.end"
	TypeSessionTruncation     = "session.truncation"
	TypeUserMessage           = "user.message"
	TypeAssistantMessage      = "assistant.message"
	TypeAssistantTurnStart    = "assistant.turn_start"
	TypeAssistantTurnEnd      = "assistant.turn_end"
	TypeToolExecutionStart    = "tool.execution_start"
	TypeToolExecutionComplete = "tool.execution_complete"
)

// Payload is the decoded shape of an event's data, selected by its type.
// String fields hold "" when the source value was absent or falsy
// (null, false, 0, ""), so callers apply their own fallbacks.
type Payload interface {
	payload()
}

type SessionStart struct {
	Producer       string
	CopilotVersion string
}

type SessionInfo struct {
	InfoType string
	Message  string
}

type SessionEnd struct{}

type SessionTruncation struct {
	TokensRemoved string
}

type UserMessage struct {
	Content string
}

type AssistantMessage struct {
	Content   string
	ToolNames []string // one per entry of toolRequests, "" when the entry has no name
}

type TurnStart struct {
	TurnID string
}

type TurnEnd struct {
	TurnID string
}

type ToolExecutionStart struct {
	ToolName     string
	ArgumentKeys []string // in source order
}

type ToolExecutionComplete struct {
	ToolName string
	Success  bool
}

// Unknown carries the data of any type without a dedicated variant.
type Unknown struct {
	Type   string
	Fields map[string]any
}

func (SessionStart) payload()          {}
func (SessionInfo) payload()           {}
func (SessionEnd) payload()            {}
func (SessionTruncation) payload()     {}
func (UserMessage) payload()           {}
func (AssistantMessage) payload()      {}
func (TurnStart) payload()             {}
func (TurnEnd) payload()               {}
func (ToolExecutionStart) payload()    {}
func (ToolExecutionComplete) payload() {}
func (Unknown) payload()               {}

// DecodePayload maps an event onto its Payload variant. It never fails:
// fields of an unexpected JSON type are treated like any other value.
func DecodePayload(e Event) Payload {
	f := e.Fields()
	switch e.Type {
	case TypeSessionStart:
		return SessionStart{Producer: Text(f["producer"]), CopilotVersion: Text(f["copilotVersion"])}
	case TypeSessionInfo:
		return SessionInfo{InfoType: Text(f["infoType"]), Message: Text(f["message"])}
	case TypeSessionEnd:
		return SessionEnd{}
	case TypeSessionTruncation:
		return SessionTruncation{TokensRemoved: Text(f["tokensRemovedDuringTruncation"])}
	case TypeUserMessage:
		return UserMessage{Content: Text(f["content"])}
	case TypeAssistantMessage:
		msg := AssistantMessage{Content: Text(f["content"])}
		if reqs, ok := f["toolRequests"].([]any); ok {
			for _, r := range reqs {
				name := ""
				if m, ok := r.(map[string]any); ok {
					name = String(m["name"])
				}
				msg.ToolNames = append(msg.ToolNames, name)
			}
		}
		return msg
	case TypeAssistantTurnStart:
		return TurnStart{TurnID: Text(f["turnId"])}
	case TypeAssistantTurnEnd:
		return TurnEnd{TurnID: Text(f["turnId"])}
	case TypeToolExecutionStart:
		return ToolExecutionStart{ToolName: Text(f["toolName"]), ArgumentKeys: objectKeys(e.Data, "arguments")}
	case TypeToolExecutionComplete:
		return ToolExecutionComplete{ToolName: Text(f["toolName"]), Success: Truthy(f["success"])}
	default:
		return Unknown{Type: e.Type, Fields: f}
	}
}

// Truthy reports whether v would be considered true in a boolean context:
// everything except null, false, 0, NaN and the empty string.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || (f != 0 && !math.IsNaN(f))
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

// Text returns String(v) for truthy values and "" otherwise.
func Text(v any) string {
	if !Truthy(v) {
		return ""
	}
	return String(v)
}

// String renders a decoded JSON value the way string interpolation does:
// arrays join their elements with commas, objects render as "[object Object]",
// null renders as "".
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return formatNumber(t)
	case float64:
		return formatFloat(t)
	case []any:
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = String(el)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return ""
	}
}

func formatNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return formatFloat(f)
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// objectKeys returns the keys of the object at data[field] in source order.
// Non-object values yield nil.
func objectKeys(data json.RawMessage, field string) []string {
	if len(data) == 0 {
		return nil
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil
	}
	raw, ok := outer[field]
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}

	var keys []string
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, _ := tok.(string)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}
