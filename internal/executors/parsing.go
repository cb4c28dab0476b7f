package executors

import (
	"encoding/json"
	"strings"

	"github.com/nibzard/agentmux/internal/msgstore"
)

// classifyEventKind maps a raw JSON event to a normalized entry kind.
func classifyEventKind(raw map[string]any) string {
	if raw == nil {
		return "assistant_message"
	}
	if msgType, ok := raw["type"].(string); ok {
		switch msgType {
		case "tool_use", "tool_result", "tool", "tool_call":
			return "tool"
		case "command":
			return "command"
		case "error":
			return "error"
		}
	}
	if _, ok := raw["command"]; ok {
		return "command"
	}
	if _, ok := raw["tool"]; ok {
		return "tool"
	}
	if _, ok := raw["tool_name"]; ok {
		return "tool"
	}
	return "assistant_message"
}

func extractToolName(raw map[string]any) string {
	if raw == nil {
		return ""
	}
	if tool, ok := raw["tool"].(string); ok {
		return tool
	}
	if tool, ok := raw["tool_name"].(string); ok {
		return tool
	}
	if name, ok := raw["name"].(string); ok && classifyEventKind(raw) == "tool" {
		return name
	}
	if toolUse, ok := raw["tool_use"].(map[string]any); ok {
		if name, ok := toolUse["name"].(string); ok {
			return name
		}
	}
	return ""
}

func extractSessionID(raw map[string]any) string {
	if raw == nil {
		return ""
	}
	if id, ok := raw["session_id"].(string); ok {
		return id
	}
	if id, ok := raw["sessionId"].(string); ok {
		return id
	}
	if conv, ok := raw["conversation_id"].(string); ok {
		return conv
	}
	return ""
}

func textFromContent(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
	case []any:
		var parts []string
		for _, item := range v {
			switch typed := item.(type) {
			case string:
				if typed != "" {
					parts = append(parts, typed)
				}
			case map[string]any:
				if text, ok := typed["text"].(string); ok && text != "" {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

func extractTextFromMessage(raw map[string]any) string {
	if raw == nil {
		return ""
	}
	if message, ok := raw["message"].(map[string]any); ok {
		if text := textFromContent(message["content"]); text != "" {
			return text
		}
	}
	if text := textFromContent(raw["content"]); text != "" {
		return text
	}
	if text, ok := raw["text"].(string); ok {
		return text
	}
	return ""
}

// normalizeJSONLine turns one raw output line into a normalized entry.
// Non-JSON lines become assistant messages verbatim.
func normalizeJSONLine(line string) msgstore.NormalizedEntry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return msgstore.NormalizedEntry{Kind: "assistant_message", Content: line}
	}

	if id := extractSessionID(raw); id != "" {
		if msgType, _ := raw["type"].(string); msgType == "system" || msgType == "init" || msgType == "session.created" {
			return msgstore.NormalizedEntry{Kind: "session_start", SessionID: id}
		}
	}

	entry := msgstore.NormalizedEntry{Kind: classifyEventKind(raw)}
	if text := extractTextFromMessage(raw); text != "" {
		entry.Content = text
	} else {
		entry.Content = line
	}
	if tool := extractToolName(raw); tool != "" {
		entry.Tool = tool
	}
	return entry
}

// normalizeStream consumes raw records from the store and pushes normalized
// entries until the store closes. relabel lets a backend post-process each
// entry; nil keeps entries as-is.
func normalizeStream(store *msgstore.Store, relabel func(msgstore.NormalizedEntry) msgstore.NormalizedEntry) {
	records, cancel := store.Subscribe()
	go func() {
		defer cancel()
		for rec := range records {
			var entry msgstore.NormalizedEntry
			switch rec.Kind {
			case msgstore.KindStdout:
				entry = normalizeJSONLine(rec.Line)
			case msgstore.KindStderr:
				entry = msgstore.NormalizedEntry{Kind: "error", Content: rec.Line}
			default:
				continue
			}
			if relabel != nil {
				entry = relabel(entry)
			}
			store.PushNormalized(entry)
		}
	}()
}
