package transcript

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// CodexNormalizer normalizes Codex CLI exec JSON events. Codex lines are
// complete units, so the normalizer keeps no state between calls.
type CodexNormalizer struct{}

// NewCodexNormalizer creates a new Codex normalizer.
func NewCodexNormalizer() *CodexNormalizer {
	return &CodexNormalizer{}
}

// Provider returns the provider name.
func (n *CodexNormalizer) Provider() string {
	return string(ProviderCodex)
}

// NormalizeLine normalizes a single Codex JSONL line. Lines without a
// recognizable type are ignored; malformed JSON is a *ParseError.
func (n *CodexNormalizer) NormalizeLine(line []byte, ec EventContext) ([]Event, error) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(line) {
		return nil, newParseError(n.Provider(), line, "invalid JSON")
	}
	raw := gjson.ParseBytes(line)

	switch str(raw.Get("type")) {
	case "item.completed":
		item := raw.Get("item")
		text := str(item.Get("text"))
		if text == "" {
			return nil, nil
		}
		switch str(item.Get("type")) {
		case "agent_message":
			return []Event{
				ec.text(AssistantChunk, text),
				ec.text(AssistantDone, text),
			}, nil
		case "reasoning":
			return []Event{
				ec.text(ThinkingChunk, text),
				ec.text(ThinkingDone, text),
			}, nil
		}

	case "agent_message_delta":
		if delta := str(raw.Get("delta")); delta != "" {
			return []Event{ec.text(AssistantChunk, delta)}, nil
		}

	case "function_call":
		name := str(raw.Get("name"))
		if name == "" {
			name = "function_call"
		}
		callID := str(raw.Get("call_id"))
		if callID == "" {
			callID = ec.newID()
		}
		return []Event{ec.toolCall(callID, name, codexArgs(raw.Get("arguments")))}, nil
	}

	return nil, nil
}

// codexArgs decodes function call arguments, which arrive either as a JSON
// encoded string or as an object. Anything else yields empty args.
func codexArgs(arguments gjson.Result) map[string]any {
	if arguments.Type == gjson.String {
		var args map[string]any
		if err := json.Unmarshal([]byte(arguments.Str), &args); err != nil || args == nil {
			return map[string]any{}
		}
		return args
	}
	return objectValue(arguments)
}
