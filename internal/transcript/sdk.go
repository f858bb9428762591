package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// NormalizeSDKEvent normalizes an event read from an Anthropic Messages API
// stream. The event is wrapped in the same stream_event envelope the CLI uses,
// so API and CLI streams share one state machine.
func (n *ClaudeNormalizer) NormalizeSDKEvent(ev anthropic.MessageStreamEventUnion, ec EventContext) ([]Event, error) {
	raw := ev.RawJSON()
	if raw == "" {
		b, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("encode anthropic stream event: %w", err)
		}
		raw = string(b)
	}
	line, err := json.Marshal(struct {
		Type  string          `json:"type"`
		Event json.RawMessage `json:"event"`
	}{Type: "stream_event", Event: json.RawMessage(raw)})
	if err != nil {
		return nil, fmt.Errorf("wrap anthropic stream event: %w", err)
	}
	return n.NormalizeLine(line, ec)
}

// NormalizeSDKChunk normalizes a chunk read from an openai-go streaming
// chat completion.
func (n *OpenAINormalizer) NormalizeSDKChunk(chunk openai.ChatCompletionChunk, ec EventContext) ([]Event, error) {
	raw := chunk.RawJSON()
	if raw == "" {
		b, err := json.Marshal(chunk)
		if err != nil {
			return nil, fmt.Errorf("encode openai chunk: %w", err)
		}
		raw = string(b)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, &ParseError{Provider: n.Provider(), Line: raw, Err: fmt.Errorf("%w: %v", ErrMalformedLine, err)}
	}
	return n.NormalizeChunk(obj, ec), nil
}
