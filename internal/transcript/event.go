// Package transcript converts provider-specific agent output into canonical chat events.
package transcript

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the kind of a canonical event.
type EventType string

const (
	AssistantChunk EventType = "assistant_chunk"
	AssistantDone  EventType = "assistant_done"
	ThinkingChunk  EventType = "thinking_chunk"
	ThinkingDone   EventType = "thinking_done"
	ToolCall       EventType = "tool_call"
	ToolResult     EventType = "tool_result"
)

// EventTypes lists every event type in a stable order.
var EventTypes = []EventType{
	AssistantChunk,
	AssistantDone,
	ThinkingChunk,
	ThinkingDone,
	ToolCall,
	ToolResult,
}

// Event is a single provider-agnostic chat event.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  int64     `json:"timestamp"`
	SessionID  string    `json:"sessionId"`
	TurnID     string    `json:"turnId"`
	ResponseID string    `json:"responseId"`
	Type       EventType `json:"type"`
	Payload    Payload   `json:"payload"`
}

// Payload is the type-dependent body of an Event.
type Payload interface {
	isPayload()
}

// TextPayload holds text for chunk and done events.
type TextPayload struct {
	Text string `json:"text"`
}

// ToolCallPayload describes a tool invocation.
type ToolCallPayload struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args"`
}

// ToolResultPayload carries the result of a tool invocation.
type ToolResultPayload struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
}

func (TextPayload) isPayload()       {}
func (ToolCallPayload) isPayload()   {}
func (ToolResultPayload) isPayload() {}

// Text returns the text of a chunk or done event, or "" for tool events.
func (e Event) Text() string {
	if p, ok := e.Payload.(TextPayload); ok {
		return p.Text
	}
	return ""
}

// UnmarshalJSON decodes the payload according to the event type.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var raw struct {
		plain
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw.plain)

	switch e.Type {
	case AssistantChunk, AssistantDone, ThinkingChunk, ThinkingDone:
		var p TextPayload
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", e.Type, err)
		}
		e.Payload = p
	case ToolCall:
		var p ToolCallPayload
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", e.Type, err)
		}
		if p.Args == nil {
			p.Args = map[string]any{}
		}
		e.Payload = p
	case ToolResult:
		var p ToolResultPayload
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", e.Type, err)
		}
		e.Payload = p
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
