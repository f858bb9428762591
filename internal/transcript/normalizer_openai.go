package transcript

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// toolCallAccumulator collects the streamed fragments of one tool call.
type toolCallAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// OpenAINormalizer normalizes OpenAI chat-completions streaming chunks.
// Text and tool call arguments are accumulated per choice until the choice's
// finish_reason arrives.
type OpenAINormalizer struct {
	text  map[int]string
	tools map[int]map[int]*toolCallAccumulator

	open     map[int]bool
	finished bool

	// sse is set once a line arrives with a "data:" prefix; such streams end
	// with an explicit [DONE].
	sse  bool
	done bool
}

// NewOpenAINormalizer creates a new OpenAI streaming normalizer.
func NewOpenAINormalizer() *OpenAINormalizer {
	return &OpenAINormalizer{
		text:  make(map[int]string),
		tools: make(map[int]map[int]*toolCallAccumulator),
		open:  make(map[int]bool),
	}
}

// Provider returns the provider name.
func (n *OpenAINormalizer) Provider() string {
	return string(ProviderOpenAI)
}

// Complete reports whether the response has ended. SSE streams end at
// [DONE], since a choice may first appear after another one has finished.
// Unframed chunks end once every choice seen so far has finished.
func (n *OpenAINormalizer) Complete() bool {
	if n.done {
		return true
	}
	if n.sse {
		return false
	}
	return n.finished && len(n.open) == 0
}

// NormalizeLine decodes one streamed line, with or without an SSE "data:"
// prefix, and normalizes it as a chunk.
func (n *OpenAINormalizer) NormalizeLine(line []byte, ec EventContext) ([]Event, error) {
	line = bytes.TrimSpace(line)
	if after, ok := bytes.CutPrefix(line, []byte("data:")); ok {
		n.sse = true
		line = bytes.TrimSpace(after)
	}
	if string(line) == "[DONE]" {
		n.done = true
		return nil, nil
	}
	if len(line) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, newParseError(n.Provider(), line, err.Error())
	}
	chunk, ok := v.(map[string]any)
	if !ok {
		return nil, nil
	}
	return n.NormalizeChunk(chunk, ec), nil
}

// NormalizeChunk normalizes a decoded streaming chunk. Chunks without a
// choices array yield no events.
func (n *OpenAINormalizer) NormalizeChunk(chunk map[string]any, ec EventContext) []Event {
	choices, ok := chunk["choices"].([]any)
	if !ok {
		return nil
	}

	var events []Event
	for pos, c := range choices {
		choice, ok := c.(map[string]any)
		if !ok {
			continue
		}
		// Key by the choice's own index field: providers send one choice per
		// chunk, so the array position is always 0. Position is the fallback.
		index := pos
		if i, ok := intValue(choice["index"]); ok {
			index = i
		}

		delta, hasDelta := choice["delta"].(map[string]any)
		finishReason, _ := choice["finish_reason"].(string)
		if !hasDelta && finishReason == "" {
			continue
		}
		n.open[index] = true

		if hasDelta {
			if text := deltaContent(delta["content"]); text != "" {
				n.text[index] += text
				events = append(events, ec.text(AssistantChunk, text))
			}
			if calls, ok := delta["tool_calls"].([]any); ok {
				n.accumulateToolCalls(index, calls, ec)
			}
		}

		if finishReason == "" {
			continue
		}
		switch finishReason {
		case "stop":
			events = append(events, ec.text(AssistantDone, n.text[index]))
			delete(n.text, index)
		case "tool_calls":
			events = n.flushToolCalls(index, ec, events)
		}
		delete(n.open, index)
		n.finished = true
	}
	return events
}

func (n *OpenAINormalizer) accumulateToolCalls(choice int, calls []any, ec EventContext) {
	for pos, c := range calls {
		call, ok := c.(map[string]any)
		if !ok {
			continue
		}
		index := pos
		if i, ok := intValue(call["index"]); ok {
			index = i
		}
		fn, _ := call["function"].(map[string]any)
		name, _ := fn["name"].(string)

		byIndex := n.tools[choice]
		if byIndex == nil {
			byIndex = make(map[int]*toolCallAccumulator)
			n.tools[choice] = byIndex
		}
		acc := byIndex[index]
		if acc == nil {
			id, _ := call["id"].(string)
			if id == "" {
				id = ec.newID()
			}
			acc = &toolCallAccumulator{id: id, name: name}
			byIndex[index] = acc
		} else if acc.name == "" {
			acc.name = name
		}

		if args, ok := fn["arguments"].(string); ok {
			acc.args.WriteString(args)
		}
	}
}

// flushToolCalls emits the accumulated tool calls of a choice in ascending
// index order and drops them.
func (n *OpenAINormalizer) flushToolCalls(choice int, ec EventContext, events []Event) []Event {
	byIndex := n.tools[choice]
	indexes := make([]int, 0, len(byIndex))
	for i := range byIndex {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		acc := byIndex[i]
		if acc.name == "" {
			continue
		}
		events = append(events, ec.toolCall(acc.id, acc.name, parseToolArguments(acc.args.String())))
	}
	delete(n.tools, choice)
	return events
}

// parseToolArguments decodes an argument buffer into an object. Empty,
// malformed or non-object buffers yield empty args.
func parseToolArguments(buf string) map[string]any {
	buf = strings.TrimSpace(buf)
	if buf == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(buf), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// deltaContent flattens delta.content, which is either a string or an array
// of {type:"text", text} parts.
func deltaContent(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var sb strings.Builder
		for _, p := range v {
			part, ok := p.(map[string]any)
			if !ok || part["type"] != "text" {
				continue
			}
			if text, ok := part["text"].(string); ok {
				sb.WriteString(text)
			}
		}
		return sb.String()
	}
	return ""
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
