package transcript

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodexNormalizer_FunctionCall(t *testing.T) {
	events := feedLines(t, NewCodexNormalizer(), testContext(),
		`{"type":"function_call","name":"search","call_id":"c1","arguments":"{\"q\":\"x\"}"}`,
	)

	require.Len(t, events, 1)
	assert.Equal(t, ToolCall, events[0].Type)
	assert.Equal(t, ToolCallPayload{
		ToolCallID: "c1",
		ToolName:   "search",
		Args:       map[string]any{"q": "x"},
	}, events[0].Payload)
}

func TestCodexNormalizer_FunctionCallArguments(t *testing.T) {
	tests := []struct {
		name string
		line string
		want map[string]any
	}{
		{name: "object", line: `{"type":"function_call","arguments":{"path":"a.go"}}`, want: map[string]any{"path": "a.go"}},
		{name: "array string", line: `{"type":"function_call","arguments":"[1,2]"}`, want: map[string]any{}},
		{name: "malformed string", line: `{"type":"function_call","arguments":"{oops"}`, want: map[string]any{}},
		{name: "null string", line: `{"type":"function_call","arguments":"null"}`, want: map[string]any{}},
		{name: "missing", line: `{"type":"function_call"}`, want: map[string]any{}},
		{name: "number", line: `{"type":"function_call","arguments":3}`, want: map[string]any{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := feedLines(t, NewCodexNormalizer(), testContext(), tc.line)
			require.Len(t, events, 1)
			assert.Equal(t, tc.want, events[0].Payload.(ToolCallPayload).Args)
		})
	}
}

func TestCodexNormalizer_FunctionCallDefaults(t *testing.T) {
	events := feedLines(t, NewCodexNormalizer(), testContext(),
		`{"type":"function_call","name":"","call_id":""}`,
	)

	require.Len(t, events, 1)
	call := events[0].Payload.(ToolCallPayload)
	assert.Equal(t, "function_call", call.ToolName)
	assert.Equal(t, "id-1", call.ToolCallID)
	assert.Equal(t, "id-2", events[0].ID)
}

func TestCodexNormalizer_ItemCompleted(t *testing.T) {
	events := feedLines(t, NewCodexNormalizer(), testContext(),
		`{"type":"item.completed","item":{"id":"item_0","type":"reasoning","text":"Considering options"}}`,
		`{"type":"item.completed","item":{"id":"item_1","type":"agent_message","text":"All done."}}`,
		`{"type":"item.completed","item":{"id":"item_2","type":"agent_message","text":""}}`,
		`{"type":"item.completed","item":{"id":"item_3","type":"command_execution","text":"ls"}}`,
	)

	assert.Equal(t, []EventType{ThinkingChunk, ThinkingDone, AssistantChunk, AssistantDone}, eventTypes(events))
	assert.Equal(t, []string{"Considering options", "Considering options", "All done.", "All done."}, texts(events))
}

func TestCodexNormalizer_AgentMessageDelta(t *testing.T) {
	events := feedLines(t, NewCodexNormalizer(), testContext(),
		`{"type":"agent_message_delta","delta":"Hel"}`,
		`{"type":"agent_message_delta","delta":""}`,
		`{"type":"agent_message_delta","delta":"lo"}`,
	)
	assert.Equal(t, []string{"Hel", "lo"}, texts(events))
}

func TestCodexNormalizer_IgnoresUnknownInput(t *testing.T) {
	events := feedLines(t, NewCodexNormalizer(), testContext(),
		``,
		`{"type":"thread.started","thread_id":"th_1"}`,
		`{"msg":"no type"}`,
		`{"type":42}`,
		`"just a string"`,
	)
	assert.Empty(t, events)
}

func TestCodexNormalizer_MalformedLine(t *testing.T) {
	_, err := NewCodexNormalizer().NormalizeLine([]byte(`{"type":`), testContext())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedLine))
}
