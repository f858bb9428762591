package transcript

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeNormalizer_DeltasThenResult(t *testing.T) {
	n := NewClaudeNormalizer()
	events := feedLines(t, n, testContext(),
		`{"delta":{"text":"Hello"}}`,
		`{"delta":{"text":" world"}}`,
		`{"type":"result","result":"Hello world"}`,
	)

	require.Len(t, events, 3)
	assert.Equal(t, []EventType{AssistantChunk, AssistantChunk, AssistantDone}, eventTypes(events))
	assert.Equal(t, []string{"Hello", " world", "Hello world"}, texts(events))
	assert.Equal(t, "Hello world", n.FullText())
	assert.True(t, n.Complete())

	for i, ev := range events {
		assert.Equal(t, "session-1", ev.SessionID)
		assert.Equal(t, "turn-1", ev.TurnID)
		assert.Equal(t, "response-1", ev.ResponseID)
		assert.Equal(t, int64(i+1), ev.Timestamp)
	}
	assert.Equal(t, "id-1", events[0].ID)
	assert.Equal(t, "id-3", events[2].ID)
}

func TestClaudeNormalizer_BlankAndInvalidLines(t *testing.T) {
	n := NewClaudeNormalizer()

	events, err := n.NormalizeLine([]byte(""), testContext())
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = n.NormalizeLine([]byte("   \t"), testContext())
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = n.NormalizeLine([]byte("not-json"), testContext())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedLine))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "claude", perr.Provider)
	assert.Equal(t, "not-json", perr.Line)

	_, err = n.NormalizeLine([]byte(`["array"]`), testContext())
	assert.True(t, errors.Is(err, ErrMalformedLine))
}

func TestClaudeNormalizer_SnapshotsConcatenateToFinalText(t *testing.T) {
	snapshots := []string{"He", "Hello", "Hello", "Hello, wor", "Hello, world!"}
	n := NewClaudeNormalizer()
	ec := testContext()

	var lines []string
	for _, s := range snapshots {
		lines = append(lines, `{"text":"`+s+`"}`)
	}
	events := feedLines(t, n, ec, lines...)

	var sb strings.Builder
	for _, ev := range events {
		require.Equal(t, AssistantChunk, ev.Type)
		require.NotEmpty(t, ev.Text(), "empty chunk emitted")
		sb.WriteString(ev.Text())
	}
	assert.Equal(t, "Hello, world!", sb.String())
	assert.Len(t, events, 4, "repeated snapshot must not emit")
}

func TestClaudeNormalizer_SnapshotSources(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "completion", line: `{"completion":"abc"}`, want: "abc"},
		{name: "text", line: `{"text":"abc"}`, want: "abc"},
		{name: "string content", line: `{"type":"assistant","message":{"content":"abc"}}`, want: "abc"},
		{name: "text blocks", line: `{"type":"assistant","message":{"content":[{"type":"text","text":"ab"},{"type":"tool_use","id":"x","name":"n","input":{}},{"type":"text","text":"c"}]}}`, want: "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := feedLines(t, NewClaudeNormalizer(), testContext(), tc.line)
			chunks := filterType(events, AssistantChunk)
			require.Len(t, chunks, 1)
			assert.Equal(t, tc.want, chunks[0].Text())
		})
	}
}

func TestClaudeNormalizer_NonExtendingSnapshotResetsBaseline(t *testing.T) {
	n := NewClaudeNormalizer()
	events := feedLines(t, n, testContext(),
		`{"text":"Hello"}`,
		`{"text":"Bye"}`,
		`{"text":"Bye now"}`,
	)
	assert.Equal(t, []string{"Hello", " now"}, texts(events))
	assert.Equal(t, "Hello now", n.FullText())
}

func TestClaudeNormalizer_UserMessagesAreNotAssistantText(t *testing.T) {
	events := feedLines(t, NewClaudeNormalizer(), testContext(),
		`{"type":"user","message":{"role":"user","content":"please list files"}}`,
	)
	assert.Empty(t, events)
}

func TestClaudeNormalizer_StreamEventTextDelta(t *testing.T) {
	n := NewClaudeNormalizer()
	events := feedLines(t, n, testContext(),
		`{"type":"stream_event","event":{"type":"message_start","message":{"content":[]}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_stop","index":0}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Hi there"}]}}`,
		`{"type":"result","result":""}`,
	)

	assert.Equal(t, []EventType{AssistantChunk, AssistantChunk, AssistantDone}, eventTypes(events))
	assert.Equal(t, []string{"Hi", " there", "Hi there"}, texts(events))
}

func TestClaudeNormalizer_DeltaTextAndStringDelta(t *testing.T) {
	events := feedLines(t, NewClaudeNormalizer(), testContext(),
		`{"delta":"a"}`,
		`{"deltaText":"b"}`,
		`{"delta":"","deltaText":"c"}`,
	)
	assert.Equal(t, []string{"a", "b", "c"}, texts(events))
}

func TestClaudeNormalizer_SnapshotExtendsDeltas(t *testing.T) {
	n := NewClaudeNormalizer()
	events := feedLines(t, n, testContext(),
		`{"delta":"Hel"}`,
		`{"text":"Hello, world"}`,
		`{"type":"result"}`,
	)

	assert.Equal(t, []EventType{AssistantChunk, AssistantChunk, AssistantDone}, eventTypes(events))
	assert.Equal(t, []string{"Hel", "lo, world", "Hello, world"}, texts(events))
	assert.Equal(t, "Hello, world", n.FullText())
}

func TestClaudeNormalizer_NestedStreamEventEnvelopes(t *testing.T) {
	events := feedLines(t, NewClaudeNormalizer(), testContext(),
		`{"type":"stream_event","event":{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"deep"}}}}`,
	)
	assert.Equal(t, []string{"deep"}, texts(events))

	line := `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"too deep"}}`
	for i := 0; i <= maxEnvelopeDepth+1; i++ {
		line = `{"type":"stream_event","event":` + line + `}`
	}
	events = feedLines(t, NewClaudeNormalizer(), testContext(), line)
	assert.Empty(t, events, "envelopes nested past the depth limit are ignored")
}

func TestClaudeNormalizer_ToolCallCorrelation(t *testing.T) {
	n := NewClaudeNormalizer()
	events := feedLines(t, n, testContext(),
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"bash","input":{"command":"ls"}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"bash","input":{"command":"ls"}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"a.txt"}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"a.txt"}]}}`,
	)

	require.Equal(t, []EventType{ToolCall, ToolResult}, eventTypes(events))
	call := events[0].Payload.(ToolCallPayload)
	result := events[1].Payload.(ToolResultPayload)
	assert.Equal(t, "bash", call.ToolName)
	assert.Equal(t, map[string]any{"command": "ls"}, call.Args)
	assert.Equal(t, call.ToolCallID, result.ToolCallID)
	assert.NotEqual(t, "toolu_1", call.ToolCallID, "canonical ids are minted, not copied")
	assert.Equal(t, "a.txt", result.Result)
}

func TestClaudeNormalizer_ResultBeforeCall(t *testing.T) {
	events := feedLines(t, NewClaudeNormalizer(), testContext(),
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_9","result":"done"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_9"}]}}`,
	)

	require.Equal(t, []EventType{ToolResult, ToolCall}, eventTypes(events))
	result := events[0].Payload.(ToolResultPayload)
	call := events[1].Payload.(ToolCallPayload)
	assert.Equal(t, result.ToolCallID, call.ToolCallID)
	assert.Equal(t, "done", result.Result)
	assert.Equal(t, "tool", call.ToolName)
	assert.Equal(t, map[string]any{}, call.Args)
}

func TestClaudeNormalizer_ToolUseWithoutIDIsNeverCorrelated(t *testing.T) {
	events := feedLines(t, NewClaudeNormalizer(), testContext(),
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"read","input":{}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"read","input":{}}]}}`,
	)

	require.Len(t, events, 2)
	assert.NotEqual(t,
		events[0].Payload.(ToolCallPayload).ToolCallID,
		events[1].Payload.(ToolCallPayload).ToolCallID)
}

func TestClaudeNormalizer_ContentBlockStart(t *testing.T) {
	n := NewClaudeNormalizer()
	events := feedLines(t, n, testContext(),
		`{"type":"stream_event","event":{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_2","name":"grep","input":{}}}}`,
		`{"type":"stream_event","event":{"type":"content_block_start","index":1,"content_block":{"type":"server_tool_use","id":"srv_1","name":"web_search","input":{"query":"go"}}}}`,
		`{"type":"stream_event","event":{"type":"content_block_start","index":2,"content_block":{"type":"web_search_tool_result","tool_use_id":"srv_1","content":[{"type":"web_search_result","url":"https://go.dev"}]}}}`,
		`{"type":"stream_event","event":{"type":"content_block_start","index":3,"content_block":{"type":"tool_result","tool_use_id":"toolu_2","content":""}}}`,
	)

	require.Equal(t, []EventType{ToolCall, ToolResult}, eventTypes(events))
	call := events[0].Payload.(ToolCallPayload)
	assert.Equal(t, "web_search", call.ToolName)
	assert.Equal(t, map[string]any{"query": "go"}, call.Args)
	assert.Equal(t, call.ToolCallID, events[1].Payload.(ToolResultPayload).ToolCallID)

	// The empty-input tool_use was skipped, so a later complete sighting still emits.
	more := feedLines(t, n, testContext(),
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_2","name":"grep","input":{"pattern":"x"}}]}}`,
	)
	require.Len(t, more, 1)
}

func TestClaudeNormalizer_ThinkingLifecycle(t *testing.T) {
	n := NewClaudeNormalizer()
	events := feedLines(t, n, testContext(),
		`{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"thinking_delta","thinking":"Let me "}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"thinking_delta","thinking":""}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"thinking_delta","thinking":"think"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_stop","index":0}}`,
		`{"type":"stream_event","event":{"type":"message_stop"}}`,
	)

	assert.Equal(t, []EventType{ThinkingChunk, ThinkingChunk, ThinkingDone}, eventTypes(events))
	assert.Equal(t, []string{"Let me ", "think", "Let me think"}, texts(events))
}

func TestClaudeNormalizer_FinalizeWithoutThinkingIsNoop(t *testing.T) {
	events := feedLines(t, NewClaudeNormalizer(), testContext(),
		`{"type":"content_block_stop"}`,
		`{"type":"message_stop"}`,
	)
	assert.Empty(t, events)
}

func TestClaudeNormalizer_ResultFinalizesThinkingFirst(t *testing.T) {
	n := NewClaudeNormalizer()
	events := feedLines(t, n, testContext(),
		`{"type":"content_block_delta","delta":{"type":"thinking_delta","thinking":"hmm"}}`,
		`{"text":"Answer"}`,
		`{"type":"result"}`,
	)

	assert.Equal(t, []EventType{ThinkingChunk, AssistantChunk, ThinkingDone, AssistantDone}, eventTypes(events))
	assert.Equal(t, "Answer", events[3].Text(), "falls back to accumulated text")
}
