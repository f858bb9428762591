package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovetools/agentevents/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const claudeStream = `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"ls"}}]}}
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"main.go"}]}}
{"type":"assistant","message":{"content":[{"type":"text","text":"Found main.go"}]}}
{"type":"result","result":"Found main.go"}
`

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	// Keep a developer's own config out of the run.
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := root.Execute()
	return out.String(), err
}

func TestNormalize_JSON(t *testing.T) {
	out, err := runRoot(t, claudeStream, "normalize", "--provider", "claude", "--format", "json", "--session", "s-1")
	require.NoError(t, err)

	var types []transcript.EventType
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var ev transcript.Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev), line)
		assert.Equal(t, "s-1", ev.SessionID)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []transcript.EventType{
		transcript.ToolCall,
		transcript.ToolResult,
		transcript.AssistantChunk,
		transcript.AssistantDone,
	}, types)
}

func TestNormalize_PrettyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex-run.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"type":"item.completed","item":{"type":"agent_message","text":"All tests pass."}}`+"\n"), 0644))

	out, err := runRoot(t, "", "normalize", path)
	require.NoError(t, err)
	assert.Contains(t, out, "All tests pass.")
}

func TestNormalize_Errors(t *testing.T) {
	_, err := runRoot(t, "{not json\n", "normalize", "--provider", "claude")
	assert.ErrorIs(t, err, transcript.ErrMalformedLine)

	_, err = runRoot(t, "", "normalize", "--provider", "gemini")
	assert.ErrorContains(t, err, "unknown provider")

	_, err = runRoot(t, "", "normalize", "--provider", "claude", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestVersion(t *testing.T) {
	out, err := runRoot(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agevents dev")
}
