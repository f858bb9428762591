package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/command"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

const claudeTranscript = `{"type":"system","subtype":"init","session_id":"abc"}
{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Look at the files first."}}}
{"type":"stream_event","event":{"type":"content_block_stop","index":0}}
{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"ls"}}]}}
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"go.mod\nmain.go"}]}}
{"type":"stream_event","event":{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"The repo has "}}}
{"type":"stream_event","event":{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"two files."}}}
{"type":"result","subtype":"success","result":"The repo has two files."}
`

const codexTranscript = `{"type":"item.completed","item":{"type":"reasoning","text":"Need to run the tests."}}
{"type":"function_call","name":"shell","call_id":"call_9","arguments":"{\"command\":[\"bash\",\"-lc\",\"go test ./...\"]}"}
{"type":"item.completed","item":{"type":"agent_message","text":"All tests pass."}}
`

const openaiTranscript = `data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}
data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"}}]}
data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}
data: [DONE]
`

// setupTranscripts writes one recorded stream per provider into a scratch dir
// and a Claude log under a mock home for 'agevents list'.
func setupTranscripts(ctx *harness.Context) error {
	dir := ctx.NewDir("streams")
	homeDir := ctx.NewDir("home")

	files := map[string]string{
		"claude-session.jsonl": claudeTranscript,
		"codex-session.jsonl":  codexTranscript,
		"openai-stream.txt":    openaiTranscript,
		"broken.jsonl":         "{\"type\":\"assistant\"\n",
	}
	for name, content := range files {
		if err := fs.WriteString(filepath.Join(dir, name), content); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	projectsDir := filepath.Join(homeDir, ".claude", "projects", "test-project")
	if err := fs.CreateDir(projectsDir); err != nil {
		return err
	}
	header := `{"cwd":"/tmp/project-alpha","sessionId":"session-alpha","type":"user","message":{"role":"user","content":"Hello"},"timestamp":"2025-01-01T12:00:00Z"}` + "\n"
	if err := fs.WriteString(filepath.Join(projectsDir, "session-alpha.jsonl"), header+claudeTranscript); err != nil {
		return fmt.Errorf("failed to write session-alpha.jsonl: %w", err)
	}

	ctx.Set("streams_dir", dir)
	ctx.Set("mock_home", homeDir)
	return nil
}

type runResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// runAgevents runs the binary with an isolated HOME.
func runAgevents(ctx *harness.Context, args ...string) (runResult, error) {
	binary, err := FindProjectBinary()
	if err != nil {
		return runResult{}, err
	}
	cmd := command.New(binary, args...).Env("HOME=" + ctx.GetString("mock_home"))
	result := cmd.Run()
	ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
	return runResult{Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}, nil
}

type eventLine struct {
	Type       string          `json:"type"`
	SessionID  string          `json:"sessionId"`
	ResponseID string          `json:"responseId"`
	Payload    json.RawMessage `json:"payload"`
}

func decodeEvents(stdout string) ([]eventLine, error) {
	var events []eventLine
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		var ev eventLine
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("invalid event line %q: %w", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}

func eventTypes(events []eventLine) string {
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return strings.Join(types, ",")
}

// NormalizeClaudeScenario tests 'agevents normalize' on a Claude CLI stream.
func NormalizeClaudeScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "normalize-claude-stream",
		Steps: []harness.Step{
			harness.NewStep("Setup recorded streams", setupTranscripts),
			harness.NewStep("Run 'agevents normalize --format json'", func(ctx *harness.Context) error {
				path := filepath.Join(ctx.GetString("streams_dir"), "claude-session.jsonl")
				result, err := runAgevents(ctx, "normalize", path, "--format", "json", "--session", "e2e")
				if err != nil {
					return err
				}
				if result.ExitCode != 0 {
					return fmt.Errorf("agevents normalize failed: %s", result.Stderr)
				}

				events, err := decodeEvents(result.Stdout)
				if err != nil {
					return err
				}
				want := "thinking_chunk,thinking_done,tool_call,tool_result,assistant_chunk,assistant_chunk,assistant_done"
				if err := assert.Equal(want, eventTypes(events), "Should emit events in provider order"); err != nil {
					return err
				}
				for _, ev := range events {
					if err := assert.Equal("e2e", ev.SessionID, "Should stamp the session id"); err != nil {
						return err
					}
				}
				return assert.Contains(string(events[len(events)-1].Payload), "The repo has two files.", "Should carry the final text")
			}),
			harness.NewStep("Run 'agevents normalize' pretty output", func(ctx *harness.Context) error {
				path := filepath.Join(ctx.GetString("streams_dir"), "claude-session.jsonl")
				result, err := runAgevents(ctx, "normalize", path, "--thinking")
				if err != nil {
					return err
				}
				if result.ExitCode != 0 {
					return fmt.Errorf("agevents normalize failed: %s", result.Stderr)
				}
				if err := assert.Contains(result.Stdout, "Bash(ls)", "Should show the tool call"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Thinking", "Should show reasoning when asked"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "The repo has two files.", "Should show assistant text")
			}),
		},
	}
}

// NormalizeCodexScenario tests provider detection from the path and Codex tool calls.
func NormalizeCodexScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "normalize-codex-stream",
		Steps: []harness.Step{
			harness.NewStep("Setup recorded streams", setupTranscripts),
			harness.NewStep("Run 'agevents normalize' on a codex log", func(ctx *harness.Context) error {
				path := filepath.Join(ctx.GetString("streams_dir"), "codex-session.jsonl")
				result, err := runAgevents(ctx, "normalize", path, "--format", "json")
				if err != nil {
					return err
				}
				if result.ExitCode != 0 {
					return fmt.Errorf("agevents normalize failed: %s", result.Stderr)
				}

				events, err := decodeEvents(result.Stdout)
				if err != nil {
					return err
				}
				want := "thinking_chunk,thinking_done,tool_call,assistant_chunk,assistant_done"
				if err := assert.Equal(want, eventTypes(events), "Should normalize codex items"); err != nil {
					return err
				}
				return assert.Contains(string(events[2].Payload), `"toolCallId":"call_9"`, "Should keep the provider call id")
			}),
		},
	}
}

// NormalizeOpenAIScenario tests SSE-framed OpenAI chunks with an explicit provider.
func NormalizeOpenAIScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "normalize-openai-stream",
		Steps: []harness.Step{
			harness.NewStep("Setup recorded streams", setupTranscripts),
			harness.NewStep("Run 'agevents normalize --provider openai --summary'", func(ctx *harness.Context) error {
				path := filepath.Join(ctx.GetString("streams_dir"), "openai-stream.txt")
				result, err := runAgevents(ctx, "normalize", path, "--provider", "openai", "--summary")
				if err != nil {
					return err
				}
				if result.ExitCode != 0 {
					return fmt.Errorf("agevents normalize failed: %s", result.Stderr)
				}
				if err := assert.Contains(result.Stdout, "Hello", "Should stream the text"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "assistant_done", "Should print the summary table")
			}),
		},
	}
}

// NormalizeMalformedScenario tests that protocol violations fail the command.
func NormalizeMalformedScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "normalize-malformed-stream",
		Steps: []harness.Step{
			harness.NewStep("Setup recorded streams", setupTranscripts),
			harness.NewStep("Run 'agevents normalize' on a truncated line", func(ctx *harness.Context) error {
				path := filepath.Join(ctx.GetString("streams_dir"), "broken.jsonl")
				result, err := runAgevents(ctx, "normalize", path, "--provider", "claude")
				if err != nil {
					return err
				}
				if result.ExitCode == 0 {
					return fmt.Errorf("agevents normalize should fail on a truncated line")
				}
				return assert.Contains(result.Stderr, "malformed provider line", "Should report the parse error")
			}),
		},
	}
}

// ListScenario tests 'agevents list' against a mock ~/.claude directory.
func ListScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "list-logs",
		Steps: []harness.Step{
			harness.NewStep("Setup recorded streams", setupTranscripts),
			harness.NewStep("Run 'agevents list'", func(ctx *harness.Context) error {
				result, err := runAgevents(ctx, "list")
				if err != nil {
					return err
				}
				if err := assert.Equal(0, result.ExitCode, "agevents list should exit successfully"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "SESSION ID", "Should print table header"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "session-alpha", "Should list session-alpha"); err != nil {
					return err
				}
				return assert.NotContains(result.Stdout, "codex-session", "Should only scan agent log directories")
			}),
			harness.NewStep("Run 'agevents list --json'", func(ctx *harness.Context) error {
				result, err := runAgevents(ctx, "list", "--json")
				if err != nil {
					return err
				}
				if result.ExitCode != 0 {
					return fmt.Errorf("agevents list --json failed: %s", result.Stderr)
				}

				var logs []map[string]interface{}
				if err := json.Unmarshal([]byte(result.Stdout), &logs); err != nil {
					return fmt.Errorf("failed to parse JSON output: %w", err)
				}
				if len(logs) != 1 {
					return fmt.Errorf("expected one log in JSON output, got %d", len(logs))
				}
				for _, field := range []string{"sessionId", "provider", "path", "startedAt"} {
					if _, ok := logs[0][field]; !ok {
						return fmt.Errorf("missing %s field in JSON output", field)
					}
				}
				return assert.Equal("/tmp/project-alpha", logs[0]["cwd"], "Should read cwd from the log header")
			}),
		},
	}
}
