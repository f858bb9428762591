package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/agentevents/internal/formatters"
	"github.com/grovetools/agentevents/internal/transcript"
	"github.com/grovetools/core/tui/theme"
)

// Formatting constants for output
const (
	treeChar = "⎿" // Tree connector for sub-content
)

// Options controls how events are rendered.
type Options struct {
	// DetailLevel is "summary" or "full".
	DetailLevel  string
	MaxDiffLines int
	ShowThinking bool
}

// Renderer draws canonical events as a chat transcript. Events must be
// rendered in emission order; chunks are streamed inline.
type Renderer struct {
	w          io.Writer
	opts       Options
	formatters map[string]formatters.ToolFormatter

	robotToolIcon string
	robotTextIcon string
	tree          string
	thinkingStyle lipgloss.Style

	// per response: whether chunks were already streamed
	textStreamed     map[string]bool
	thinkingStreamed map[string]bool
	toolNames        map[string]string
	midLine          bool
	err              error
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer, opts Options) *Renderer {
	if opts.DetailLevel == "" {
		opts.DetailLevel = "summary"
	}
	robotToolStyle := lipgloss.NewStyle().Foreground(theme.DefaultColors.Green)
	robotTextStyle := lipgloss.NewStyle().Foreground(theme.DefaultColors.LightText)
	mutedStyle := lipgloss.NewStyle().Foreground(theme.DefaultColors.MutedText)

	return &Renderer{
		w:                w,
		opts:             opts,
		formatters:       formatters.Default(opts.MaxDiffLines),
		robotToolIcon:    robotToolStyle.Render(theme.IconRobot),
		robotTextIcon:    robotTextStyle.Render(theme.IconRobot),
		tree:             mutedStyle.Render(treeChar),
		thinkingStyle:    mutedStyle.Italic(true),
		textStreamed:     make(map[string]bool),
		thinkingStreamed: make(map[string]bool),
		toolNames:        make(map[string]string),
	}
}

// Render draws one event. It returns the first write error encountered.
func (r *Renderer) Render(ev transcript.Event) error {
	switch ev.Type {
	case transcript.AssistantChunk:
		if !r.textStreamed[ev.ResponseID] {
			r.endLine()
			r.printf("%s ", r.robotTextIcon)
			r.textStreamed[ev.ResponseID] = true
		}
		r.printf("%s", ev.Text())
		r.midLine = !strings.HasSuffix(ev.Text(), "\n")

	case transcript.AssistantDone:
		if r.textStreamed[ev.ResponseID] {
			r.endLine()
			r.printf("\n")
		} else if ev.Text() != "" {
			r.endLine()
			r.printf("%s %s\n\n", r.robotTextIcon, ev.Text())
		}
		delete(r.textStreamed, ev.ResponseID)

	case transcript.ThinkingChunk:
		if !r.opts.ShowThinking {
			return r.err
		}
		if !r.thinkingStreamed[ev.ResponseID] {
			r.endLine()
			r.printf("%s\n", r.thinkingStyle.Render("∴ Thinking…"))
			r.thinkingStreamed[ev.ResponseID] = true
		}
		r.printf("%s", r.thinkingStyle.Render(ev.Text()))
		r.midLine = true

	case transcript.ThinkingDone:
		if !r.opts.ShowThinking {
			return r.err
		}
		if r.thinkingStreamed[ev.ResponseID] {
			r.endLine()
			r.printf("\n")
		} else if ev.Text() != "" {
			r.endLine()
			r.printf("%s\n", r.thinkingStyle.Render("∴ Thinking…"))
			for _, line := range strings.Split(ev.Text(), "\n") {
				r.printf("%s\n", r.thinkingStyle.Render("  "+line))
			}
			r.printf("\n")
		}
		delete(r.thinkingStreamed, ev.ResponseID)

	case transcript.ToolCall:
		call, ok := ev.Payload.(transcript.ToolCallPayload)
		if !ok {
			return r.err
		}
		r.endLine()
		r.toolNames[call.ToolCallID] = call.ToolName
		r.printf("%s %s\n", r.robotToolIcon, formatToolCall(call))
		if f, ok := formatters.Lookup(r.formatters, call.ToolName); ok {
			if block := f(call.Args, r.opts.DetailLevel); block != "" {
				for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
					r.printf("    %s\n", line)
				}
			}
		}

	case transcript.ToolResult:
		result, ok := ev.Payload.(transcript.ToolResultPayload)
		if !ok {
			return r.err
		}
		r.endLine()
		output := formatToolOutput(r.toolNames[result.ToolCallID], ResultText(result.Result), r.opts.DetailLevel)
		if output != "" {
			lines := strings.Split(output, "\n")
			r.printf("  %s  %s\n", r.tree, lines[0])
			for _, line := range lines[1:] {
				r.printf("     %s\n", line)
			}
		}
		r.printf("\n")
	}
	return r.err
}

// Sink adapts the renderer to a pipeline sink.
func (r *Renderer) Sink() transcript.Sink {
	return r.Render
}

// Flush terminates a partially written line.
func (r *Renderer) Flush() error {
	r.endLine()
	return r.err
}

func (r *Renderer) endLine() {
	if r.midLine {
		r.printf("\n")
		r.midLine = false
	}
}

func (r *Renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// NewJSONSink writes each event as one line of JSON.
func NewJSONSink(w io.Writer) transcript.Sink {
	enc := json.NewEncoder(w)
	return func(ev transcript.Event) error {
		return enc.Encode(ev)
	}
}

// ResultText flattens a tool result into displayable text. Results are
// strings, arrays of {type:"text"} blocks, or arbitrary JSON.
func ResultText(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		var texts []string
		for _, item := range v {
			block, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := block["text"].(string); ok && text != "" {
				texts = append(texts, text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, "\n")
		}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}

// formatToolOutput formats tool output, with special handling for read-like tools.
// Returns a simple string without leading/trailing whitespace - caller handles indentation.
func formatToolOutput(toolName, output, detailLevel string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}
	lines := strings.Split(output, "\n")

	// For read tools, show a summary instead of full content
	if strings.Contains(strings.ToLower(toolName), "read") && len(lines) > 5 {
		return fmt.Sprintf("(%d lines read)", len(lines))
	}
	if detailLevel == "full" {
		return output
	}
	if len(lines) > 5 {
		return fmt.Sprintf("(%d lines)", len(lines))
	}
	if len(output) > 200 {
		return output[:197] + "..."
	}
	return output
}

// formatToolCall formats a tool call as ToolName(key_arg).
func formatToolCall(call transcript.ToolCallPayload) string {
	toolName := capitalizeFirst(call.ToolName)
	if keyArg := extractKeyArg(call.Args); keyArg != "" {
		return fmt.Sprintf("%s(%s)", toolName, keyArg)
	}
	return toolName
}

// capitalizeFirst capitalizes the first letter of a string.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// extractKeyArg extracts the most relevant argument for inline display.
func extractKeyArg(args map[string]any) string {
	if cmd := formatters.ShellCommand(args); cmd != "" {
		if len(cmd) > 60 {
			return cmd[:57] + "..."
		}
		return cmd
	}

	for _, key := range []string{"file_path", "filePath", "path"} {
		if p, ok := args[key].(string); ok && p != "" {
			return shortenPath(p)
		}
	}

	if pattern, ok := args["pattern"].(string); ok {
		return pattern
	}

	for _, key := range []string{"query", "q"} {
		if query, ok := args[key].(string); ok && query != "" {
			if len(query) > 40 {
				return query[:37] + "..."
			}
			return query
		}
	}

	if url, ok := args["url"].(string); ok {
		return url
	}

	return ""
}

// shortenPath shortens a file path for display, keeping the filename and some context.
func shortenPath(path string) string {
	if len(path) <= 50 {
		return path
	}

	parts := strings.Split(path, "/")
	if len(parts) <= 3 {
		return path
	}

	shortened := ".../" + strings.Join(parts[len(parts)-2:], "/")
	if len(shortened) > 50 {
		return ".../" + parts[len(parts)-1]
	}
	return shortened
}
