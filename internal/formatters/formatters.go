package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/core/tui/theme"
)

// ToolFormatter renders the arguments of a tool call. An empty result means
// the caller should fall back to its default one-line display.
type ToolFormatter func(args map[string]any, detailLevel string) string

// Default returns the formatters for the tools whose arguments benefit from a
// richer view, keyed by lower-cased tool name.
func Default(maxDiffLines int) map[string]ToolFormatter {
	write := MakeWriteFormatter(maxDiffLines)
	return map[string]ToolFormatter{
		"write":     write,
		"edit":      write,
		"read":      FormatReadTool,
		"todowrite": FormatTodoWriteTool,
		"bash":      FormatShellTool,
		"shell":     FormatShellTool,
	}
}

// Lookup finds the formatter for a tool name, ignoring case.
func Lookup(formatters map[string]ToolFormatter, toolName string) (ToolFormatter, bool) {
	f, ok := formatters[strings.ToLower(toolName)]
	return f, ok
}

// decodeArgs converts loosely typed args into a typed struct.
func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// stripCommonIndent removes common leading whitespace from all lines
func stripCommonIndent(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return text
	}

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}

	if minIndent <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			result.WriteString("\n")
			continue
		}
		if len(line) >= minIndent {
			result.WriteString(line[minIndent:])
		} else {
			result.WriteString(line)
		}
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// FormatWriteTool formats Write or Edit arguments as a diff-like view.
// maxLines of 0 shows every line.
func FormatWriteTool(args map[string]any, maxLines int, detailLevel string) string {
	var data struct {
		FilePath  string `json:"file_path"`
		Content   string `json:"content"`
		OldString string `json:"old_string"`
		NewString string `json:"new_string"`
	}
	if err := decodeArgs(args, &data); err != nil {
		return ""
	}

	var output strings.Builder
	greenStyle := lipgloss.NewStyle().Foreground(theme.DefaultColors.Green)
	redStyle := lipgloss.NewStyle().Foreground(theme.DefaultColors.Red)

	switch {
	case data.OldString != "" && data.NewString != "":
		output.WriteString(fmt.Sprintf("%s Editing %s\n", theme.IconFile, data.FilePath))
		writeDiffLines(&output, redStyle, "-", "removed", stripCommonIndent(data.OldString), maxLines)
		writeDiffLines(&output, greenStyle, "+", "added", stripCommonIndent(data.NewString), maxLines)

	case data.Content != "":
		output.WriteString(fmt.Sprintf("%s Writing to %s\n", theme.IconFilePlus, data.FilePath))
		lines := strings.Split(stripCommonIndent(data.Content), "\n")
		if detailLevel == "full" || len(lines) <= 5 {
			for _, line := range lines {
				output.WriteString(greenStyle.Render(fmt.Sprintf("+ %s", line)) + "\n")
			}
		} else {
			output.WriteString(greenStyle.Render(fmt.Sprintf("+ (%d lines)", len(lines))) + "\n")
		}
	}

	return output.String()
}

func writeDiffLines(output *strings.Builder, style lipgloss.Style, marker, verb, text string, maxLines int) {
	lines := strings.Split(text, "\n")
	linesToShow := len(lines)
	if maxLines > 0 && maxLines < linesToShow {
		linesToShow = maxLines
	}
	for i := 0; i < linesToShow; i++ {
		output.WriteString(style.Render(fmt.Sprintf("  %s %s", marker, lines[i])) + "\n")
	}
	if len(lines) > linesToShow {
		output.WriteString(style.Render(fmt.Sprintf("  %s ... (%d more lines %s)", marker, len(lines)-linesToShow, verb)) + "\n")
	}
}

// FormatReadTool formats the input for Read tool with minimal details.
func FormatReadTool(args map[string]any, detailLevel string) string {
	var data struct {
		FilePath string `json:"file_path"`
		Offset   int    `json:"offset"`
		Limit    int    `json:"limit"`
	}
	if err := decodeArgs(args, &data); err != nil || data.FilePath == "" {
		return ""
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("%s Reading %s", theme.IconFile, data.FilePath))
	if data.Offset > 0 || data.Limit > 0 {
		var parts []string
		if data.Offset > 0 {
			parts = append(parts, fmt.Sprintf("offset: %d", data.Offset))
		}
		if data.Limit > 0 {
			parts = append(parts, fmt.Sprintf("limit: %d", data.Limit))
		}
		output.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	output.WriteString("\n")
	return output.String()
}

// FormatTodoWriteTool formats the input for TodoWrite, showing a checklist.
func FormatTodoWriteTool(args map[string]any, detailLevel string) string {
	var data struct {
		Todos []struct {
			Content    string `json:"content"`
			Status     string `json:"status"`
			ActiveForm string `json:"activeForm"`
		} `json:"todos"`
	}
	if err := decodeArgs(args, &data); err != nil || len(data.Todos) == 0 {
		return ""
	}

	var checklist strings.Builder
	checklist.WriteString(fmt.Sprintf("%s TODO List Updated:\n", theme.IconChecklist))
	for _, item := range data.Todos {
		checkbox := "[ ]"
		switch item.Status {
		case "completed":
			checkbox = "[✓]"
		case "in_progress":
			checkbox = "[→]"
		}
		checklist.WriteString(fmt.Sprintf("  %s %s\n", checkbox, item.Content))
	}
	return checklist.String()
}

// FormatShellTool shows the full command line in full detail. Codex sends the
// command as an argv array, Claude as a single string.
func FormatShellTool(args map[string]any, detailLevel string) string {
	if detailLevel != "full" {
		return ""
	}
	command := ShellCommand(args)
	if command == "" {
		return ""
	}
	return "$ " + command + "\n"
}

// ShellCommand extracts the command from shell tool args. For argv arrays of
// the form ["bash", "-lc", "cmd"] the script itself is returned.
func ShellCommand(args map[string]any) string {
	switch cmd := args["command"].(type) {
	case string:
		return strings.TrimSpace(cmd)
	case []any:
		if len(cmd) >= 3 && (cmd[1] == "-lc" || cmd[1] == "-c") {
			if s, ok := cmd[2].(string); ok {
				return s
			}
		}
		var parts []string
		for _, p := range cmd {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// MakeWriteFormatter creates a Write formatter with the given max lines setting.
func MakeWriteFormatter(maxLines int) ToolFormatter {
	return func(args map[string]any, detailLevel string) string {
		return FormatWriteTool(args, maxLines, detailLevel)
	}
}
