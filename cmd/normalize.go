package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/grovetools/agentevents/internal/display"
	"github.com/grovetools/agentevents/internal/transcript"
	grovelogging "github.com/grovetools/core/logging"
	"github.com/spf13/cobra"
)

var ulogNormalize = grovelogging.NewUnifiedLogger("agentevents.cmd.normalize")

func newNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Convert a recorded agent stream into canonical events",
		Long: `Reads a complete provider stream (Claude CLI stream-json, Codex CLI JSONL or
OpenAI chat completion chunks) and prints the canonical events. With no file
or "-" the stream is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}

			s, err := loadSettings(cmd, path)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			showSummary, _ := cmd.Flags().GetBool("summary")

			var in io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open stream: %w", err)
				}
				defer f.Close()
				in = f
			}

			sessionID := s.sessionID
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			pipeline, err := transcript.NewPipeline(s.provider, sessionID, s.pipelineOptions(newLogger(cmd))...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var sink transcript.Sink
			var renderer *display.Renderer
			switch format {
			case "json":
				sink = display.NewJSONSink(out)
			case "pretty":
				renderer = display.NewRenderer(out, display.Options{
					DetailLevel:  s.display.DetailLevel,
					MaxDiffLines: s.display.MaxDiffLines,
					ShowThinking: s.display.ShowThinking,
				})
				sink = renderer.Sink()
			default:
				return fmt.Errorf("unknown format %q (want pretty or json)", format)
			}

			stats, runErr := pipeline.Run(cmd.Context(), in, sink)
			if renderer != nil {
				if err := renderer.Flush(); err != nil && runErr == nil {
					runErr = err
				}
			}
			if runErr != nil {
				return fmt.Errorf("failed to normalize %s: %w", path, runErr)
			}

			if showSummary {
				ulogNormalize.Info("Normalized stream").
					Field("provider", s.provider).
					Field("session_id", sessionID).
					Field("lines", stats.Lines).
					Field("responses", stats.Responses).
					Pretty(fmt.Sprintf("\nNormalized %d lines from %s (%s):\n\n", stats.Lines, path, s.provider)).
					PrettyOnly().
					Emit()
				return display.PrintEventSummaryTable(stats, cmd.ErrOrStderr())
			}
			return nil
		},
	}

	addStreamFlags(cmd)
	cmd.Flags().StringP("format", "f", "pretty", "Output format: pretty or json")
	cmd.Flags().Bool("summary", false, "Print per-type event counts to stderr when done")
	return cmd
}
