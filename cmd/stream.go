package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/agentevents/internal/display"
	"github.com/grovetools/agentevents/internal/session"
	"github.com/grovetools/agentevents/internal/transcript"
	grovelogging "github.com/grovetools/core/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var ulogStream = grovelogging.NewUnifiedLogger("agentevents.cmd.stream")

const followPollInterval = 500 * time.Millisecond

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream <file|session-id>",
		Short: "Follow a growing agent log and print canonical events",
		Long: `Tails a provider log file as the agent writes it and prints canonical events
until the file is removed or the command is interrupted. A session id is looked
up among the logs shown by 'agevents list'. Lines that violate the provider
protocol drop the current response and streaming continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locator, err := session.NewLocator()
			if err != nil {
				return err
			}
			logFile, err := locator.Resolve(args[0])
			if err != nil {
				return err
			}
			path := logFile.Path

			s, err := loadSettings(cmd, path)
			if err != nil {
				return err
			}
			fromStart, _ := cmd.Flags().GetBool("from-start")
			jsonOutput, _ := cmd.Flags().GetBool("json")

			sessionID := s.sessionID
			if sessionID == "" {
				sessionID = logFile.SessionID
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			log := newLogger(cmd)
			pipeline, err := transcript.NewPipeline(s.provider, sessionID, s.pipelineOptions(log)...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sink := display.NewJSONSink(out)
			var renderer *display.Renderer
			if !jsonOutput {
				// Streaming always shows every tool detail.
				renderer = display.NewRenderer(out, display.Options{
					DetailLevel:  "full",
					MaxDiffLines: s.display.MaxDiffLines,
					ShowThinking: s.display.ShowThinking,
				})
				sink = renderer.Sink()
			}

			if !jsonOutput {
				ulogStream.Info("Streaming log").
					Field("path", path).
					Field("provider", s.provider).
					Field("session_id", sessionID).
					Pretty(fmt.Sprintf("Streaming %s (%s)...\n", path, s.provider)).
					PrettyOnly().
					Emit()
			}

			maxLine := s.maxLineBytes
			if maxLine <= 0 {
				maxLine = transcript.DefaultMaxLineBytes
			}
			err = followFile(cmd.Context(), path, fromStart, followPollInterval, maxLine, func(line []byte) error {
				events, err := pipeline.Feed(line)
				if err != nil {
					var perr *transcript.ParseError
					if errors.As(err, &perr) {
						return nil
					}
					return err
				}
				for _, ev := range events {
					if err := sink(ev); err != nil {
						return fmt.Errorf("sink: %w", err)
					}
				}
				return nil
			})
			if renderer != nil {
				renderer.Flush()
			}

			stats := pipeline.Stats()
			log.WithFields(logrus.Fields{
				"lines":     stats.Lines,
				"responses": stats.Responses,
			}).Debug("Stream ended")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	addStreamFlags(cmd)
	cmd.Flags().Bool("from-start", false, "Replay existing content before following")
	cmd.Flags().Bool("json", false, "Print events as JSON lines")
	return cmd
}

// followFile calls handle for every complete line appended to path. It returns
// nil once the file is removed and ctx.Err() once ctx is cancelled. A trailing
// partial line is held back until its newline arrives, up to maxLineBytes.
func followFile(ctx context.Context, path string, fromStart bool, poll time.Duration, maxLineBytes int, handle func([]byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if !fromStart {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			return err
		}
	}
	reader := bufio.NewReader(file)

	var pending []byte
	lineCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if len(bytes.TrimRight(pending, "\r\n")) > maxLineBytes {
			return fmt.Errorf("line %d exceeds %d bytes", lineCount+1, maxLineBytes)
		}
		if err == io.EOF {
			// Check if file has been removed
			if _, statErr := os.Stat(path); statErr != nil {
				if errors.Is(statErr, os.ErrNotExist) {
					return nil
				}
				return statErr
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(poll):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("error reading log file after %d lines: %w", lineCount, err)
		}

		lineCount++
		line := bytes.TrimRight(pending, "\r\n")
		pending = nil
		if err := handle(line); err != nil {
			return err
		}
	}
}
