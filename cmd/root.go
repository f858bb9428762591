package cmd

import (
	"os"

	"github.com/grovetools/agentevents/config"
	"github.com/grovetools/agentevents/internal/transcript"
	"github.com/grovetools/core/cli"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for agevents.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"agevents",
		"Normalize coding agent output into canonical events",
	)
	rootCmd.SilenceUsage = true
	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newNormalizeCmd())
	rootCmd.AddCommand(newStreamCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// addGlobalFlags registers --config and --verbose unless the standard
// command already provides them. Subcommands read both through cmd.Flags().
func addGlobalFlags(rootCmd *cobra.Command) {
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.config/agentevents/config.yaml)")
	}
	if rootCmd.PersistentFlags().Lookup("verbose") == nil {
		shorthand := "v"
		if rootCmd.PersistentFlags().ShorthandLookup(shorthand) != nil {
			shorthand = ""
		}
		rootCmd.PersistentFlags().BoolP("verbose", shorthand, false, "Enable debug logging")
	}
}

// settings is the merged result of config file and flags for one run.
type settings struct {
	provider     transcript.Provider
	sessionID    string
	maxLineBytes int
	display      config.DisplayConfig
}

// addStreamFlags registers the flags shared by normalize and stream.
func addStreamFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("provider", "p", "", "Provider: claude, codex or openai (default: guess from path)")
	cmd.Flags().StringP("session", "s", "", "Session id stamped on every event (default: random)")
	cmd.Flags().String("detail", "", "Detail level: summary or full")
	cmd.Flags().Bool("thinking", false, "Show reasoning events")
	cmd.Flags().Int("max-line-bytes", 0, "Largest accepted line in bytes")
}

// loadSettings loads the config file and applies flag overrides. path is
// used to guess the provider when neither flag nor config names one.
func loadSettings(cmd *cobra.Command, path string) (*settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("provider") {
		cfg.Stream.Provider, _ = cmd.Flags().GetString("provider")
	}
	if cmd.Flags().Changed("session") {
		cfg.Stream.SessionID, _ = cmd.Flags().GetString("session")
	}
	if cmd.Flags().Changed("detail") {
		cfg.Display.DetailLevel, _ = cmd.Flags().GetString("detail")
	}
	if cmd.Flags().Changed("thinking") {
		cfg.Display.ShowThinking, _ = cmd.Flags().GetBool("thinking")
	}
	if cmd.Flags().Changed("max-line-bytes") {
		cfg.Stream.MaxLineBytes, _ = cmd.Flags().GetInt("max-line-bytes")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &settings{
		sessionID:    cfg.Stream.SessionID,
		maxLineBytes: cfg.Stream.MaxLineBytes,
		display:      cfg.Display,
	}
	if cfg.Stream.Provider != "" {
		if s.provider, err = transcript.ParseProvider(cfg.Stream.Provider); err != nil {
			return nil, err
		}
	} else {
		s.provider = transcript.DetectProvider(path)
	}
	return s, nil
}

// newLogger returns the diagnostics logger. Diagnostics go to stderr so that
// stdout only carries events.
func newLogger(cmd *cobra.Command) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(logger)
}

func (s *settings) pipelineOptions(log *logrus.Entry) []transcript.PipelineOption {
	return []transcript.PipelineOption{
		transcript.WithLogger(log),
		transcript.WithMaxLineBytes(s.maxLineBytes),
	}
}
