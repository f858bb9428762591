package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/agentevents/internal/display"
	"github.com/grovetools/agentevents/internal/session"
	grovelogging "github.com/grovetools/core/logging"
	"github.com/spf13/cobra"
)

var ulogList = grovelogging.NewUnifiedLogger("agentevents.cmd.list")

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Claude and Codex logs found on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			provider, _ := cmd.Flags().GetString("provider")

			locator, err := session.NewLocator()
			if err != nil {
				return err
			}
			logs, err := locator.Scan()
			if err != nil {
				return fmt.Errorf("failed to scan for logs: %w", err)
			}
			if provider != "" {
				filtered := logs[:0]
				for _, l := range logs {
					if string(l.Provider) == provider {
						filtered = append(filtered, l)
					}
				}
				logs = filtered
			}

			if jsonOutput {
				data, err := json.MarshalIndent(logs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if len(logs) == 0 {
				ulogList.Info("No logs found").
					Pretty("No agent logs found\n").
					PrettyOnly().
					Emit()
				return nil
			}
			return display.PrintLogsTable(logs, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("json", false, "Output in JSON format")
	cmd.Flags().StringP("provider", "p", "", "Only list logs of this provider (claude or codex)")
	return cmd
}
