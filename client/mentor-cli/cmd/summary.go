package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize your conversation with the mentor",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(sessionPath)
			if err != nil {
				return err
			}
			if s.ConversationID == "" {
				return fmt.Errorf("no conversation yet, send a message with `mentor-cli chat` first")
			}
			var resp struct {
				Summary string `json:"summary"`
			}
			if err := newClient().PostJSON(cmd.Context(), "/api/v1/conversations/"+s.ConversationID+"/summary", nil, &resp); err != nil {
				return fmt.Errorf("summary failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Summary)
			return nil
		},
	}
}
