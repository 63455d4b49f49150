package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/output"
)

var sessionsProject string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and inspect persisted sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListRun(cmd)
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListRun(cmd)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's phase, tasks, and conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsShowRun(cmd, args[0])
	},
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsProject, "project", "", "Filter by project id")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func sessionsListRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	sessions, err := s.ListSessions(cmd.Context(), sessionsProject, 50)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("No sessions stored yet.")
		return nil
	}

	table := ui.Table([]string{"ID", "PHASE", "DOCS", "QUESTION", "CREATED"})
	for _, sess := range sessions {
		question := sess.Question
		if len(question) > 50 {
			question = question[:47] + "..."
		}
		_ = table.Append([]string{
			sess.ID,
			output.PhaseColor(sess.Phase),
			fmt.Sprintf("%d", len(sess.Documents)),
			question,
			sess.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()
	return nil
}

func sessionsShowRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	sess, err := s.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}

	ui.Info("Session %s  phase: %s", sess.ID, output.PhaseColor(sess.Phase))
	if len(sess.Tasks) > 0 {
		fmt.Fprintln(ui.Out)
		ui.TaskTable(sess.Tasks)
	}
	fmt.Fprintln(ui.Out)
	for _, m := range sess.Messages {
		prefix := output.Cyan("you")
		if m.Role == models.RoleAssistant {
			prefix = output.Green("pma")
		}
		fmt.Fprintf(ui.Out, "%s  %s\n", prefix, m.Content)
	}
	return nil
}
