package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YalmanchiliTejas/Product-manager/internal/docload"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/output"
)

var chatCmd = &cobra.Command{
	Use:   "chat <documents-dir>",
	Short: "Interactive analysis session over a directory of documents",
	Long: `Start an interactive session over interview transcripts and source
documents. Ask product questions; pma plans tasks, runs research and
document generation, and pauses for your confirmation at each step.

Slash commands inside the session:
  /tasks     show the current task list
  /document  show the generated requirements document
  /tickets   show generated tickets
  /memory    show memory recalled for this project
  /stats     show cache statistics
  /quit      end the session (flushes memory)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatRun(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chatRun(ctx context.Context, dir string) error {
	docs, err := docload.LoadDir(dir)
	if err != nil {
		return err
	}

	a, err := buildApp(docs)
	if err != nil {
		return err
	}

	sess, err := a.sessions.Create(ctx, viper.GetString("project_id"), "cli-user", docs)
	if err != nil {
		return err
	}
	if err := a.orch.Start(sess); err != nil {
		return err
	}
	printAssistant(sess)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprintf(ui.Out, "\n%s ", output.Cyan(">"))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := chatCommand(ctx, a, sess, line); done {
				break
			}
			continue
		}

		before := len(sess.Messages)
		switch sess.Phase {
		case models.PhasePlanning:
			err = a.orch.Confirm(ctx, sess, line)
		case models.PhaseReviewing:
			err = a.orch.ReviewDocument(ctx, sess, line)
		default:
			err = a.orch.Ask(ctx, sess, line, false)
		}
		if err != nil {
			ui.Error("%v", err)
			continue
		}
		if saveErr := a.sessions.Save(ctx, sess); saveErr != nil {
			ui.VerboseLog("save session: %v", saveErr)
		}
		printNewAssistant(sess, before)
	}

	if _, err := a.sessions.End(ctx, sess.ID); err != nil {
		ui.Warning("end session: %v", err)
	}
	ui.Success("Session ended.")
	return nil
}

// chatCommand handles slash commands; returns true when the session should end.
func chatCommand(ctx context.Context, a *app, sess *models.Session, line string) bool {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit", "/q":
		return true
	case "/tasks":
		ui.Info("Phase: %s", output.PhaseColor(sess.Phase))
		ui.TaskTable(sess.Tasks)
	case "/document":
		if sess.Document == nil {
			ui.Warning("No document generated yet.")
		} else {
			fmt.Fprintln(ui.Out, sess.Document.Markdown())
		}
	case "/tickets":
		if len(sess.Tickets) == 0 {
			ui.Warning("No tickets generated yet.")
		} else {
			ui.TicketTable(sess.Tickets)
		}
	case "/memory":
		items := a.memory.Recall(ctx, sess.ProjectID, sess.Question, 20)
		if len(items) == 0 {
			ui.Info("No memory items for this project yet.")
		} else {
			ui.MemoryTable(items)
		}
	case "/stats":
		stats := a.cache.Stats()
		ui.Info("Cache: %d hits, %d misses, %d tokens saved",
			stats.Hits, stats.Misses, stats.TokensSaved)
	default:
		ui.Warning("Unknown command: %s", line)
	}
	return false
}

// printAssistant prints the latest assistant message.
func printAssistant(sess *models.Session) {
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Role == models.RoleAssistant {
			fmt.Fprintln(ui.Out, sess.Messages[i].Content)
			return
		}
	}
}

// printNewAssistant prints every assistant message appended since index from.
func printNewAssistant(sess *models.Session, from int) {
	for _, m := range sess.Messages[from:] {
		if m.Role == models.RoleAssistant {
			fmt.Fprintln(ui.Out, m.Content)
		}
	}
}
