package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YalmanchiliTejas/Product-manager/internal/docload"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/tickets"
)

var (
	askOut     string
	askProject string
)

var askCmd = &cobra.Command{
	Use:   "ask <documents-dir> <question>",
	Short: "One-shot analysis: run the full pipeline without confirmation stops",
	Long: `Run a question through the full pipeline (research, document,
tickets) with every confirmation auto-approved, then print the results.

Use --out to export the document and tickets. A .md path exports the
document as markdown; a .yaml/.yml path exports document plus tickets.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return askRun(cmd.Context(), args[0], strings.Join(args[1:], " "))
	},
}

func init() {
	askCmd.Flags().StringVarP(&askOut, "out", "o", "", "Export results to file (.md or .yaml)")
	askCmd.Flags().StringVar(&askProject, "project", "", "Project id for memory grouping")
	rootCmd.AddCommand(askCmd)
}

func askRun(ctx context.Context, dir, question string) error {
	docs, err := docload.LoadDir(dir)
	if err != nil {
		return err
	}

	a, err := buildApp(docs)
	if err != nil {
		return err
	}

	projectID := askProject
	if projectID == "" {
		projectID = viper.GetString("project_id")
	}
	sess, err := a.sessions.Create(ctx, projectID, "cli-user", docs)
	if err != nil {
		return err
	}
	if err := a.orch.Start(sess); err != nil {
		return err
	}
	ui.Info("Loaded %d document(s); running full pipeline...", len(docs))

	if err := a.orch.Ask(ctx, sess, question, true); err != nil {
		return err
	}

	if sess.Research != nil {
		ui.Success("Research: %d claims, %d metrics, %d contradictions",
			len(sess.Research.ValidatedClaims), len(sess.Research.QuantifiedMetrics),
			len(sess.Research.Contradictions))
	}
	if sess.Document != nil {
		ui.Success("Document: %s", sess.Document.Title)
	}
	if len(sess.Tickets) > 0 {
		ui.Success("Tickets: %d (%d story points)", len(sess.Tickets), tickets.TotalPoints(sess.Tickets))
		ui.TicketTable(sess.Tickets)
	}

	if askOut != "" {
		if err := exportResults(sess, askOut); err != nil {
			return err
		}
		ui.Success("Exported to %s", askOut)
	} else if sess.Document != nil {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, sess.Document.Markdown())
	}

	if _, err := a.sessions.End(ctx, sess.ID); err != nil {
		ui.Warning("end session: %v", err)
	}

	stats := a.cache.Stats()
	ui.VerboseLog("cache: %d hits, %d misses", stats.Hits, stats.Misses)
	return nil
}

// exportResults writes the document (and tickets, for yaml) to path.
func exportResults(sess *models.Session, path string) error {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".md"):
		if sess.Document == nil {
			return fmt.Errorf("no document to export")
		}
		return os.WriteFile(path, []byte(sess.Document.Markdown()), 0o644)
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		out := struct {
			Question string                  `yaml:"question"`
			Document *models.RequirementsDoc `yaml:"document,omitempty"`
			Tickets  []*models.Ticket        `yaml:"tickets,omitempty"`
		}{sess.Question, sess.Document, sess.Tickets}
		data, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("marshal export: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	default:
		return fmt.Errorf("unsupported export format: %s (use .md or .yaml)", path)
	}
}
