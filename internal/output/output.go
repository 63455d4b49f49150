// Package output provides colored terminal output and table rendering for
// the CLI surfaces.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// UI provides colored output and respects verbose mode.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	magenta       = color.New(color.FgHiMagenta).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// PhaseColor returns the string colored by session phase.
func PhaseColor(phase models.Phase) string {
	s := string(phase)
	switch phase {
	case models.PhaseWaiting, models.PhaseIntake:
		return cyan(s)
	case models.PhasePlanning, models.PhaseReviewing:
		return yellow(s)
	case models.PhaseResearching, models.PhaseGenerating, models.PhaseTicketing:
		return magenta(s)
	case models.PhaseComplete:
		return green(s)
	default:
		return s
	}
}

// StatusColor returns the string colored by task status.
func StatusColor(status models.TaskStatus) string {
	s := string(status)
	switch status {
	case models.TaskStatusProposed:
		return cyan(s)
	case models.TaskStatusConfirmed, models.TaskStatusInProgress:
		return yellow(s)
	case models.TaskStatusCompleted:
		return green(s)
	case models.TaskStatusRejected:
		return red(s)
	default:
		return s
	}
}

// PriorityColor returns the string colored by ticket priority.
func PriorityColor(p models.TicketPriority) string {
	s := string(p)
	switch p {
	case models.TicketPriorityCritical:
		return red(s)
	case models.TicketPriorityHigh:
		return yellow(s)
	case models.TicketPriorityLow:
		return cyan(s)
	default:
		return s
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// TaskTable renders the session task list.
func (u *UI) TaskTable(tasks []*models.Task) {
	table := u.Table([]string{"#", "AGENT", "STATUS", "TITLE"})
	for i, t := range tasks {
		_ = table.Append([]string{
			fmt.Sprintf("%d", i+1),
			string(t.Agent),
			StatusColor(t.Status),
			truncate(t.Title, 60),
		})
	}
	_ = table.Render()
}

// TicketTable renders generated tickets with hierarchy indentation.
func (u *UI) TicketTable(tickets []*models.Ticket) {
	table := u.Table([]string{"TYPE", "PRIORITY", "PTS", "TITLE"})
	for _, t := range tickets {
		indent := ""
		switch t.Type {
		case models.TicketTypeStory:
			indent = "  "
		case models.TicketTypeTask, models.TicketTypeBug:
			if t.ParentID != "" {
				indent = "    "
			}
		}
		_ = table.Append([]string{
			string(t.Type),
			PriorityColor(t.Priority),
			fmt.Sprintf("%d", t.EstimatedPoints),
			indent + truncate(t.Title, 60),
		})
	}
	_ = table.Render()
}

// MemoryTable renders stored memory items.
func (u *UI) MemoryTable(items []*models.MemoryItem) {
	table := u.Table([]string{"TYPE", "CONFIDENCE", "TITLE"})
	for _, item := range items {
		_ = table.Append([]string{
			string(item.Type),
			string(item.Confidence),
			truncate(item.Title, 70),
		})
	}
	_ = table.Render()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
