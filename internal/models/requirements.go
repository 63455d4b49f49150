package models

import (
	"fmt"
	"strings"
)

// KPI is a measurable target attached to a requirements document.
type KPI struct {
	Metric            string `json:"metric" yaml:"metric"`
	Target            string `json:"target" yaml:"target"`
	MeasurementMethod string `json:"measurement_method" yaml:"measurement_method"`
}

// NextAction is a follow-up item with an owner and timeline.
type NextAction struct {
	Action   string `json:"action" yaml:"action"`
	Owner    string `json:"owner" yaml:"owner"`
	Timeline string `json:"timeline" yaml:"timeline"`
}

// RequirementsDoc is the structured output of the document agent: an
// evidence-backed product requirements document.
type RequirementsDoc struct {
	Title                 string       `json:"title" yaml:"title"`
	ProblemStatement      string       `json:"problem_statement" yaml:"problem_statement"`
	UserStories           []string     `json:"user_stories" yaml:"user_stories"`
	ProposedSolution      string       `json:"proposed_solution" yaml:"proposed_solution"`
	KPIs                  []KPI        `json:"kpis" yaml:"kpis"`
	TechnicalRequirements []string     `json:"technical_requirements" yaml:"technical_requirements"`
	ConstraintsAndRisks   []string     `json:"constraints_and_risks" yaml:"constraints_and_risks"`
	NextActions           []NextAction `json:"next_actions" yaml:"next_actions"`
	SuccessMetrics        []string     `json:"success_metrics" yaml:"success_metrics"`
	EvidenceCitations     []string     `json:"evidence_citations" yaml:"evidence_citations"`
}

// Markdown renders the document as a readable markdown string.
func (d *RequirementsDoc) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Title)
	if d.ProblemStatement != "" {
		fmt.Fprintf(&sb, "## Problem\n\n%s\n\n", d.ProblemStatement)
	}
	if len(d.UserStories) > 0 {
		sb.WriteString("## User Stories\n\n")
		for _, s := range d.UserStories {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		sb.WriteString("\n")
	}
	if d.ProposedSolution != "" {
		fmt.Fprintf(&sb, "## Proposed Solution\n\n%s\n\n", d.ProposedSolution)
	}
	if len(d.KPIs) > 0 {
		sb.WriteString("## KPIs\n\n")
		for _, k := range d.KPIs {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", k.Metric, k.Target, k.MeasurementMethod)
		}
		sb.WriteString("\n")
	}
	if len(d.TechnicalRequirements) > 0 {
		sb.WriteString("## Technical Requirements\n\n")
		for _, r := range d.TechnicalRequirements {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
		sb.WriteString("\n")
	}
	if len(d.ConstraintsAndRisks) > 0 {
		sb.WriteString("## Constraints & Risks\n\n")
		for _, c := range d.ConstraintsAndRisks {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
		sb.WriteString("\n")
	}
	if len(d.NextActions) > 0 {
		sb.WriteString("## Next Actions\n\n")
		for _, a := range d.NextActions {
			fmt.Fprintf(&sb, "- %s (%s, %s)\n", a.Action, a.Owner, a.Timeline)
		}
		sb.WriteString("\n")
	}
	if len(d.EvidenceCitations) > 0 {
		sb.WriteString("## Evidence\n\n")
		for _, e := range d.EvidenceCitations {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
