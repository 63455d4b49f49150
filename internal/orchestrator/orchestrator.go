// Package orchestrator owns the end-to-end phase sequence, the mutable task
// list, and the interrupt/resume contract. The state machine is a loop, not
// a one-shot pipeline: a completed session accepts a new Ask. Suspension is
// ordinary state on the Session; no goroutine blocks waiting for a human.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YalmanchiliTejas/Product-manager/internal/memory"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/react"
	"github.com/YalmanchiliTejas/Product-manager/internal/tickets"
)

// Errors surfaced to the integration layer for caller misuse. Everything
// else is recovered locally and reported as an assistant message.
var (
	ErrNoPendingDocument = errors.New("no document pending review")
	ErrSessionEnded      = errors.New("session has ended")
)

// Provider is the single-shot reasoning surface the orchestrator itself
// uses for classification.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, int64, error)
}

// Orchestrator sequences the phases of one session at a time.
type Orchestrator struct {
	provider Provider
	engine   *react.Engine
	tickets  *tickets.Generator
	memory   *memory.Hooks // optional
}

// New wires the orchestrator's collaborators. mem may be nil.
func New(provider Provider, engine *react.Engine, gen *tickets.Generator, mem *memory.Hooks) *Orchestrator {
	return &Orchestrator{provider: provider, engine: engine, tickets: gen, memory: mem}
}

// Start processes initial source data, greets the caller, and leaves the
// session waiting for a question. No side effects beyond message append.
func (o *Orchestrator) Start(sess *models.Session) error {
	if sess.EndedAt != nil {
		return ErrSessionEnded
	}
	totalWords := 0
	for _, d := range sess.Documents {
		totalWords += d.WordCount
	}
	sess.Append(models.RoleAssistant, fmt.Sprintf(
		"Loaded %d source file(s) (%d words total). I'm ready to analyse them. What would you like to explore?",
		len(sess.Documents), totalWords))
	sess.Phase = models.PhaseWaiting
	return nil
}

// Ask classifies the question, plans a task batch, and suspends in the
// planning phase pending confirmation. With autoConfirm it proceeds through
// confirmation, dispatch, review, and ticketing as if the human had
// approved every step.
func (o *Orchestrator) Ask(ctx context.Context, sess *models.Session, question string, autoConfirm bool) error {
	if sess.EndedAt != nil {
		return ErrSessionEnded
	}
	sess.Question = question
	sess.Phase = models.PhaseWaiting
	sess.Append(models.RoleUser, question)

	a := o.classify(ctx, sess)
	sess.Tasks = append(sess.Tasks, planTasks(a)...)
	sess.Phase = models.PhasePlanning

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analysis: %s\n\nProposed task plan:\n", a.Reasoning)
	i := 0
	for _, t := range sess.Tasks {
		if t.Status != models.TaskStatusProposed {
			continue
		}
		i++
		fmt.Fprintf(&sb, "  %d. [%s] %s\n", i, t.Agent, t.Title)
	}
	sb.WriteString("\nConfirm these tasks? (yes/no, or modify)")
	sess.Append(models.RoleAssistant, sb.String())

	if autoConfirm {
		if err := o.Confirm(ctx, sess, "yes"); err != nil {
			return err
		}
		if sess.Phase == models.PhaseReviewing {
			return o.ReviewDocument(ctx, sess, "approve")
		}
	}
	return nil
}

// Confirm is the planning interrupt's resume point. "yes"/"y"/"ok"/"" (and
// "confirm") confirm all proposed tasks; "no"/"n"/"reject" reject them all
// and return to waiting; any other text is treated as a modification note
// and still confirms everything, a known limitation carried over from the
// product's current behavior. The phase advances to researching only when
// this leaves at least one task confirmed.
func (o *Orchestrator) Confirm(ctx context.Context, sess *models.Session, response string) error {
	if sess.EndedAt != nil {
		return ErrSessionEnded
	}
	text := strings.ToLower(strings.TrimSpace(response))
	sess.Append(models.RoleUser, response)

	switch text {
	case "no", "n", "reject":
		for _, t := range sess.Tasks {
			t.Transition(models.TaskStatusRejected)
		}
		sess.Phase = models.PhaseWaiting
		sess.Append(models.RoleAssistant, "Tasks rejected. What would you like to do instead?")
		return nil
	case "yes", "y", "confirm", "ok", "":
		// fallthrough to confirm below
	default:
		sess.Append(models.RoleAssistant, fmt.Sprintf("Noted: %q. Proceeding with adjusted plan.", text))
	}

	for _, t := range sess.Tasks {
		t.Transition(models.TaskStatusConfirmed)
	}

	anyConfirmed := false
	for _, t := range sess.Tasks {
		if t.Status == models.TaskStatusConfirmed {
			anyConfirmed = true
			break
		}
	}
	if !anyConfirmed {
		// A failed dispatch step leaves its tasks in_progress and the phase
		// held; confirming again retries the pipeline from that step.
		switch sess.Phase {
		case models.PhaseResearching, models.PhaseGenerating, models.PhaseTicketing:
			if sess.HasTask(models.TaskStatusInProgress, models.AgentResearch) ||
				sess.HasTask(models.TaskStatusInProgress, models.AgentContext) ||
				sess.HasTask(models.TaskStatusInProgress, models.AgentDocument) ||
				sess.HasTask(models.TaskStatusInProgress, models.AgentTicket) {
				return o.runPipeline(ctx, sess)
			}
		}
		// Nothing left to confirm: no-op on the task list, nothing dispatched.
		if sess.Phase == models.PhasePlanning {
			sess.Phase = models.PhaseWaiting
			sess.Append(models.RoleAssistant, "No tasks to confirm. What would you like to do?")
		}
		return nil
	}

	sess.Phase = models.PhaseResearching
	return o.runPipeline(ctx, sess)
}

// runPipeline executes confirmed work in phase order, suspending at the
// review interrupt when a document was generated.
func (o *Orchestrator) runPipeline(ctx context.Context, sess *models.Session) error {
	if sess.HasTask(models.TaskStatusConfirmed, models.AgentResearch) ||
		sess.HasTask(models.TaskStatusConfirmed, models.AgentContext) ||
		sess.HasTask(models.TaskStatusInProgress, models.AgentResearch) {
		if !o.dispatchResearch(ctx, sess) {
			return nil // step failed; phase holds so the caller can retry
		}
	}

	if sess.HasTask(models.TaskStatusConfirmed, models.AgentDocument) ||
		sess.HasTask(models.TaskStatusInProgress, models.AgentDocument) {
		sess.Phase = models.PhaseGenerating
		if !o.generateDocument(ctx, sess) {
			return nil
		}
		return nil // suspended in reviewing
	}

	if sess.HasTask(models.TaskStatusConfirmed, models.AgentTicket) ||
		sess.HasTask(models.TaskStatusInProgress, models.AgentTicket) {
		sess.Phase = models.PhaseTicketing
		if !o.createTickets(ctx, sess) {
			return nil
		}
	}

	o.finish(sess)
	return nil
}

// ReviewDocument is the review interrupt's resume point. "approve"/"skip"
// advance toward ticketing; any other text is revision feedback: the
// question is rewritten and document generation re-runs under the same
// iteration cap, suspending in reviewing again.
func (o *Orchestrator) ReviewDocument(ctx context.Context, sess *models.Session, response string) error {
	if sess.EndedAt != nil {
		return ErrSessionEnded
	}
	if sess.Phase != models.PhaseReviewing || sess.Document == nil {
		return ErrNoPendingDocument
	}
	text := strings.ToLower(strings.TrimSpace(response))
	sess.Append(models.RoleUser, response)

	switch text {
	case "approve", "yes", "y", "ok", "":
		sess.Append(models.RoleAssistant, "Document approved.")
	case "skip", "s":
		sess.Append(models.RoleAssistant, "Document review skipped.")
	default:
		sess.Append(models.RoleAssistant, fmt.Sprintf("Noted feedback: %q. Revising document...", text))
		sess.Question = "Revise the document based on this feedback: " + response
		sess.Phase = models.PhaseGenerating
		o.generateDocument(ctx, sess)
		return nil
	}

	if sess.HasTask(models.TaskStatusConfirmed, models.AgentTicket) {
		sess.Phase = models.PhaseTicketing
		if !o.createTickets(ctx, sess) {
			return nil
		}
	}
	o.finish(sess)
	return nil
}

// dispatchResearch runs the research loop and reports whether the step
// succeeded. Failures never abort the flow; they become assistant messages
// and the phase holds.
func (o *Orchestrator) dispatchResearch(ctx context.Context, sess *models.Session) bool {
	markInProgress(sess, models.AgentResearch, models.AgentContext)
	sess.Append(models.RoleAssistant, "Running research and context agents...")

	run, err := o.engine.Run(ctx, sess, models.AgentResearch)
	if err != nil {
		sess.Append(models.RoleAssistant, fmt.Sprintf(
			"Research step failed: %v. Confirm again to retry.", err))
		return false
	}
	sess.Research = run.Research

	claims := len(run.Research.ValidatedClaims)
	completeTasks(sess, models.AgentResearch, fmt.Sprintf("%d claims", claims))
	completeTasks(sess, models.AgentContext, "context assembled")

	o.remember(ctx, sess, "researching", run.Research.Summary)

	cachedCalls := 0
	for _, c := range run.ToolCalls {
		if c.Cached {
			cachedCalls++
		}
	}
	summary := run.Research.Summary
	if len(summary) > 500 {
		summary = summary[:500]
	}
	sess.Append(models.RoleAssistant, fmt.Sprintf(
		"Research complete: %d claims extracted, %d tool calls (%d cached).\n\nSummary: %s",
		claims, len(run.ToolCalls), cachedCalls, summary))
	return true
}

// generateDocument runs the document loop and suspends in reviewing.
func (o *Orchestrator) generateDocument(ctx context.Context, sess *models.Session) bool {
	markInProgress(sess, models.AgentDocument)
	sess.Append(models.RoleAssistant, "Generating requirements document...")

	run, err := o.engine.Run(ctx, sess, models.AgentDocument)
	if err != nil {
		sess.Append(models.RoleAssistant, fmt.Sprintf(
			"Document generation failed: %v. Confirm again to retry.", err))
		return false
	}
	sess.Document = run.Document
	completeTasks(sess, models.AgentDocument, run.Document.Title)

	o.remember(ctx, sess, "generating", run.Document.ProblemStatement)

	preview := run.Document.Markdown()
	if len(preview) > 1000 {
		preview = preview[:1000] + "..."
	}
	sess.Phase = models.PhaseReviewing
	sess.Append(models.RoleAssistant, fmt.Sprintf(
		"Document generated: **%s**\n\n%s\n\nReview this document? (approve/revise/skip)",
		run.Document.Title, preview))
	return true
}

// createTickets runs ticket generation.
func (o *Orchestrator) createTickets(ctx context.Context, sess *models.Session) bool {
	markInProgress(sess, models.AgentTicket)
	sess.Append(models.RoleAssistant, "Creating implementation tickets...")

	ts, err := o.tickets.Generate(ctx, sess.Document)
	if err != nil {
		sess.Append(models.RoleAssistant, fmt.Sprintf(
			"Ticket creation failed: %v. Retry once the provider recovers.", err))
		return false
	}
	sess.Tickets = ts
	completeTasks(sess, models.AgentTicket, fmt.Sprintf("%d tickets", len(ts)))

	sess.Append(models.RoleAssistant, fmt.Sprintf(
		"Created %d tickets (%d story points total).\n\nWould you like to explore something else, or are we done?",
		len(ts), tickets.TotalPoints(ts)))
	return true
}

// finish moves the session to complete, first settling any task the
// pipeline skipped so phase and task statuses never disagree.
func (o *Orchestrator) finish(sess *models.Session) {
	for _, t := range sess.Tasks {
		switch t.Status {
		case models.TaskStatusInProgress:
			t.Status = models.TaskStatusCompleted
		case models.TaskStatusConfirmed:
			t.Transition(models.TaskStatusInProgress)
			t.Transition(models.TaskStatusCompleted)
		}
	}
	sess.Phase = models.PhaseComplete
}

// remember extracts memory items from a phase output, best-effort.
func (o *Orchestrator) remember(ctx context.Context, sess *models.Session, phase, output string) {
	if o.memory == nil {
		return
	}
	o.memory.ExtractFromPhase(ctx, sess.ProjectID, phase, output)
}

func markInProgress(sess *models.Session, kinds ...models.AgentKind) {
	for _, t := range sess.Tasks {
		for _, k := range kinds {
			if t.Agent == k && t.Status == models.TaskStatusConfirmed {
				t.Transition(models.TaskStatusInProgress)
			}
		}
	}
}

func completeTasks(sess *models.Session, kind models.AgentKind, output string) {
	for _, t := range sess.Tasks {
		if t.Agent == kind && t.Status == models.TaskStatusInProgress {
			t.Transition(models.TaskStatusCompleted)
			t.Output = output
		}
	}
}
