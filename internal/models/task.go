package models

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// TaskStatus represents the state of a planned task.
type TaskStatus string

const (
	TaskStatusProposed   TaskStatus = "proposed"
	TaskStatusConfirmed  TaskStatus = "confirmed"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusRejected   TaskStatus = "rejected"
)

// AgentKind identifies the sub-agent responsible for a task.
type AgentKind string

const (
	AgentOrchestrator AgentKind = "orchestrator"
	AgentResearch     AgentKind = "research"
	AgentContext      AgentKind = "context"
	AgentDocument     AgentKind = "document"
	AgentTicket       AgentKind = "ticket"
)

// Task is a unit of planned work tagged with the sub-agent responsible for it.
// Tasks are created in batches by planning, mutated in place by confirmation
// and dispatch, and never deleted.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"` // 1 (highest) – 5 (lowest)
	Agent       AgentKind  `json:"agent"`
	Output      string     `json:"output,omitempty"` // short summary once completed
	CreatedAt   time.Time  `json:"created_at"`
}

// NewTask creates a proposed task with a fresh ULID.
func NewTask(title, description string, agent AgentKind, priority int) *Task {
	if priority < 1 || priority > 5 {
		priority = 3
	}
	if agent == "" {
		agent = AgentOrchestrator
	}
	return &Task{
		ID:          ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Title:       title,
		Description: description,
		Status:      TaskStatusProposed,
		Priority:    priority,
		Agent:       agent,
		CreatedAt:   time.Now().UTC(),
	}
}

// CanTransition reports whether a task may move from its current status to
// next. Statuses only ever move forward: proposed→confirmed→in_progress→
// completed, or proposed→rejected.
func (t *Task) CanTransition(next TaskStatus) bool {
	switch t.Status {
	case TaskStatusProposed:
		return next == TaskStatusConfirmed || next == TaskStatusRejected
	case TaskStatusConfirmed:
		return next == TaskStatusInProgress
	case TaskStatusInProgress:
		return next == TaskStatusCompleted
	}
	return false
}

// Transition moves the task to next if the move is legal and reports whether
// it happened.
func (t *Task) Transition(next TaskStatus) bool {
	if !t.CanTransition(next) {
		return false
	}
	t.Status = next
	return true
}
