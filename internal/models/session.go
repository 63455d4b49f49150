package models

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session's conversation log.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the addressable, resumable unit of work wrapping one
// orchestrator run. All fields are serializable so a session can be
// persisted between calls and resumed in another process.
type Session struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`

	// Inputs
	Documents     []SourceDocument `json:"documents"`
	MarketContext string           `json:"market_context,omitempty"`
	Question      string           `json:"question"`

	// Control flow
	Phase    Phase     `json:"phase"`
	Tasks    []*Task   `json:"tasks"`
	Messages []Message `json:"messages"`

	// Sub-agent outputs
	Research *ResearchFindings `json:"research,omitempty"`
	Document *RequirementsDoc  `json:"document,omitempty"`
	Tickets  []*Ticket         `json:"tickets,omitempty"`

	// Memory snapshot recalled at session start
	RecalledMemories []*MemoryItem `json:"recalled_memories,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// NewSession creates a session in the intake phase.
func NewSession(projectID, userID string, docs []SourceDocument) *Session {
	now := time.Now().UTC()
	if projectID == "" {
		projectID = ulid.MustNew(ulid.Now(), rand.Reader).String()
	}
	if userID == "" {
		userID = "cli-user"
	}
	return &Session{
		ID:        ulid.MustNew(ulid.Now(), rand.Reader).String(),
		ProjectID: projectID,
		UserID:    userID,
		Documents: docs,
		Phase:     PhaseIntake,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message to the conversation log.
func (s *Session) Append(role Role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// TasksByAgent returns tasks for the given agent kinds in the given status.
func (s *Session) TasksByAgent(status TaskStatus, kinds ...AgentKind) []*Task {
	var out []*Task
	for _, t := range s.Tasks {
		if t.Status != status {
			continue
		}
		for _, k := range kinds {
			if t.Agent == k {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// HasTask reports whether any task of the given agent kind is in the given status.
func (s *Session) HasTask(status TaskStatus, kind AgentKind) bool {
	for _, t := range s.Tasks {
		if t.Agent == kind && t.Status == status {
			return true
		}
	}
	return false
}
