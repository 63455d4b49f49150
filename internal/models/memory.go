package models

import "time"

// MemoryType categorizes a longitudinal memory item.
type MemoryType string

const (
	MemoryDecision   MemoryType = "decision"
	MemoryConstraint MemoryType = "constraint"
	MemoryMetric     MemoryType = "metric"
	MemoryPersona    MemoryType = "persona"
)

// MemoryItem is a decision, constraint, metric, or persona insight persisted
// across sessions for a project.
type MemoryItem struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	Type       MemoryType `json:"type"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Confidence Confidence `json:"confidence"`
	Source     string     `json:"source"`
	CreatedAt  time.Time  `json:"created_at"`
}
