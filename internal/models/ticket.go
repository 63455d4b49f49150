package models

// TicketType is the level of a ticket in the epic→story→task hierarchy.
type TicketType string

const (
	TicketTypeEpic  TicketType = "epic"
	TicketTypeStory TicketType = "story"
	TicketTypeTask  TicketType = "task"
	TicketTypeBug   TicketType = "bug"
)

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "critical"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityLow      TicketPriority = "low"
)

// Ticket is one implementation work item derived from a requirements
// document. ParentID links a story to its epic and a task to its story.
type Ticket struct {
	ID                 string         `json:"id" yaml:"id"`
	Type               TicketType     `json:"type" yaml:"type"`
	Title              string         `json:"title" yaml:"title"`
	Description        string         `json:"description" yaml:"description"`
	AcceptanceCriteria []string       `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	Priority           TicketPriority `json:"priority" yaml:"priority"`
	EstimatedPoints    int            `json:"estimated_points,omitempty" yaml:"estimated_points,omitempty"`
	ParentID           string         `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Labels             []string       `json:"labels,omitempty" yaml:"labels,omitempty"`
}
