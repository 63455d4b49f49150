// Package llm wraps the hosted reasoning provider behind a small interface
// the orchestrator and loop engine depend on. Two interchangeable
// strategies exist: NativeClient (extended thinking + server-side prompt
// caching + tool calling) and BasicClient (plain messages, for providers
// or configurations lacking those features).
package llm

import "context"

// ToolProp describes one property of a tool's input schema.
type ToolProp struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolDef describes a tool offered to the reasoning provider.
type ToolDef struct {
	Name        string
	Description string
	Properties  map[string]ToolProp
	Required    []string
}

// ToolRequest is one tool invocation requested by the provider.
type ToolRequest struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult carries the textual result of one executed tool call back to
// the provider, keyed by the originating request id.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
}

// UserTurn is the caller's side of one conversation step: either an opening
// text message or the consolidated results of the previous tool requests.
type UserTurn struct {
	Text        string
	ToolResults []ToolResult
}

// Turn is the provider's side of one conversation step. An empty
// ToolRequests slice means the provider produced a final answer.
type Turn struct {
	Text         string
	ToolRequests []ToolRequest
	TokensUsed   int64
}

// Conversation is a stateful multi-turn exchange with the provider.
// Implementations keep the full turn history internally (including any
// provider-specific reasoning blocks that must be echoed back verbatim).
type Conversation interface {
	// Send appends the user turn and returns the provider's next turn.
	// reasoningBudget is a token budget for extended internal reasoning;
	// implementations that do not support it ignore the value.
	Send(ctx context.Context, user UserTurn, reasoningBudget int64) (*Turn, error)
}

// Provider is the reasoning provider boundary.
type Provider interface {
	// Name identifies the strategy, e.g. "anthropic-native".
	Name() string
	// Converse starts a tool-enabled conversation under the given system prompt.
	Converse(system string, tools []ToolDef) Conversation
	// Complete performs a single tool-less call and returns the text answer
	// plus tokens used.
	Complete(ctx context.Context, system, prompt string) (string, int64, error)
}
