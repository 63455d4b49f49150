package models

// ToolCallRecord is one append-only entry in a loop run's tool-call log,
// kept for observability and for forced synthesis.
type ToolCallRecord struct {
	Tool          string         `json:"tool"`
	Args          map[string]any `json:"args"`
	ResultPreview string         `json:"result_preview"`
	Cached        bool           `json:"cached"`
	TokensUsed    int64          `json:"tokens_used"`
}

// LoopRun is the terminal result of one bounded ReAct loop execution.
// Exactly one of Research or Document is set, depending on the agent kind.
type LoopRun struct {
	AgentKind  AgentKind         `json:"agent_kind"`
	Research   *ResearchFindings `json:"research,omitempty"`
	Document   *RequirementsDoc  `json:"document,omitempty"`
	ToolCalls  []ToolCallRecord  `json:"tool_calls"`
	Iterations int               `json:"iterations"`
	TokensUsed int64             `json:"tokens_used"`
	Forced     bool              `json:"forced"`   // forced synthesis produced the result
	Fallback   bool              `json:"fallback"` // provider fallback path was used
}
