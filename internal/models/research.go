package models

// Confidence grades how well-supported a finding is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ValidatedClaim is a research claim backed by evidence from the sources.
type ValidatedClaim struct {
	Claim      string     `json:"claim"`
	Evidence   string     `json:"evidence"`
	Confidence Confidence `json:"confidence"`
	Source     string     `json:"source"`
}

// Contradiction flags two claims that conflict with each other.
type Contradiction struct {
	ClaimA  string   `json:"claim_a"`
	ClaimB  string   `json:"claim_b"`
	Sources []string `json:"sources"`
}

// QuantifiedMetric is a numeric finding extracted from the sources.
type QuantifiedMetric struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
	Source string `json:"source"`
	Notes  string `json:"notes,omitempty"`
}

// ResearchFindings is the structured output of the research agent.
type ResearchFindings struct {
	ValidatedClaims   []ValidatedClaim   `json:"validated_claims"`
	Contradictions    []Contradiction    `json:"contradictions"`
	QuantifiedMetrics []QuantifiedMetric `json:"quantified_metrics"`
	Gaps              []string           `json:"gaps"`
	KeyThemes         []string           `json:"key_themes"`
	Summary           string             `json:"summary"`
}
