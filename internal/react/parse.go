package react

import (
	"encoding/json"

	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// parseResearch decodes model output into research findings. A failed parse
// produces the minimal-default shape carrying the raw text, never an error.
func parseResearch(text string) *models.ResearchFindings {
	if raw := llm.ExtractJSON(text); raw != nil {
		var r models.ResearchFindings
		if err := json.Unmarshal(raw, &r); err == nil {
			return &r
		}
	}
	return &models.ResearchFindings{
		Gaps:    []string{"Could not parse structured output"},
		Summary: clip(text, 2000),
	}
}

// parseDocument decodes model output into a requirements document, with the
// same never-fail contract as parseResearch.
func parseDocument(text string) *models.RequirementsDoc {
	if raw := llm.ExtractJSON(text); raw != nil {
		var d models.RequirementsDoc
		if err := json.Unmarshal(raw, &d); err == nil && d.Title != "" {
			return &d
		}
	}
	return &models.RequirementsDoc{
		Title:            "Generated Requirements Document",
		ProblemStatement: clip(text, 2000),
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
