// Package tickets breaks a requirements document into a hierarchical
// epic→story→task ticket structure via a single reasoning call, cached by
// document content hash so the same document never triggers a second call.
package tickets

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/YalmanchiliTejas/Product-manager/internal/cache"
	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

const generationSystem = `You are a technical project manager breaking a requirements document into implementation tickets.

Given the document, create a hierarchical ticket structure with:
- 1-3 Epics (high-level feature areas)
- 2-4 Stories per Epic (user-facing capabilities)
- 1-4 Tasks per Story (concrete implementation work)

Return a JSON array of ticket objects:
[
  {
    "type": "epic",
    "title": "Epic title",
    "description": "Epic description",
    "acceptance_criteria": ["Criterion 1"],
    "priority": "high",
    "estimated_points": 0,
    "labels": ["feature-area"],
    "children": [
      {
        "type": "story",
        "title": "As a [user], I want...",
        "description": "Story description with context",
        "acceptance_criteria": ["AC 1", "AC 2"],
        "priority": "high",
        "estimated_points": 5,
        "labels": ["frontend"],
        "children": [
          {
            "type": "task",
            "title": "Implement X",
            "description": "Technical description",
            "acceptance_criteria": ["Unit tests pass"],
            "priority": "medium",
            "estimated_points": 2,
            "labels": ["backend", "api"]
          }
        ]
      }
    ]
  }
]

Guidelines:
- Story points: 1 (trivial), 2 (small), 3 (medium), 5 (large), 8 (very large)
- Acceptance criteria must be testable and specific
- Labels should reflect technical domain (frontend, backend, api, database, infra, design)
- Priorities: critical, high, medium, low
- Task descriptions should be specific enough for a developer to start immediately`

// nested is the wire shape the model returns before flattening.
type nested struct {
	Type               models.TicketType     `json:"type"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	AcceptanceCriteria []string              `json:"acceptance_criteria"`
	Priority           models.TicketPriority `json:"priority"`
	EstimatedPoints    int                   `json:"estimated_points"`
	Labels             []string              `json:"labels"`
	Children           []nested              `json:"children"`
}

// Generator creates tickets from requirements documents.
type Generator struct {
	provider llm.Provider
	cache    *cache.Service
}

// NewGenerator creates a ticket generator. cache may be nil.
func NewGenerator(provider llm.Provider, c *cache.Service) *Generator {
	return &Generator{provider: provider, cache: c}
}

// Generate produces a flat ticket list with parent-id links from doc.
func (g *Generator) Generate(ctx context.Context, doc *models.RequirementsDoc) ([]*models.Ticket, error) {
	if doc == nil {
		return nil, nil
	}
	docText := doc.Markdown()

	if g.cache != nil {
		if cachedResp, ok := g.cache.GetResponse(ctx, docText); ok {
			var tree []nested
			if err := json.Unmarshal([]byte(cachedResp), &tree); err == nil {
				return flatten(tree, ""), nil
			}
			// Corrupt cache entry: regenerate.
		}
	}

	text, _, err := g.provider.Complete(ctx, generationSystem, "Requirements document:\n\n"+docText)
	if err != nil {
		return nil, fmt.Errorf("ticket generation call: %w", err)
	}

	raw := llm.ExtractJSON(text)
	if raw == nil {
		return nil, fmt.Errorf("ticket generation produced no parseable JSON")
	}
	var tree []nested
	if err := json.Unmarshal(raw, &tree); err != nil {
		// Tolerate a single object instead of an array.
		var one nested
		if err2 := json.Unmarshal(raw, &one); err2 != nil {
			return nil, fmt.Errorf("parse ticket JSON: %w", err)
		}
		tree = []nested{one}
	}

	if g.cache != nil && len(tree) > 0 {
		if data, err := json.Marshal(tree); err == nil {
			g.cache.PutResponse(ctx, docText, string(data))
		}
	}
	return flatten(tree, ""), nil
}

// flatten walks the nested structure depth-first, assigning ids and
// parent-id references.
func flatten(tree []nested, parentID string) []*models.Ticket {
	var flat []*models.Ticket
	for _, n := range tree {
		t := &models.Ticket{
			ID:                 ulid.MustNew(ulid.Now(), rand.Reader).String(),
			Type:               n.Type,
			Title:              n.Title,
			Description:        n.Description,
			AcceptanceCriteria: n.AcceptanceCriteria,
			Priority:           n.Priority,
			EstimatedPoints:    n.EstimatedPoints,
			ParentID:           parentID,
			Labels:             n.Labels,
		}
		if t.Type == "" {
			t.Type = models.TicketTypeTask
		}
		if t.Priority == "" {
			t.Priority = models.TicketPriorityMedium
		}
		flat = append(flat, t)
		if len(n.Children) > 0 {
			flat = append(flat, flatten(n.Children, t.ID)...)
		}
	}
	return flat
}

// TotalPoints sums estimated story points across tickets.
func TotalPoints(ts []*models.Ticket) int {
	total := 0
	for _, t := range ts {
		total += t.EstimatedPoints
	}
	return total
}
