// Package memory implements the longitudinal memory hooks: recall at
// session start, extraction of structured items from phase outputs, and a
// flush at session end. It always works without a durable store by keeping
// a session-local log; when a store is configured, items also persist
// across sessions.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/YalmanchiliTejas/Product-manager/internal/evidence"
	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// Store is the durable memory collaborator. Optional; nil means
// session-local memory only.
type Store interface {
	SaveMemoryItems(ctx context.Context, items []*models.MemoryItem) error
	ListMemoryItems(ctx context.Context, projectID string, limit int) ([]*models.MemoryItem, error)
}

const extractionSystem = `You are a memory extraction system for a product management AI.

Given the output of an agent phase, extract structured memory items that
should be persisted for future sessions. Each item is a decision,
constraint, metric, or persona insight that would affect future product
decisions.

Return a JSON array:
[
  {
    "type": "decision|constraint|metric|persona",
    "title": "Short descriptive title (max 120 chars)",
    "content": "Full detail of the item",
    "confidence": "high|medium|low",
    "source": "Which phase/data produced this"
  }
]

Guidelines:
- Only extract items that are actionable and would affect future decisions
- Be specific; "users want better UX" is too vague
- Include the evidence source where possible`

// Hooks wires sessions into the memory layer.
type Hooks struct {
	store    Store        // optional
	provider llm.Provider // optional; nil disables extraction

	mu  sync.Mutex
	log []*models.MemoryItem // session-local items awaiting flush
}

// NewHooks creates memory hooks. Both arguments may be nil.
func NewHooks(store Store, provider llm.Provider) *Hooks {
	return &Hooks{store: store, provider: provider}
}

// Recall fetches past memory items relevant to the question, ranked by
// keyword overlap. Best-effort: a missing or failing store yields an empty
// slice, never an error.
func (h *Hooks) Recall(ctx context.Context, projectID, question string, limit int) []*models.MemoryItem {
	if limit <= 0 {
		limit = 10
	}
	var items []*models.MemoryItem
	if h.store != nil {
		stored, err := h.store.ListMemoryItems(ctx, projectID, 200)
		if err == nil {
			items = stored
		}
	}
	h.mu.Lock()
	items = append(items, h.log...)
	h.mu.Unlock()

	if question != "" {
		items = rank(items, question)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Search keyword-searches the session-local log plus the store.
func (h *Hooks) Search(ctx context.Context, projectID, query string, limit int) []*models.MemoryItem {
	return h.Recall(ctx, projectID, query, limit)
}

// ExtractFromPhase asks the reasoning provider to distill memory items from
// a phase output and records them in the session-local log. Parse or
// provider failures extract nothing; the phase is never interrupted.
func (h *Hooks) ExtractFromPhase(ctx context.Context, projectID, phase, output string) []*models.MemoryItem {
	if h.provider == nil || output == "" {
		return nil
	}
	prompt := fmt.Sprintf("Phase: %s\n\nOutput:\n%s", phase, output)
	text, _, err := h.provider.Complete(ctx, extractionSystem, prompt)
	if err != nil {
		return nil
	}
	raw := llm.ExtractJSON(text)
	if raw == nil {
		return nil
	}
	var decoded []struct {
		Type       models.MemoryType `json:"type"`
		Title      string            `json:"title"`
		Content    string            `json:"content"`
		Confidence models.Confidence `json:"confidence"`
		Source     string            `json:"source"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}

	items := make([]*models.MemoryItem, 0, len(decoded))
	for _, d := range decoded {
		if d.Content == "" {
			continue
		}
		items = append(items, &models.MemoryItem{
			ID:         ulid.MustNew(ulid.Now(), rand.Reader).String(),
			ProjectID:  projectID,
			Type:       d.Type,
			Title:      d.Title,
			Content:    d.Content,
			Confidence: d.Confidence,
			Source:     d.Source,
			CreatedAt:  time.Now().UTC(),
		})
	}

	h.mu.Lock()
	h.log = append(h.log, items...)
	h.mu.Unlock()
	return items
}

// Flush persists the session-local log to the store and clears it.
// Called when a session ends. Store errors are swallowed; the log is
// retained so a retry can still flush it.
func (h *Hooks) Flush(ctx context.Context) error {
	h.mu.Lock()
	pending := h.log
	h.mu.Unlock()

	if len(pending) == 0 || h.store == nil {
		h.mu.Lock()
		h.log = nil
		h.mu.Unlock()
		return nil
	}
	if err := h.store.SaveMemoryItems(ctx, pending); err != nil {
		return fmt.Errorf("flush memory items: %w", err)
	}
	h.mu.Lock()
	h.log = nil
	h.mu.Unlock()
	return nil
}

// rank orders items by keyword overlap with the query, best first.
func rank(items []*models.MemoryItem, query string) []*models.MemoryItem {
	type scored struct {
		score float64
		item  *models.MemoryItem
	}
	ss := make([]scored, 0, len(items))
	for _, it := range items {
		ss = append(ss, scored{evidence.Overlap(query, it.Title+" "+it.Content), it})
	}
	for i := 0; i < len(ss); i++ {
		best := i
		for j := i + 1; j < len(ss); j++ {
			if ss[j].score > ss[best].score {
				best = j
			}
		}
		ss[i], ss[best] = ss[best], ss[i]
	}
	out := make([]*models.MemoryItem, len(ss))
	for i, s := range ss {
		out[i] = s.item
	}
	return out
}
