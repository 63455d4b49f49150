package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/YalmanchiliTejas/Product-manager/internal/evidence"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

func (r *Registry) listDocuments(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	if len(sess.Documents) == 0 {
		return "No documents loaded.", nil
	}
	lines := []string{"Available documents:"}
	for _, d := range sess.Documents {
		lines = append(lines, fmt.Sprintf("- %s: %d words, %d speakers", d.Filename, d.WordCount, d.SpeakerCount))
	}
	return strings.Join(lines, "\n"), nil
}

// findDocument resolves a document by exact filename, then by substring.
func findDocument(sess *models.Session, id string) *models.SourceDocument {
	for i := range sess.Documents {
		if sess.Documents[i].Filename == id {
			return &sess.Documents[i]
		}
	}
	for i := range sess.Documents {
		if strings.Contains(sess.Documents[i].Filename, id) {
			return &sess.Documents[i]
		}
	}
	return nil
}

func (r *Registry) searchDocumentIndex(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	id := strArg(args, "id")
	query := strArg(args, "query")

	doc := findDocument(sess, id)
	if doc == nil {
		return fmt.Sprintf("Document %q not found. Use list_documents to see available files.", id), nil
	}
	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Sprintf("Document %q has no content.", id), nil
	}

	sections, err := r.index.Search(ctx, doc, query)
	if err != nil {
		return "", fmt.Errorf("search index: %w", err)
	}
	if len(sections) == 0 {
		return "No relevant sections found. Try a different query.", nil
	}
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, fmt.Sprintf("[section: %s] %s\n%s", s.ID, s.Title, truncate(s.Content, 600)))
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}

func (r *Registry) readDocumentSection(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	id := strArg(args, "id")
	sectionID := strArg(args, "section_id")

	doc := findDocument(sess, id)
	if doc == nil {
		return fmt.Sprintf("Document %q not found.", id), nil
	}
	content, err := r.index.Read(ctx, doc, sectionID)
	if err != nil {
		return fmt.Sprintf("Section %q not found in %s.", sectionID, doc.Filename), nil
	}
	return fmt.Sprintf("[%s / %s]\n%s", doc.Filename, sectionID, truncate(content, 2500)), nil
}

func (r *Registry) searchMemory(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	query := strArg(args, "query")

	// Score the pre-recalled slice first, then fall through to the live
	// store when results are sparse so past-session decisions are not missed.
	type hit struct {
		score float64
		item  *models.MemoryItem
	}
	var hits []hit
	for _, m := range sess.RecalledMemories {
		score := evidence.Overlap(query, m.Title+" "+m.Content)
		if score >= 0.15 {
			hits = append(hits, hit{score, m})
		}
	}
	for i := 0; i < len(hits); i++ {
		best := i
		for j := i + 1; j < len(hits); j++ {
			if hits[j].score > hits[best].score {
				best = j
			}
		}
		hits[i], hits[best] = hits[best], hits[i]
	}

	var lines []string
	seen := map[string]struct{}{}
	for i, h := range hits {
		if i >= 5 {
			break
		}
		lines = append(lines, formatMemoryItem(h.item, ""))
		seen[h.item.Content] = struct{}{}
	}

	if len(hits) < 3 && r.memory != nil {
		for _, m := range r.memory.Search(ctx, sess.ProjectID, query, 8) {
			if _, dup := seen[m.Content]; dup || m.Content == "" {
				continue
			}
			seen[m.Content] = struct{}{}
			lines = append(lines, formatMemoryItem(m, "db"))
		}
	}

	if len(lines) == 0 {
		return "No relevant memories found.", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Registry) searchEvidenceStore(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	query := strArg(args, "query")
	chunks, err := r.store.SearchChunks(ctx, sess.ProjectID, query, 5)
	if errors.Is(err, evidence.ErrUnavailable) {
		return "Evidence store unavailable; rely on document search instead.", nil
	}
	if err != nil {
		return "", fmt.Errorf("search evidence store: %w", err)
	}
	if len(chunks) == 0 {
		return "No matching chunks found in the evidence store.", nil
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("[chunk %s] (score: %.3f)\n%s", c.ID, c.Score, truncate(c.Content, 400)))
	}
	return strings.Join(parts, "\n---\n"), nil
}

func (r *Registry) getPriorResearch(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	if sess.Research == nil {
		return "No research results available yet. Ensure the research phase has completed.", nil
	}
	data, err := json.MarshalIndent(sess.Research, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal research: %w", err)
	}
	return string(data), nil
}

func (r *Registry) searchResearchFindings(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	query := strArg(args, "query")
	kind := strArg(args, "kind")
	if kind == "" {
		kind = "all"
	}
	research := sess.Research
	if research == nil {
		return "No research results available. Research must complete before document generation.", nil
	}

	type finding struct {
		score float64
		text  string
	}
	var findings []finding

	if kind == "claims" || kind == "all" {
		for _, c := range research.ValidatedClaims {
			score := evidence.Overlap(query, c.Claim+" "+c.Evidence)
			if score > 0.08 {
				findings = append(findings, finding{score, fmt.Sprintf(
					"[CLAIM|%s] %s\n  Evidence: %s\n  Source: %s",
					c.Confidence, c.Claim, truncate(c.Evidence, 250), c.Source)})
			}
		}
	}
	if kind == "metrics" || kind == "all" {
		for _, m := range research.QuantifiedMetrics {
			score := evidence.Overlap(query, m.Metric+" "+m.Value+" "+m.Notes)
			if score > 0.05 {
				text := fmt.Sprintf("[METRIC] %s: %s", m.Metric, m.Value)
				if m.Notes != "" {
					text += " (" + m.Notes + ")"
				}
				findings = append(findings, finding{score, text + "\n  Source: " + m.Source})
			}
		}
	}
	if kind == "contradictions" || kind == "all" {
		for _, c := range research.Contradictions {
			score := evidence.Overlap(query, c.ClaimA+" "+c.ClaimB)
			if score > 0.08 {
				findings = append(findings, finding{score, fmt.Sprintf("[CONTRADICTION] %s vs %s", c.ClaimA, c.ClaimB)})
			}
		}
	}
	if kind == "gaps" || kind == "all" {
		for _, g := range research.Gaps {
			score := evidence.Overlap(query, g)
			if score > 0.08 {
				findings = append(findings, finding{score, "[GAP] " + g})
			}
		}
	}

	for i := 0; i < len(findings); i++ {
		best := i
		for j := i + 1; j < len(findings); j++ {
			if findings[j].score > findings[best].score {
				best = j
			}
		}
		findings[i], findings[best] = findings[best], findings[i]
	}
	if len(findings) == 0 {
		return "No matching research findings for: " + query, nil
	}
	if len(findings) > 8 {
		findings = findings[:8]
	}
	parts := make([]string, len(findings))
	for i, f := range findings {
		parts[i] = f.text
	}
	return strings.Join(parts, "\n---\n"), nil
}

func (r *Registry) getMemoryItems(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	query := strArg(args, "query")

	var items []*models.MemoryItem
	if r.memory != nil {
		q := query
		if q == "" {
			q = "product decisions constraints metrics personas"
		}
		items = r.memory.Search(ctx, sess.ProjectID, q, 12)
	}
	if len(items) == 0 {
		items = sess.RecalledMemories
	}
	if len(items) == 0 {
		return "No memory items available.", nil
	}
	var lines []string
	for i, m := range items {
		if i >= 10 {
			break
		}
		lines = append(lines, formatMemoryItem(m, ""))
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Registry) retrieveSupportingText(ctx context.Context, sess *models.Session, args map[string]any) (string, error) {
	claim := strArg(args, "claim")
	sourceFilter := strArg(args, "source")

	type match struct {
		score    float64
		filename string
		chunk    string
	}
	var matches []match
	for _, doc := range sess.Documents {
		if sourceFilter != "" && !strings.Contains(doc.Filename, sourceFilter) {
			continue
		}
		for _, chunk := range doc.Chunks {
			score := evidence.Overlap(claim, chunk)
			if score > 0.08 {
				matches = append(matches, match{score, doc.Filename, chunk})
			}
		}
	}
	for i := 0; i < len(matches); i++ {
		best := i
		for j := i + 1; j < len(matches); j++ {
			if matches[j].score > matches[best].score {
				best = j
			}
		}
		matches[i], matches[best] = matches[best], matches[i]
	}
	if len(matches) == 0 {
		return "No evidence found for: " + claim, nil
	}
	if len(matches) > 3 {
		matches = matches[:3]
	}
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("[%s] (relevance: %.3f)\n%s", m.filename, m.score, truncate(m.chunk, 500))
	}
	return strings.Join(parts, "\n---\n"), nil
}

func formatMemoryItem(m *models.MemoryItem, tag string) string {
	mtype := string(m.Type)
	if mtype == "" {
		mtype = "memory"
	}
	if tag != "" {
		mtype += "|" + tag
	}
	if m.Title != "" {
		return fmt.Sprintf("[%s] %s: %s", mtype, m.Title, truncate(m.Content, 300))
	}
	return fmt.Sprintf("[%s] %s", mtype, truncate(m.Content, 300))
}
