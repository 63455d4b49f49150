// Package tools maps tool names to handler functions over session data and
// the retrieval collaborators. The dispatcher never lets a handler error or
// panic escape: every call produces a bounded text result, so one bad
// lookup can't burn the loop's iteration budget.
package tools

import (
	"context"
	"fmt"

	"github.com/YalmanchiliTejas/Product-manager/internal/evidence"
	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// maxResultLen bounds every tool result fed back into the conversation.
const maxResultLen = 6000

// MemorySearcher is the memory collaborator the handlers query.
type MemorySearcher interface {
	Search(ctx context.Context, projectID, query string, limit int) []*models.MemoryItem
}

// Handler executes one named tool against a session.
type Handler func(ctx context.Context, sess *models.Session, args map[string]any) (string, error)

// Registry holds the tool catalogue and routes calls to handlers.
type Registry struct {
	index    evidence.Index
	store    evidence.Store
	memory   MemorySearcher
	handlers map[string]Handler
}

// NewRegistry wires the tool handlers to their collaborators. store and
// memory may be nil; the affected tools then report themselves unavailable.
func NewRegistry(index evidence.Index, store evidence.Store, memory MemorySearcher) *Registry {
	if index == nil {
		index = evidence.NewKeywordIndex()
	}
	if store == nil {
		store = evidence.Unavailable{}
	}
	r := &Registry{index: index, store: store, memory: memory}
	r.handlers = map[string]Handler{
		"list_documents":           r.listDocuments,
		"search_document_index":    r.searchDocumentIndex,
		"read_document_section":    r.readDocumentSection,
		"search_memory":            r.searchMemory,
		"search_evidence_store":    r.searchEvidenceStore,
		"get_prior_research":       r.getPriorResearch,
		"search_research_findings": r.searchResearchFindings,
		"get_memory_items":         r.getMemoryItems,
		"retrieve_supporting_text": r.retrieveSupportingText,
	}
	return r
}

// Dispatch routes a tool call by name. It always returns text: unknown
// tools, handler errors, and panics all come back as error descriptions.
func (r *Registry) Dispatch(ctx context.Context, sess *models.Session, name string, args map[string]any) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			result = fmt.Sprintf("tool error (%s): %v", name, rec)
		}
	}()

	h, ok := r.handlers[name]
	if !ok {
		return fmt.Sprintf("unknown tool: %s", name)
	}
	out, err := h(ctx, sess, args)
	if err != nil {
		return fmt.Sprintf("tool error (%s): %v", name, err)
	}
	return truncate(out, maxResultLen)
}

// Definitions returns the tool catalogue offered to the given agent kind.
func (r *Registry) Definitions(kind models.AgentKind) []llm.ToolDef {
	switch kind {
	case models.AgentResearch:
		return researchTools()
	case models.AgentDocument:
		return documentTools()
	}
	return nil
}

func researchTools() []llm.ToolDef {
	return []llm.ToolDef{
		{
			Name:        "list_documents",
			Description: "List all available source documents with word count and speaker metadata.",
			Properties:  map[string]llm.ToolProp{},
		},
		{
			Name:        "search_document_index",
			Description: "Search a specific document's section index. Returns the most relevant sections for the query.",
			Properties: map[string]llm.ToolProp{
				"id":    {Type: "string", Description: "Exact filename of the document (from list_documents)"},
				"query": {Type: "string", Description: "What to look for in this document"},
			},
			Required: []string{"id", "query"},
		},
		{
			Name:        "read_document_section",
			Description: "Read the raw content of one section. Use after search_document_index returns section ids you want in full.",
			Properties: map[string]llm.ToolProp{
				"id":         {Type: "string", Description: "Document filename"},
				"section_id": {Type: "string", Description: "The section id from a previous search_document_index result"},
			},
			Required: []string{"id", "section_id"},
		},
		{
			Name:        "search_memory",
			Description: "Search past decisions, constraints, metrics, and persona insights.",
			Properties: map[string]llm.ToolProp{
				"query": {Type: "string", Description: "What to look up"},
			},
			Required: []string{"query"},
		},
		{
			Name:        "search_evidence_store",
			Description: "Search the project-wide evidence store for additional supporting chunks.",
			Properties: map[string]llm.ToolProp{
				"query": {Type: "string"},
			},
			Required: []string{"query"},
		},
	}
}

func documentTools() []llm.ToolDef {
	return []llm.ToolDef{
		{
			Name:        "get_prior_research",
			Description: "Return the full structured research results from the research agent.",
			Properties:  map[string]llm.ToolProp{},
		},
		{
			Name:        "search_research_findings",
			Description: "Search validated claims, quantified metrics, contradictions, and gaps from the research findings. Prefer this over get_prior_research when looking for specific evidence.",
			Properties: map[string]llm.ToolProp{
				"query": {Type: "string", Description: "What to search for in the research findings"},
				"kind":  {Type: "string", Description: "Narrow to a finding type; default all", Enum: []string{"claims", "metrics", "contradictions", "gaps", "all"}},
			},
			Required: []string{"query"},
		},
		{
			Name:        "get_memory_items",
			Description: "Return project memory items: past decisions, constraints, metrics, and personas. Queries the live store so it reflects all past sessions.",
			Properties: map[string]llm.ToolProp{
				"query": {Type: "string", Description: "Optional filter query; omit to get all items"},
			},
		},
		{
			Name:        "retrieve_supporting_text",
			Description: "Find verbatim supporting evidence from the source documents for a specific claim.",
			Properties: map[string]llm.ToolProp{
				"claim":  {Type: "string", Description: "The claim to find evidence for"},
				"source": {Type: "string", Description: "Optional: restrict search to this document filename"},
			},
			Required: []string{"claim"},
		},
	}
}

func strArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
