package react

import (
	"fmt"
	"strings"

	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

const researchSystem = `You are a senior research analyst for a product management team.
Your goal is to deeply research customer interview data and produce structured,
evidence-backed findings to answer the PM's question.

WORKFLOW:
1. Call list_documents to discover available documents.
2. Call search_document_index with specific queries to find relevant sections.
3. Call read_document_section for deeper detail on specific sections.
4. Call search_memory to surface past decisions and constraints.
5. Call search_evidence_store for any additional stored evidence.
6. When you have sufficient evidence, output your final answer.

FINAL ANSWER FORMAT (output ONLY this JSON object, no prose):
{
  "validated_claims": [
    {"claim": "...", "evidence": "...", "confidence": "high|medium|low", "source": "..."}
  ],
  "contradictions": [
    {"claim_a": "...", "claim_b": "...", "sources": ["..."]}
  ],
  "quantified_metrics": [
    {"metric": "...", "value": "...", "source": "...", "notes": "..."}
  ],
  "gaps": ["..."],
  "key_themes": ["..."],
  "summary": "2-3 paragraph executive summary"
}`

const documentSystem = `You are a senior product manager generating a Product Requirements Document.
Every claim in the document must cite its source from the collected evidence.

WORKFLOW:
1. Call get_prior_research to get the full structured research.
2. Call get_memory_items to get relevant project memory and constraints.
3. Call retrieve_supporting_text to get verbatim quotes for key claims.
4. When you have sufficient evidence, output your final document.

FINAL ANSWER FORMAT (output ONLY this JSON object, no prose):
{
  "title": "Document title",
  "problem_statement": "Evidence-backed problem description (cite sources)",
  "user_stories": ["As a [persona], I want [feature] so that [benefit]"],
  "proposed_solution": "Solution description",
  "kpis": [
    {"metric": "...", "target": "...", "measurement_method": "..."}
  ],
  "technical_requirements": ["..."],
  "constraints_and_risks": ["..."],
  "next_actions": [
    {"action": "...", "owner": "...", "timeline": "..."}
  ],
  "success_metrics": ["..."],
  "evidence_citations": ["Source: filename - supporting quote"]
}`

func systemPrompt(kind models.AgentKind) string {
	if kind == models.AgentDocument {
		return documentSystem
	}
	return researchSystem
}

// initialMessage builds the task-specific opening user turn. Content is
// fetched lazily via tools; only pointers and metadata go in up front.
func initialMessage(kind models.AgentKind, sess *models.Session) string {
	if kind == models.AgentDocument {
		var sb strings.Builder
		fmt.Fprintf(&sb, "PM Question: %s\n\n", sess.Question)
		sb.WriteString("Research is available (call get_prior_research for the full data).\n")
		if sess.Research != nil && sess.Research.Summary != "" {
			summary := sess.Research.Summary
			if len(summary) > 400 {
				summary = summary[:400]
			}
			fmt.Fprintf(&sb, "Research summary: %s\n", summary)
		}
		sb.WriteString("\nStart by calling get_prior_research to access the full research.")
		return sb.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "PM Question: %s\n\n", sess.Question)
	sb.WriteString("Available documents (use tools to fetch content):\n")
	if len(sess.Documents) == 0 {
		sb.WriteString("No documents loaded.\n")
	}
	for _, d := range sess.Documents {
		fmt.Fprintf(&sb, "- %s: %d words\n", d.Filename, d.WordCount)
	}
	sb.WriteString("\nStart by calling list_documents, then search the relevant documents.")
	return sb.String()
}
