package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// QuestionType classifies the work a question needs.
type QuestionType string

const (
	QuestionResearch     QuestionType = "research"
	QuestionDocument     QuestionType = "document"
	QuestionTickets      QuestionType = "tickets"
	QuestionAnalysis     QuestionType = "analysis"
	QuestionFullPipeline QuestionType = "full_pipeline"
)

const analysisSystem = `You are a product management AI analysing a PM's question about their product.

Given the question and available source data, determine:
1. What type of work is needed (research, document generation, ticket creation, general analysis)
2. What specific tasks should be created to answer this question

Return a JSON object:
{
  "question_type": "research|document|tickets|analysis|full_pipeline",
  "reasoning": "Why this classification",
  "suggested_tasks": [
    {
      "title": "Task title",
      "description": "What this task involves",
      "agent": "research|context|document|ticket",
      "priority": 1
    }
  ]
}

Guidelines:
- If the question asks about user needs, pain points, or market data -> research
- If the question asks to create or write a requirements document -> document (which implies research first)
- If the question asks to break down work or create tickets -> tickets (which implies a document first)
- If the question is broad ("analyse these interviews") -> full_pipeline
- For full_pipeline, suggest tasks for research, document, and tickets`

// analysis is the classifier's structured output.
type analysis struct {
	QuestionType   QuestionType `json:"question_type"`
	Reasoning      string       `json:"reasoning"`
	SuggestedTasks []struct {
		Title       string           `json:"title"`
		Description string           `json:"description"`
		Agent       models.AgentKind `json:"agent"`
		Priority    int              `json:"priority"`
	} `json:"suggested_tasks"`
}

// classify runs one reasoning call to type the question. A malformed or
// failed response degrades to full_pipeline; the flow never aborts here.
func (o *Orchestrator) classify(ctx context.Context, sess *models.Session) analysis {
	fallback := analysis{
		QuestionType: QuestionFullPipeline,
		Reasoning:    "Could not parse analysis; running full pipeline.",
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "PM Question: %s\n\nAvailable documents:\n", sess.Question)
	if len(sess.Documents) == 0 {
		sb.WriteString("No documents loaded.")
	}
	for _, d := range sess.Documents {
		fmt.Fprintf(&sb, "- %s: %d words\n", d.Filename, d.WordCount)
	}

	text, _, err := o.provider.Complete(ctx, analysisSystem, sb.String())
	if err != nil {
		return fallback
	}
	raw := llm.ExtractJSON(text)
	if raw == nil {
		return fallback
	}
	var a analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return fallback
	}
	if !validQuestionType(a.QuestionType) {
		a.QuestionType = QuestionFullPipeline
	}
	return a
}

func validQuestionType(q QuestionType) bool {
	switch q {
	case QuestionResearch, QuestionDocument, QuestionTickets, QuestionAnalysis, QuestionFullPipeline:
		return true
	}
	return false
}

func validAgentKind(k models.AgentKind) bool {
	switch k {
	case models.AgentOrchestrator, models.AgentResearch, models.AgentContext,
		models.AgentDocument, models.AgentTicket:
		return true
	}
	return false
}

// planTasks builds the task list from the analysis. When the classifier
// suggested nothing usable, a fixed default plan per question type is
// substituted; the task list is never left empty.
func planTasks(a analysis) []*models.Task {
	var tasks []*models.Task

	for _, s := range a.SuggestedTasks {
		title := s.Title
		if title == "" {
			title = "Unnamed task"
		}
		agent := s.Agent
		if !validAgentKind(agent) {
			agent = models.AgentOrchestrator
		}
		tasks = append(tasks, models.NewTask(title, s.Description, agent, s.Priority))
	}
	if len(tasks) > 0 {
		return tasks
	}

	switch a.QuestionType {
	case QuestionResearch, QuestionFullPipeline, QuestionAnalysis:
		tasks = append(tasks,
			models.NewTask("Deep research on source data",
				"Extract claims, validate with evidence, quantify metrics",
				models.AgentResearch, 1),
			models.NewTask("Assemble relevant context",
				"Fetch context from documents, memory, and project data",
				models.AgentContext, 1),
		)
	}
	switch a.QuestionType {
	case QuestionDocument, QuestionFullPipeline:
		tasks = append(tasks,
			models.NewTask("Generate evidence-backed requirements document",
				"Create the document with KPIs, user stories, and next actions",
				models.AgentDocument, 2),
		)
	}
	switch a.QuestionType {
	case QuestionTickets, QuestionFullPipeline:
		tasks = append(tasks,
			models.NewTask("Create implementation tickets",
				"Break the document into epics, stories, and tasks",
				models.AgentTicket, 3),
		)
	}
	return tasks
}
