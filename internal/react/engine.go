// Package react drives one sub-agent through repeated reason→act→observe
// cycles: the reasoning provider decides between requesting tool execution
// and emitting a final structured answer, the engine executes requested
// tools (in parallel, cache-first) and feeds the observations back, until a
// final answer arrives or the iteration budget runs out.
package react

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/YalmanchiliTejas/Product-manager/internal/cache"
	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/tools"
)

const (
	// MaxIterations caps provider calls per run. The loop terminates
	// exactly once: a tool-free provider turn, or forced synthesis at the cap.
	MaxIterations = 10

	// Reasoning budgets: explore broadly on the first turn, refine after.
	firstTurnBudget = 8000
	laterTurnBudget = 2000

	// maxToolConcurrency bounds the worker pool for same-turn tool calls.
	maxToolConcurrency = 4

	// synthesisResults is how many trailing tool results feed forced synthesis.
	synthesisResults = 12
)

// Engine runs the ReAct loop for one agent kind at a time.
type Engine struct {
	native      llm.Provider // extended-reasoning strategy; may be nil
	fallback    llm.Provider // simple strategy; may be nil
	registry    *tools.Registry
	cache       *cache.Service
	concurrency int
}

// New creates an engine. Either provider may be nil, but not both.
func New(native, fallback llm.Provider, registry *tools.Registry, c *cache.Service) *Engine {
	return &Engine{
		native:      native,
		fallback:    fallback,
		registry:    registry,
		cache:       c,
		concurrency: maxToolConcurrency,
	}
}

// Run executes the loop for the session's current question. The returned
// LoopRun always carries a payload for the agent kind; provider and parse
// failures degrade to fallback payloads rather than errors. The only error
// is caller misuse (unsupported agent kind or no provider at all).
func (e *Engine) Run(ctx context.Context, sess *models.Session, kind models.AgentKind) (*models.LoopRun, error) {
	if kind != models.AgentResearch && kind != models.AgentDocument {
		return nil, fmt.Errorf("unsupported agent kind: %s", kind)
	}
	if e.native == nil && e.fallback == nil {
		return nil, fmt.Errorf("no reasoning provider configured")
	}
	if e.native == nil {
		return e.runFallback(ctx, sess, kind, nil, 0), nil
	}

	run := &models.LoopRun{AgentKind: kind}
	conv := e.native.Converse(systemPrompt(kind), e.registry.Definitions(kind))
	user := llm.UserTurn{Text: initialMessage(kind, sess)}

	var collected []string // tool result texts, for forced synthesis

	for i := 0; i < MaxIterations; i++ {
		budget := int64(laterTurnBudget)
		if i == 0 {
			budget = firstTurnBudget
		}

		turn, err := conv.Send(ctx, user, budget)
		if err != nil {
			if i == 0 {
				// Failed before any tool round-trip: switch strategies.
				return e.runFallback(ctx, sess, kind, run.ToolCalls, run.TokensUsed), nil
			}
			return e.forcedSynthesis(ctx, sess, kind, collected, run), nil
		}
		run.Iterations++
		run.TokensUsed += turn.TokensUsed

		if len(turn.ToolRequests) == 0 {
			// Normal exit: the provider produced a final answer.
			setPayload(run, kind, turn.Text)
			return run, nil
		}

		results := e.executeTools(ctx, sess, turn.ToolRequests, run)
		for _, r := range results {
			collected = append(collected, r.Content)
		}
		user = llm.UserTurn{ToolResults: results}
	}

	return e.forcedSynthesis(ctx, sess, kind, collected, run), nil
}

// executeTools runs the turn's tool requests on a bounded worker pool,
// cache-first. Results come back in request order regardless of completion
// order, keyed to their originating call ids.
func (e *Engine) executeTools(ctx context.Context, sess *models.Session, reqs []llm.ToolRequest, run *models.LoopRun) []llm.ToolResult {
	results := make([]llm.ToolResult, len(reqs))
	records := make([]models.ToolCallRecord, len(reqs))

	concurrency := e.concurrency
	if concurrency <= 0 {
		concurrency = maxToolConcurrency
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req llm.ToolRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var result string
			cached := false
			if e.cache != nil {
				result, cached = e.cache.GetToolResult(req.Name, req.Args, sess.ID)
			}
			if !cached {
				result = e.registry.Dispatch(ctx, sess, req.Name, req.Args)
				if e.cache != nil {
					e.cache.PutToolResult(req.Name, req.Args, sess.ID, result)
				}
			}

			results[i] = llm.ToolResult{ID: req.ID, Content: result}
			records[i] = models.ToolCallRecord{
				Tool:          req.Name,
				Args:          req.Args,
				ResultPreview: clip(result, 200),
				Cached:        cached,
			}
		}(i, req)
	}
	wg.Wait()

	run.ToolCalls = append(run.ToolCalls, records...)
	return results
}

// forcedSynthesis produces the final payload from collected evidence once
// the iteration budget is exhausted or a mid-loop provider failure occurs.
// Never fails: an unusable synthesis call yields the minimal-default payload.
func (e *Engine) forcedSynthesis(ctx context.Context, sess *models.Session, kind models.AgentKind, collected []string, run *models.LoopRun) *models.LoopRun {
	run.Forced = true

	if len(collected) > synthesisResults {
		collected = collected[len(collected)-synthesisResults:]
	}
	prompt := fmt.Sprintf(
		"Based on the following evidence collected so far, produce your final answer.\n\nPM Question: %s\n\nEvidence:\n%s",
		sess.Question, strings.Join(collected, "\n---\n"))

	text, tokens, err := e.complete(ctx, systemPrompt(kind), prompt)
	run.TokensUsed += tokens
	if err != nil {
		text = ""
	}
	setPayload(run, kind, text)
	return run
}

// runFallback is the single-shot strategy for providers without native
// tool-loop support: pre-execute the agent kind's obvious first tools,
// embed their output, and ask once for the final payload.
func (e *Engine) runFallback(ctx context.Context, sess *models.Session, kind models.AgentKind, priorCalls []models.ToolCallRecord, priorTokens int64) *models.LoopRun {
	run := &models.LoopRun{
		AgentKind:  kind,
		Fallback:   true,
		ToolCalls:  priorCalls,
		TokensUsed: priorTokens,
	}

	var sb strings.Builder
	sb.WriteString(initialMessage(kind, sess))
	sb.WriteString("\n\n")

	if kind == models.AgentResearch {
		listing := e.dispatchLogged(ctx, sess, run, "list_documents", map[string]any{})
		fmt.Fprintf(&sb, "Document list:\n%s\n\n", listing)
		sb.WriteString("Document excerpts:\n")
		for i, d := range sess.Documents {
			if i >= 4 {
				break
			}
			fmt.Fprintf(&sb, "--- %s ---\n%s\n", d.Filename, clip(d.Content, 3000))
		}
	} else {
		research := e.dispatchLogged(ctx, sess, run, "get_prior_research", map[string]any{})
		memoryItems := e.dispatchLogged(ctx, sess, run, "get_memory_items", map[string]any{})
		fmt.Fprintf(&sb, "Research results:\n%s\n\nMemory items:\n%s\n", research, memoryItems)
	}
	sb.WriteString("\nTools are not available in this mode. Produce the final JSON answer directly from the material above.")

	text, tokens, err := e.complete(ctx, systemPrompt(kind), sb.String())
	run.TokensUsed += tokens
	if err != nil {
		text = ""
	}
	setPayload(run, kind, text)
	return run
}

func (e *Engine) dispatchLogged(ctx context.Context, sess *models.Session, run *models.LoopRun, name string, args map[string]any) string {
	result := e.registry.Dispatch(ctx, sess, name, args)
	run.ToolCalls = append(run.ToolCalls, models.ToolCallRecord{
		Tool:          name,
		Args:          args,
		ResultPreview: clip(result, 200),
	})
	return result
}

// complete issues one tool-less call, preferring the fallback strategy when
// the native one is absent, and trying the other strategy on failure.
func (e *Engine) complete(ctx context.Context, system, prompt string) (string, int64, error) {
	providers := []llm.Provider{e.native, e.fallback}
	var lastErr error
	for _, p := range providers {
		if p == nil {
			continue
		}
		text, tokens, err := p.Complete(ctx, system, prompt)
		if err == nil {
			return text, tokens, nil
		}
		lastErr = err
	}
	return "", 0, lastErr
}

func setPayload(run *models.LoopRun, kind models.AgentKind, text string) {
	if kind == models.AgentDocument {
		run.Document = parseDocument(text)
		return
	}
	run.Research = parseResearch(text)
}
