package react

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YalmanchiliTejas/Product-manager/internal/cache"
	"github.com/YalmanchiliTejas/Product-manager/internal/evidence"
	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/tools"
)

// scriptedProvider replays a fixed sequence of turns and answers every
// Complete call with completeText.
type scriptedProvider struct {
	name         string
	turns        []*llm.Turn
	turnErrs     []error
	completeText string
	completeErr  error

	mu        sync.Mutex
	sendCount int
	sent      []llm.UserTurn
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Converse(system string, defs []llm.ToolDef) llm.Conversation {
	return &scriptedConversation{p: p}
}

func (p *scriptedProvider) Complete(ctx context.Context, system, prompt string) (string, int64, error) {
	if p.completeErr != nil {
		return "", 0, p.completeErr
	}
	return p.completeText, 50, nil
}

type scriptedConversation struct {
	p *scriptedProvider
}

func (c *scriptedConversation) Send(ctx context.Context, user llm.UserTurn, budget int64) (*llm.Turn, error) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	i := c.p.sendCount
	c.p.sendCount++
	c.p.sent = append(c.p.sent, user)

	if i < len(c.p.turnErrs) && c.p.turnErrs[i] != nil {
		return nil, c.p.turnErrs[i]
	}
	if i < len(c.p.turns) {
		return c.p.turns[i], nil
	}
	return &llm.Turn{Text: `{"summary": "default final"}`}, nil
}

func textTurn(text string) *llm.Turn {
	return &llm.Turn{Text: text, TokensUsed: 100}
}

func toolTurn(reqs ...llm.ToolRequest) *llm.Turn {
	return &llm.Turn{ToolRequests: reqs, TokensUsed: 100}
}

func newEngineSession() *models.Session {
	return models.NewSession("p1", "u1", []models.SourceDocument{
		{Filename: "interview1.txt", Content: "Users want faster exports.", WordCount: 4,
			Chunks: []string{"Users want faster exports."}},
	})
}

func newTestEngine(native, fallback llm.Provider) *Engine {
	registry := tools.NewRegistry(evidence.NewKeywordIndex(), nil, nil)
	return New(native, fallback, registry, cache.New(nil))
}

func TestRun_UnsupportedKind(t *testing.T) {
	e := newTestEngine(&scriptedProvider{}, nil)
	_, err := e.Run(context.Background(), newEngineSession(), models.AgentTicket)
	assert.Error(t, err)
}

func TestRun_NoProviders(t *testing.T) {
	e := newTestEngine(nil, nil)
	_, err := e.Run(context.Background(), newEngineSession(), models.AgentResearch)
	assert.Error(t, err)
}

func TestRun_TerminatesOnFinalAnswer(t *testing.T) {
	p := &scriptedProvider{turns: []*llm.Turn{
		toolTurn(llm.ToolRequest{ID: "t1", Name: "list_documents", Args: map[string]any{}}),
		textTurn(`{"validated_claims": [{"claim": "exports are slow", "evidence": "stated directly", "confidence": "high", "source": "interview1.txt"}], "summary": "exports are the pain point"}`),
	}}
	e := newTestEngine(p, nil)

	run, err := e.Run(context.Background(), newEngineSession(), models.AgentResearch)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Iterations)
	assert.False(t, run.Forced)
	assert.False(t, run.Fallback)
	require.NotNil(t, run.Research)
	assert.Equal(t, "exports are the pain point", run.Research.Summary)
	require.Len(t, run.ToolCalls, 1)
	assert.Equal(t, "list_documents", run.ToolCalls[0].Tool)
}

func TestRun_ForcedSynthesisAtIterationCap(t *testing.T) {
	// Every turn requests a tool; the loop must stop at MaxIterations and
	// synthesize from collected evidence.
	turns := make([]*llm.Turn, MaxIterations+5)
	for i := range turns {
		turns[i] = toolTurn(llm.ToolRequest{
			ID: fmt.Sprintf("t%d", i), Name: "list_documents", Args: map[string]any{},
		})
	}
	p := &scriptedProvider{turns: turns, completeText: `{"summary": "forced summary"}`}
	e := newTestEngine(p, nil)

	run, err := e.Run(context.Background(), newEngineSession(), models.AgentResearch)
	require.NoError(t, err)
	assert.True(t, run.Forced)
	assert.Equal(t, MaxIterations, run.Iterations)
	assert.Equal(t, MaxIterations, p.sendCount, "no provider calls beyond the cap")
	require.NotNil(t, run.Research)
	assert.Equal(t, "forced summary", run.Research.Summary)
}

func TestRun_ForcedSynthesisNeverFails(t *testing.T) {
	turns := make([]*llm.Turn, MaxIterations)
	for i := range turns {
		turns[i] = toolTurn(llm.ToolRequest{ID: fmt.Sprintf("t%d", i), Name: "list_documents", Args: map[string]any{}})
	}
	p := &scriptedProvider{turns: turns, completeErr: errors.New("provider down")}
	e := newTestEngine(p, nil)

	run, err := e.Run(context.Background(), newEngineSession(), models.AgentResearch)
	require.NoError(t, err)
	assert.True(t, run.Forced)
	require.NotNil(t, run.Research, "minimal-default payload even when synthesis call fails")
}

func TestRun_FirstTurnErrorFallsBack(t *testing.T) {
	native := &scriptedProvider{
		name:        "native",
		turnErrs:    []error{errors.New("overloaded")},
		completeErr: errors.New("overloaded"),
	}
	fallback := &scriptedProvider{
		name:         "fallback",
		completeText: `{"summary": "fallback research"}`,
	}
	e := newTestEngine(native, fallback)

	run, err := e.Run(context.Background(), newEngineSession(), models.AgentResearch)
	require.NoError(t, err)
	assert.True(t, run.Fallback)
	require.NotNil(t, run.Research)
	assert.Equal(t, "fallback research", run.Research.Summary)
	// The fallback pre-executes the obvious first tool.
	require.NotEmpty(t, run.ToolCalls)
	assert.Equal(t, "list_documents", run.ToolCalls[0].Tool)
}

func TestRun_MidLoopErrorForcesSynthesis(t *testing.T) {
	p := &scriptedProvider{
		turns: []*llm.Turn{
			toolTurn(llm.ToolRequest{ID: "t1", Name: "list_documents", Args: map[string]any{}}),
		},
		turnErrs:     []error{nil, errors.New("overloaded")},
		completeText: `{"summary": "synthesized mid-loop"}`,
	}
	e := newTestEngine(p, nil)

	run, err := e.Run(context.Background(), newEngineSession(), models.AgentResearch)
	require.NoError(t, err)
	assert.True(t, run.Forced)
	assert.Equal(t, "synthesized mid-loop", run.Research.Summary)
}

func TestRun_NoNativeUsesFallbackStrategy(t *testing.T) {
	fallback := &scriptedProvider{completeText: `{"title": "Doc", "problem_statement": "p"}`}
	e := newTestEngine(nil, fallback)

	run, err := e.Run(context.Background(), newEngineSession(), models.AgentDocument)
	require.NoError(t, err)
	assert.True(t, run.Fallback)
	require.NotNil(t, run.Document)
	assert.Equal(t, "Doc", run.Document.Title)
}

// recordingRegistryTool verifies parallel dispatch ordering via the cache-free
// engine path: results must come back in request order keyed by request id.
func TestExecuteTools_ResultsInRequestOrder(t *testing.T) {
	sess := newEngineSession()
	registry := tools.NewRegistry(evidence.NewKeywordIndex(), evidence.NewChunkStore(sess.Documents), nil)
	e := New(&scriptedProvider{}, nil, registry, cache.New(nil))

	reqs := []llm.ToolRequest{
		{ID: "a", Name: "search_document_index", Args: map[string]any{"id": "interview1.txt", "query": "exports"}},
		{ID: "b", Name: "list_documents", Args: map[string]any{}},
		{ID: "c", Name: "read_document_section", Args: map[string]any{"id": "interview1.txt", "section_id": "s1"}},
		{ID: "d", Name: "search_evidence_store", Args: map[string]any{"query": "exports"}},
		{ID: "e", Name: "list_documents", Args: map[string]any{}},
	}
	run := &models.LoopRun{}
	results := e.executeTools(context.Background(), sess, reqs, run)

	require.Len(t, results, len(reqs))
	for i, r := range results {
		assert.Equal(t, reqs[i].ID, r.ID, "result %d keyed to its request", i)
		assert.NotEmpty(t, r.Content)
	}
	assert.Len(t, run.ToolCalls, len(reqs))
}

func TestExecuteTools_CacheHitSkipsHandler(t *testing.T) {
	sess := newEngineSession()
	var calls atomic.Int64
	registry := tools.NewRegistry(evidence.NewKeywordIndex(), countingStore{&calls}, nil)
	c := cache.New(nil)
	e := New(&scriptedProvider{}, nil, registry, c)

	req := []llm.ToolRequest{{ID: "a", Name: "search_evidence_store", Args: map[string]any{"query": "exports"}}}
	run := &models.LoopRun{}

	e.executeTools(context.Background(), sess, req, run)
	e.executeTools(context.Background(), sess, req, run)

	assert.Equal(t, int64(1), calls.Load(), "second identical call must hit the cache")
	require.Len(t, run.ToolCalls, 2)
	assert.False(t, run.ToolCalls[0].Cached)
	assert.True(t, run.ToolCalls[1].Cached)
}

// countingStore counts evidence searches so cache hits are observable.
type countingStore struct {
	calls *atomic.Int64
}

func (s countingStore) SearchChunks(ctx context.Context, projectID, query string, limit int) ([]evidence.Chunk, error) {
	s.calls.Add(1)
	return []evidence.Chunk{{ID: "c1", Source: "interview1.txt", Content: "Users want faster exports.", Score: 0.9}}, nil
}

func TestRun_BudgetsByIteration(t *testing.T) {
	// Budgets are passed through Send; capture them.
	var budgets []int64
	p := &budgetProvider{budgets: &budgets, stop: 3}
	e := newTestEngine(p, nil)

	_, err := e.Run(context.Background(), newEngineSession(), models.AgentResearch)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(budgets), 2)
	assert.Equal(t, int64(firstTurnBudget), budgets[0])
	assert.Equal(t, int64(laterTurnBudget), budgets[1])
}

type budgetProvider struct {
	budgets *[]int64
	stop    int
	n       int
}

func (p *budgetProvider) Name() string { return "budget" }
func (p *budgetProvider) Complete(ctx context.Context, system, prompt string) (string, int64, error) {
	return `{"summary": "done"}`, 10, nil
}
func (p *budgetProvider) Converse(system string, defs []llm.ToolDef) llm.Conversation {
	return budgetConversation{p}
}

type budgetConversation struct{ p *budgetProvider }

func (c budgetConversation) Send(ctx context.Context, user llm.UserTurn, budget int64) (*llm.Turn, error) {
	*c.p.budgets = append(*c.p.budgets, budget)
	c.p.n++
	if c.p.n >= c.p.stop {
		return &llm.Turn{Text: `{"summary": "done"}`}, nil
	}
	return &llm.Turn{ToolRequests: []llm.ToolRequest{{ID: "t", Name: "list_documents", Args: map[string]any{}}}}, nil
}
