package tickets

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YalmanchiliTejas/Product-manager/internal/cache"
	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// stubProvider answers every Complete call with a fixed text and counts calls.
type stubProvider struct {
	text  string
	err   error
	calls atomic.Int64
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Converse(system string, defs []llm.ToolDef) llm.Conversation {
	return nil
}

func (p *stubProvider) Complete(ctx context.Context, system, prompt string) (string, int64, error) {
	p.calls.Add(1)
	if p.err != nil {
		return "", 0, p.err
	}
	return p.text, 100, nil
}

func testDoc() *models.RequirementsDoc {
	return &models.RequirementsDoc{
		Title:            "Faster Exports",
		ProblemStatement: "Exports take minutes and users copy numbers by hand.",
	}
}

const nestedResponse = `[
  {
    "type": "epic",
    "title": "Export performance",
    "description": "Make exports fast",
    "priority": "high",
    "labels": ["backend"],
    "children": [
      {
        "type": "story",
        "title": "As an analyst, I want exports under 10 seconds",
        "priority": "high",
        "estimated_points": 5,
        "children": [
          {"type": "task", "title": "Stream CSV rows", "estimated_points": 2},
          {"type": "task", "title": "Add export progress endpoint", "estimated_points": 3}
        ]
      }
    ]
  }
]`

func TestGenerate_FlattensHierarchy(t *testing.T) {
	g := NewGenerator(&stubProvider{text: nestedResponse}, nil)

	tix, err := g.Generate(context.Background(), testDoc())
	require.NoError(t, err)
	require.Len(t, tix, 4)

	epic, story, task1, task2 := tix[0], tix[1], tix[2], tix[3]
	assert.Equal(t, models.TicketTypeEpic, epic.Type)
	assert.Empty(t, epic.ParentID)
	assert.Equal(t, models.TicketTypeStory, story.Type)
	assert.Equal(t, epic.ID, story.ParentID)
	assert.Equal(t, story.ID, task1.ParentID)
	assert.Equal(t, story.ID, task2.ParentID)
	assert.NotEqual(t, task1.ID, task2.ID)
	assert.Equal(t, 10, TotalPoints(tix))
}

func TestGenerate_DefaultsTypeAndPriority(t *testing.T) {
	g := NewGenerator(&stubProvider{text: `[{"title": "untyped work"}]`}, nil)

	tix, err := g.Generate(context.Background(), testDoc())
	require.NoError(t, err)
	require.Len(t, tix, 1)
	assert.Equal(t, models.TicketTypeTask, tix[0].Type)
	assert.Equal(t, models.TicketPriorityMedium, tix[0].Priority)
}

func TestGenerate_ToleratesSingleObject(t *testing.T) {
	g := NewGenerator(&stubProvider{text: `{"type": "epic", "title": "Only one"}`}, nil)

	tix, err := g.Generate(context.Background(), testDoc())
	require.NoError(t, err)
	require.Len(t, tix, 1)
	assert.Equal(t, "Only one", tix[0].Title)
}

func TestGenerate_ExtractsFromProse(t *testing.T) {
	g := NewGenerator(&stubProvider{
		text: "Here are the tickets:\n\n```json\n[{\"type\": \"task\", \"title\": \"T\"}]\n```\n",
	}, nil)

	tix, err := g.Generate(context.Background(), testDoc())
	require.NoError(t, err)
	require.Len(t, tix, 1)
}

func TestGenerate_ProviderError(t *testing.T) {
	g := NewGenerator(&stubProvider{err: errors.New("overloaded")}, nil)
	_, err := g.Generate(context.Background(), testDoc())
	assert.Error(t, err)
}

func TestGenerate_NoJSON(t *testing.T) {
	g := NewGenerator(&stubProvider{text: "I could not structure this."}, nil)
	_, err := g.Generate(context.Background(), testDoc())
	assert.Error(t, err)
}

func TestGenerate_NilDoc(t *testing.T) {
	g := NewGenerator(&stubProvider{text: nestedResponse}, nil)
	tix, err := g.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, tix)
}

func TestGenerate_CacheHitSkipsProvider(t *testing.T) {
	p := &stubProvider{text: nestedResponse}
	g := NewGenerator(p, cache.New(nil))
	doc := testDoc()

	first, err := g.Generate(context.Background(), doc)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.calls.Load(), "identical document must not trigger a second call")
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Title, second[i].Title)
	}
}

func TestGenerate_DifferentDocMissesCache(t *testing.T) {
	p := &stubProvider{text: nestedResponse}
	g := NewGenerator(p, cache.New(nil))

	_, err := g.Generate(context.Background(), testDoc())
	require.NoError(t, err)
	other := testDoc()
	other.Title = "Different Document"
	_, err = g.Generate(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, int64(2), p.calls.Load())
}
