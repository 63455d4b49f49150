package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

type stubProvider struct {
	text string
	err  error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Converse(system string, defs []llm.ToolDef) llm.Conversation {
	return nil
}

func (p *stubProvider) Complete(ctx context.Context, system, prompt string) (string, int64, error) {
	if p.err != nil {
		return "", 0, p.err
	}
	return p.text, 50, nil
}

type fakeStore struct {
	saved   []*models.MemoryItem
	listed  []*models.MemoryItem
	saveErr error
	listErr error
}

func (s *fakeStore) SaveMemoryItems(ctx context.Context, items []*models.MemoryItem) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, items...)
	return nil
}

func (s *fakeStore) ListMemoryItems(ctx context.Context, projectID string, limit int) ([]*models.MemoryItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listed, nil
}

const extractionResponse = `[
  {"type": "decision", "title": "Annual billing", "content": "Enterprise buyers get annual billing this quarter", "confidence": "high", "source": "research"},
  {"type": "metric", "title": "Export time", "content": "Exports currently take 4 minutes", "confidence": "medium", "source": "research"},
  {"type": "constraint", "title": "", "content": ""}
]`

func TestExtractFromPhase(t *testing.T) {
	h := NewHooks(nil, &stubProvider{text: extractionResponse})

	items := h.ExtractFromPhase(context.Background(), "p1", "researching", "findings text")
	require.Len(t, items, 2, "empty-content items are dropped")
	assert.Equal(t, models.MemoryDecision, items[0].Type)
	assert.Equal(t, "p1", items[0].ProjectID)
	assert.NotEmpty(t, items[0].ID)
	assert.False(t, items[0].CreatedAt.IsZero())
}

func TestExtractFromPhase_NoProvider(t *testing.T) {
	h := NewHooks(nil, nil)
	assert.Nil(t, h.ExtractFromPhase(context.Background(), "p1", "researching", "output"))
}

func TestExtractFromPhase_EmptyOutput(t *testing.T) {
	h := NewHooks(nil, &stubProvider{text: extractionResponse})
	assert.Nil(t, h.ExtractFromPhase(context.Background(), "p1", "researching", ""))
}

func TestExtractFromPhase_ProviderErrorSwallowed(t *testing.T) {
	h := NewHooks(nil, &stubProvider{err: errors.New("overloaded")})
	assert.Nil(t, h.ExtractFromPhase(context.Background(), "p1", "researching", "output"))
}

func TestExtractFromPhase_UnparseableSwallowed(t *testing.T) {
	h := NewHooks(nil, &stubProvider{text: "no structure here"})
	assert.Nil(t, h.ExtractFromPhase(context.Background(), "p1", "researching", "output"))
}

func TestRecall_RanksByOverlap(t *testing.T) {
	store := &fakeStore{listed: []*models.MemoryItem{
		{Title: "Mobile crashes", Content: "mobile app crashes on large uploads"},
		{Title: "Annual billing", Content: "enterprise buyers want annual billing"},
		{Title: "Churn", Content: "monthly churn is 7%"},
	}}
	h := NewHooks(store, nil)

	items := h.Recall(context.Background(), "p1", "annual billing for enterprise", 2)
	require.Len(t, items, 2)
	assert.Equal(t, "Annual billing", items[0].Title)
}

func TestRecall_IncludesSessionLog(t *testing.T) {
	h := NewHooks(nil, &stubProvider{text: extractionResponse})
	h.ExtractFromPhase(context.Background(), "p1", "researching", "output")

	items := h.Recall(context.Background(), "p1", "", 10)
	assert.Len(t, items, 2)
}

func TestRecall_StoreErrorYieldsEmpty(t *testing.T) {
	h := NewHooks(&fakeStore{listErr: errors.New("db locked")}, nil)
	assert.Empty(t, h.Recall(context.Background(), "p1", "anything", 5))
}

func TestFlush(t *testing.T) {
	store := &fakeStore{}
	h := NewHooks(store, &stubProvider{text: extractionResponse})
	h.ExtractFromPhase(context.Background(), "p1", "researching", "output")

	require.NoError(t, h.Flush(context.Background()))
	assert.Len(t, store.saved, 2)

	// The log is cleared; a second flush saves nothing more.
	require.NoError(t, h.Flush(context.Background()))
	assert.Len(t, store.saved, 2)
}

func TestFlush_StoreErrorRetainsLog(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("db locked")}
	h := NewHooks(store, &stubProvider{text: extractionResponse})
	h.ExtractFromPhase(context.Background(), "p1", "researching", "output")

	assert.Error(t, h.Flush(context.Background()))

	store.saveErr = nil
	require.NoError(t, h.Flush(context.Background()))
	assert.Len(t, store.saved, 2)
}

func TestFlush_NoStore(t *testing.T) {
	h := NewHooks(nil, &stubProvider{text: extractionResponse})
	h.ExtractFromPhase(context.Background(), "p1", "researching", "output")
	assert.NoError(t, h.Flush(context.Background()))
}
