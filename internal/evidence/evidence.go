// Package evidence defines the retrieval boundary the tool handlers call:
// a per-document section index and a project-wide chunk store. The default
// implementations score by keyword overlap; an embedding or hierarchical
// retrieval service can replace them behind the same interfaces.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// ErrUnavailable is the sentinel returned when an optional retrieval
// collaborator is not configured or cannot be reached. Callers degrade
// gracefully instead of failing the loop.
var ErrUnavailable = errors.New("evidence store unavailable")

// Section is one retrievable slice of a document.
type Section struct {
	ID      string
	Title   string
	Content string
	Score   float64
}

// Chunk is one scored evidence chunk from the project-wide store.
type Chunk struct {
	ID      string
	Source  string
	Content string
	Score   float64
}

// Index answers "search this document" tool calls.
type Index interface {
	// Search returns the sections of doc most relevant to query, best first.
	Search(ctx context.Context, doc *models.SourceDocument, query string) ([]Section, error)
	// Read returns the raw content of one section by id.
	Read(ctx context.Context, doc *models.SourceDocument, sectionID string) (string, error)
}

// Store answers project-wide evidence search tool calls.
type Store interface {
	SearchChunks(ctx context.Context, projectID, query string, limit int) ([]Chunk, error)
}

// Overlap scores text against query as the fraction of query words that
// appear in text. Cheap, deterministic, and good enough as the default
// relevance signal.
func Overlap(query, text string) float64 {
	queryWords := fields(query)
	if len(queryWords) == 0 {
		return 0
	}
	textWords := make(map[string]struct{})
	for _, w := range fields(text) {
		textWords[w] = struct{}{}
	}
	matched := 0
	for _, w := range queryWords {
		if _, ok := textWords[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}

func fields(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// KeywordIndex is the default Index: documents are sectioned by paragraph
// chunks and scored by keyword overlap.
type KeywordIndex struct {
	// MaxSections bounds how many sections Search returns (default 3).
	MaxSections int
}

// NewKeywordIndex creates the default keyword index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{MaxSections: 3}
}

func (ix *KeywordIndex) sections(doc *models.SourceDocument) []Section {
	chunks := doc.Chunks
	if len(chunks) == 0 && strings.TrimSpace(doc.Content) != "" {
		chunks = []string{doc.Content}
	}
	out := make([]Section, 0, len(chunks))
	for i, c := range chunks {
		title := strings.TrimSpace(c)
		if nl := strings.IndexByte(title, '\n'); nl > 0 {
			title = title[:nl]
		}
		if len(title) > 80 {
			title = title[:80]
		}
		out = append(out, Section{
			ID:      fmt.Sprintf("s%d", i+1),
			Title:   title,
			Content: c,
		})
	}
	return out
}

func (ix *KeywordIndex) Search(ctx context.Context, doc *models.SourceDocument, query string) ([]Section, error) {
	secs := ix.sections(doc)
	for i := range secs {
		secs[i].Score = Overlap(query, secs[i].Content)
	}
	// Selection sort on score; section lists are small.
	for i := 0; i < len(secs); i++ {
		best := i
		for j := i + 1; j < len(secs); j++ {
			if secs[j].Score > secs[best].Score {
				best = j
			}
		}
		secs[i], secs[best] = secs[best], secs[i]
	}
	var out []Section
	for _, s := range secs {
		if s.Score <= 0 {
			continue
		}
		out = append(out, s)
		max := ix.MaxSections
		if max <= 0 {
			max = 3
		}
		if len(out) >= max {
			break
		}
	}
	return out, nil
}

func (ix *KeywordIndex) Read(ctx context.Context, doc *models.SourceDocument, sectionID string) (string, error) {
	for _, s := range ix.sections(doc) {
		if s.ID == sectionID {
			return s.Content, nil
		}
	}
	return "", fmt.Errorf("section %q not found in %s", sectionID, doc.Filename)
}

// ChunkStore is an in-process Store over the chunks of a set of documents.
type ChunkStore struct {
	chunks []Chunk
}

// NewChunkStore indexes the given documents' chunks.
func NewChunkStore(docs []models.SourceDocument) *ChunkStore {
	cs := &ChunkStore{}
	for _, d := range docs {
		for i, c := range d.Chunks {
			cs.chunks = append(cs.chunks, Chunk{
				ID:      fmt.Sprintf("%s#%d", d.Filename, i+1),
				Source:  d.Filename,
				Content: c,
			})
		}
	}
	return cs
}

func (cs *ChunkStore) SearchChunks(ctx context.Context, projectID, query string, limit int) ([]Chunk, error) {
	scored := make([]Chunk, 0, len(cs.chunks))
	for _, c := range cs.chunks {
		c.Score = Overlap(query, c.Content)
		if c.Score > 0.08 {
			scored = append(scored, c)
		}
	}
	for i := 0; i < len(scored); i++ {
		best := i
		for j := i + 1; j < len(scored); j++ {
			if scored[j].Score > scored[best].Score {
				best = j
			}
		}
		scored[i], scored[best] = scored[best], scored[i]
	}
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Unavailable is a Store placeholder for deployments without a project-wide
// evidence database. Every call returns ErrUnavailable.
type Unavailable struct{}

func (Unavailable) SearchChunks(ctx context.Context, projectID, query string, limit int) ([]Chunk, error) {
	return nil, ErrUnavailable
}
