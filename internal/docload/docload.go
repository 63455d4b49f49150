// Package docload parses raw interview and source files into session
// documents: word counts, a speaker heuristic for transcripts, and paragraph
// chunks for evidence retrieval.
package docload

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// loadable file extensions. Everything else in a directory is skipped.
var extensions = map[string]bool{
	".txt": true,
	".md":  true,
	".vtt": true,
	".srt": true,
}

// speakerPattern matches transcript speaker labels like "Alice:" or
// "INTERVIEWER:" at the start of a line.
var speakerPattern = regexp.MustCompile(`(?m)^([A-Z][\w .'-]{0,40}):`)

// FromContent builds a document from in-memory content.
func FromContent(filename, content string) models.SourceDocument {
	return models.SourceDocument{
		Filename:     filename,
		Content:      content,
		WordCount:    len(strings.Fields(content)),
		SpeakerCount: countSpeakers(content),
		Chunks:       Chunk(content),
	}
}

// LoadFile reads and parses one file.
func LoadFile(path string) (models.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.SourceDocument{}, fmt.Errorf("read document: %w", err)
	}
	return FromContent(filepath.Base(path), string(data)), nil
}

// LoadDir loads every supported file in dir, non-recursive, sorted by name.
func LoadDir(dir string) ([]models.SourceDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document directory: %w", err)
	}

	var docs []models.SourceDocument
	for _, entry := range entries {
		if entry.IsDir() || !extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		doc, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no loadable documents in %s", dir)
	}
	return docs, nil
}

// Chunk splits content into paragraph chunks, merging short paragraphs so
// each chunk carries enough context to be searchable on its own.
func Chunk(content string) []string {
	paragraphs := strings.Split(content, "\n\n")
	var chunks []string
	var current strings.Builder

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
		if current.Len() >= 400 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// countSpeakers counts distinct speaker labels in a transcript.
func countSpeakers(content string) int {
	matches := speakerPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool)
	for _, m := range matches {
		seen[strings.TrimSpace(m[1])] = true
	}
	return len(seen)
}
