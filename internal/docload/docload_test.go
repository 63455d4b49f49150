package docload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcript = `INTERVIEWER: How do you use the product today?

ALICE: Mostly for weekly reporting. The export is slow though.

INTERVIEWER: How slow?

ALICE: Minutes. We gave up and copy numbers by hand.`

func TestFromContent(t *testing.T) {
	doc := FromContent("interview.txt", transcript)

	assert.Equal(t, "interview.txt", doc.Filename)
	assert.Equal(t, 2, doc.SpeakerCount)
	assert.Greater(t, doc.WordCount, 20)
	assert.NotEmpty(t, doc.Chunks)
}

func TestChunk_MergesShortParagraphs(t *testing.T) {
	chunks := Chunk("short one\n\nshort two\n\nshort three")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "short one")
	assert.Contains(t, chunks[0], "short three")
}

func TestChunk_SplitsLongContent(t *testing.T) {
	long := ""
	for i := 0; i < 6; i++ {
		long += "This paragraph repeats filler words to pass the merge threshold for chunking, padding out well beyond the minimum size so each paragraph stands alone as searchable context.\n\n"
	}
	chunks := Chunk(long)
	assert.Greater(t, len(chunks), 1)
}

func TestChunk_Empty(t *testing.T) {
	assert.Empty(t, Chunk("   \n\n  "))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(transcript), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# Notes\n\nmarket research notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.pdf"), []byte("binary"), 0o644))

	docs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Filename)
	assert.Equal(t, "b.md", docs[1].Filename)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
