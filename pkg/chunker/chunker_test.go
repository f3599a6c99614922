package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintdesk/backend/pkg/chunker"
)

func TestChunk_WindowCoversWholeText(t *testing.T) {
	// No whitespace so boundary trimming cannot drop characters.
	text := strings.Repeat("abcdefghij", 20) // 200 runes
	opts := chunker.ChunkOptions{Size: 50, Overlap: 10}

	chunks := chunker.Chunk(text, opts)
	require.NotEmpty(t, chunks)

	// Reassemble by dropping each subsequent chunk's leading overlap.
	var sb strings.Builder
	sb.WriteString(chunks[0].Content)
	for _, c := range chunks[1:] {
		runes := []rune(c.Content)
		if len(runes) > opts.Overlap {
			sb.WriteString(string(runes[opts.Overlap:]))
		}
	}

	assert.Equal(t, text, sb.String())
}

func TestChunk_WindowIndexesSequential(t *testing.T) {
	text := strings.Repeat("x", 2500)

	chunks := chunker.Chunk(text, chunker.DefaultOptions())

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	chunks := chunker.Chunk("The pump requires oil change every 500 hours.", chunker.DefaultOptions())

	require.Len(t, chunks, 1)
	assert.Equal(t, "The pump requires oil change every 500 hours.", chunks[0].Content)
}

func TestChunk_OverlapAtLeastSizeStillTerminates(t *testing.T) {
	text := strings.Repeat("abc", 40)

	chunks := chunker.Chunk(text, chunker.ChunkOptions{Size: 10, Overlap: 10})

	// step falls back to size/2; every position is still covered
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("abc", 40)[:10], chunks[0].Content)
	assert.Greater(t, len(chunks), 10)
}

func TestChunk_EmptyWindowsDropped(t *testing.T) {
	text := "abc" + strings.Repeat(" ", 50) + "def"

	chunks := chunker.Chunk(text, chunker.ChunkOptions{Size: 10, Overlap: 0})

	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
	}
}

func TestChunk_WhitespaceOnlyTextNoChunks(t *testing.T) {
	chunks := chunker.Chunk("   \n\t  ", chunker.DefaultOptions())

	assert.Empty(t, chunks)
}

func TestChunk_StructuredHeaderOnEveryChunk(t *testing.T) {
	header := "Table with columns: part, interval, action."
	var rows []string
	for i := 0; i < 30; i++ {
		rows = append(rows, "Row "+strings.Repeat("x", 40))
	}
	text := header + "\n\n" + strings.Join(rows, "\n")

	chunks := chunker.Chunk(text, chunker.ChunkOptions{Size: 300, Structured: true})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c.Content, header), "chunk missing header: %q", c.Content)
	}
}

func TestChunk_StructuredNeverSplitsRow(t *testing.T) {
	header := "Table with columns: part, notes."
	row1 := "Row 1: part is compressor; notes follow."
	cont := "  continued note line for row one."
	row2 := "Row 2: part is valve."
	text := header + "\n\n" + row1 + "\n" + cont + "\n" + row2

	// Size small enough that row1+continuation forces its own chunk.
	chunks := chunker.Chunk(text, chunker.ChunkOptions{Size: 130, Structured: true})

	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, row1)
	assert.Contains(t, chunks[0].Content, cont)
	assert.NotContains(t, chunks[0].Content, row2)
	assert.Contains(t, chunks[1].Content, row2)
}

func TestChunk_StructuredNoRowsFallsBackToWholeText(t *testing.T) {
	text := "just a single block of text\nwith no blank line separator"

	chunks := chunker.Chunk(text, chunker.ChunkOptions{Size: 10, Structured: true})

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
}
