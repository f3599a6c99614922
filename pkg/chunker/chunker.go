// Package chunker splits extracted document text into the bounded
// pieces that get embedded and stored. Two strategies are supported:
// an overlapping sliding window for prose, and a structured mode for
// tabular extraction output that keeps the header on every chunk and
// never splits a row.
package chunker

import (
	"strings"
)

type ChunkOptions struct {
	Size       int  // target chunk size in characters
	Overlap    int  // overlap between consecutive window chunks
	Structured bool // tabular mode: header repeated, rows kept whole
}

type TextChunk struct {
	Content string
	Index   int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		Size:    1000,
		Overlap: 200,
	}
}

// Chunk splits text according to opts. The output order is
// significant: a chunk's position here becomes its sequence index in
// the store.
func Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.Size <= 0 {
		opts.Size = 1000
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	if opts.Structured {
		return chunkStructured(text, opts)
	}
	return chunkWindow(text, opts)
}

func chunkWindow(text string, opts ChunkOptions) []TextChunk {
	var chunks []TextChunk
	runes := []rune(text)
	idx := 0

	step := opts.Size - opts.Overlap
	if step <= 0 {
		// overlap >= size would never advance; fall back to half-size
		// steps so the loop always makes progress.
		step = opts.Size / 2
		if step < 1 {
			step = 1
		}
	}

	for start := 0; start < len(runes); start += step {
		end := start + opts.Size
		if end > len(runes) {
			end = len(runes)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, TextChunk{Content: content, Index: idx})
			idx++
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// chunkStructured handles tabular extraction output. The header block
// is the leading run of lines up to the first blank line; each
// following line with no leading whitespace starts a new row, and
// indented lines continue the current row. Rows are grouped so that
// header plus group stays under the size bound. A row longer than the
// bound is still emitted whole.
func chunkStructured(text string, opts ChunkOptions) []TextChunk {
	header, rows := splitHeaderRows(text)
	if len(rows) == 0 {
		content := strings.TrimSpace(text)
		if content == "" {
			return nil
		}
		return []TextChunk{{Content: content, Index: 0}}
	}

	var chunks []TextChunk
	var group []string
	groupLen := 0
	idx := 0

	flush := func() {
		if len(group) == 0 {
			return
		}
		content := header + "\n" + strings.Join(group, "\n")
		chunks = append(chunks, TextChunk{Content: strings.TrimSpace(content), Index: idx})
		idx++
		group = nil
		groupLen = 0
	}

	budget := opts.Size - len(header)
	for _, row := range rows {
		if groupLen > 0 && groupLen+len(row)+1 > budget {
			flush()
		}
		group = append(group, row)
		groupLen += len(row) + 1
	}
	flush()

	return chunks
}

func splitHeaderRows(text string) (header string, rows []string) {
	lines := strings.Split(text, "\n")

	// Header: leading lines up to the first blank line.
	i := 0
	var headerLines []string
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			break
		}
		headerLines = append(headerLines, lines[i])
	}
	header = strings.Join(headerLines, "\n")

	var current []string
	endRow := func() {
		if len(current) > 0 {
			rows = append(rows, strings.Join(current, "\n"))
			current = nil
		}
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			// continuation of the current row
			if len(current) > 0 {
				current = append(current, line)
				continue
			}
		}
		endRow()
		current = []string{line}
	}
	endRow()

	return header, rows
}
