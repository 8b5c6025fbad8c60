package processor

import (
	"strings"

	"fund-report-rag/internal/models"
)

// minChunkLen discards trailing fragments too small to be worth indexing.
const minChunkLen = 20

// textUnit is one chunkable piece of extracted content: a page's plain text
// or a synthesized table summary.
type textUnit struct {
	text      string
	page      int
	section   string
	tableType models.TableType
}

// Chunker splits text units into overlapping fixed-size windows. Chunk
// indices run across the whole unit sequence in page order, so a single run
// over the same input is deterministic.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 200
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk normalizes each unit (trimmed lines, blank lines removed) and emits
// windows of size characters advancing by size-overlap, dropping a window
// whose trimmed content is under minChunkLen.
func (c *Chunker) Chunk(units []textUnit) []models.TextChunk {
	step := c.size - c.overlap
	if step < 1 {
		step = 1
	}

	var chunks []models.TextChunk
	for _, unit := range units {
		text := []rune(normalizeText(unit.text))
		if len(text) == 0 {
			continue
		}

		start := 0
		for start < len(text) {
			end := start + c.size
			if end > len(text) {
				end = len(text)
			}
			content := string(text[start:end])
			if len(strings.TrimSpace(content)) < minChunkLen {
				break
			}
			chunks = append(chunks, models.TextChunk{
				Content:    content,
				Page:       unit.page,
				Section:    unit.section,
				TableType:  unit.tableType,
				ChunkIndex: len(chunks),
			})
			if end == len(text) {
				break
			}
			start += step
		}
	}
	return chunks
}

// normalizeText trims every line and drops blank ones.
func normalizeText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
