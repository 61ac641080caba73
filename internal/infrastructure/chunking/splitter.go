package chunking

import (
	"fmt"
	"unicode"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

// Splitter cuts text into rune-bounded chunks. Consecutive chunks share
// exactly Overlap runes, so dropping the first Overlap runes of every chunk
// after the first and concatenating rebuilds the input.
type Splitter struct {
	ChunkSize int
	Overlap   int
	// BoundaryWindow is how far before the size limit a natural break is searched for.
	BoundaryWindow int
}

func NewSplitter(chunkSize, overlap, boundaryWindow int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, &domain.ConfigurationError{
			Field:  "chunk_size",
			Reason: fmt.Sprintf("must be positive, got %d", chunkSize),
		}
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, &domain.ConfigurationError{
			Field:  "chunk_overlap",
			Reason: fmt.Sprintf("must be in [0, %d), got %d", chunkSize, overlap),
		}
	}
	if boundaryWindow <= 0 {
		boundaryWindow = chunkSize / 10
	}
	// A cut must land past the overlap, otherwise the next chunk would not advance.
	if maxWindow := chunkSize - overlap - 1; boundaryWindow > maxWindow {
		boundaryWindow = maxWindow
	}
	return &Splitter{
		ChunkSize:      chunkSize,
		Overlap:        overlap,
		BoundaryWindow: boundaryWindow,
	}, nil
}

func (s *Splitter) Split(text string) []domain.Chunk {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}
	if total <= s.ChunkSize {
		return []domain.Chunk{{Index: 0, Text: text, CharStart: 0, CharEnd: total}}
	}

	out := make([]domain.Chunk, 0, total/(s.ChunkSize-s.Overlap)+1)
	start := 0
	for {
		limit := start + s.ChunkSize
		if limit >= total {
			out = append(out, newChunk(runes, len(out), start, total))
			return out
		}
		end := s.cutPoint(runes, start, limit)
		out = append(out, newChunk(runes, len(out), start, end))
		start = end - s.Overlap
	}
}

func newChunk(runes []rune, index, start, end int) domain.Chunk {
	return domain.Chunk{
		Index:     index,
		Text:      string(runes[start:end]),
		CharStart: start,
		CharEnd:   end,
	}
}

// cutPoint picks the chunk end in (start+Overlap, limit]. Paragraph breaks win
// over sentence ends, which win over plain whitespace; with none in the
// window the chunk is cut hard at limit.
func (s *Splitter) cutPoint(runes []rune, start, limit int) int {
	lo := limit - s.BoundaryWindow
	if floor := start + s.Overlap + 1; lo < floor {
		lo = floor
	}
	if lo > limit {
		return limit
	}

	for _, isBoundary := range []func([]rune, int) bool{paragraphBreak, sentenceEnd, whitespace} {
		for i := limit; i >= lo; i-- {
			if isBoundary(runes, i) {
				return i
			}
		}
	}
	return limit
}

// Boundary predicates report whether a cut before runes[i] is natural.

func paragraphBreak(runes []rune, i int) bool {
	return i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n'
}

func sentenceEnd(runes []rune, i int) bool {
	if i < 2 || !unicode.IsSpace(runes[i-1]) {
		return false
	}
	switch runes[i-2] {
	case '.', '!', '?', ';':
		return true
	default:
		return false
	}
}

func whitespace(runes []rune, i int) bool {
	return i >= 1 && unicode.IsSpace(runes[i-1])
}
