package usecase

import (
	"strings"
	"unicode"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

const (
	DefaultDedupThreshold = 0.9

	// Containment only counts as duplication for clauses at least this long.
	minContainmentRunes = 24
)

// Aggregator merges per-chunk findings into one ordered list and drops
// near-duplicates produced by chunk overlap. The first occurrence wins.
type Aggregator struct {
	threshold float64
}

func NewAggregator(threshold float64) *Aggregator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDedupThreshold
	}
	return &Aggregator{threshold: threshold}
}

type keptClause struct {
	chunk int
	norm  []rune
}

// Merge walks chunks by index. A finding is compared only with findings kept
// from earlier chunks whose text overlaps its own chunk, so repeated clauses
// inside one chunk or in distant chunks survive. chunks carries the spans of
// perChunk by index; without a span, only the directly preceding chunk counts
// as overlapping.
func (a *Aggregator) Merge(chunks []domain.Chunk, perChunk [][]domain.Finding) []domain.Finding {
	out := make([]domain.Finding, 0)
	var kept []keptClause

	for chunkIdx, findings := range perChunk {
		for _, f := range findings {
			norm := []rune(normalizeClause(f.ClauseText))
			if a.duplicateInOverlap(chunks, kept, chunkIdx, norm) {
				continue
			}
			kept = append(kept, keptClause{chunk: chunkIdx, norm: norm})
			out = append(out, f)
		}
	}
	return out
}

func (a *Aggregator) duplicateInOverlap(chunks []domain.Chunk, kept []keptClause, chunkIdx int, norm []rune) bool {
	for _, k := range kept {
		if k.chunk == chunkIdx || !chunksOverlap(chunks, k.chunk, chunkIdx) {
			continue
		}
		if a.nearDuplicate(k.norm, norm) {
			return true
		}
	}
	return false
}

// chunksOverlap reports whether earlier chunk j shares text with chunk i.
func chunksOverlap(chunks []domain.Chunk, j, i int) bool {
	if i >= len(chunks) || j >= len(chunks) {
		return i-j == 1
	}
	return chunks[j].CharEnd > chunks[i].CharStart
}

func (a *Aggregator) nearDuplicate(x, y []rune) bool {
	if string(x) == string(y) {
		return true
	}
	if a.threshold >= 1 {
		return false
	}
	shorter, longer := x, y
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) >= minContainmentRunes && strings.Contains(string(longer), string(shorter)) {
		return true
	}
	// The ratio cannot reach the threshold when lengths differ too much.
	if float64(len(shorter)) < a.threshold*float64(len(longer)) {
		return false
	}
	return similarity(x, y) >= a.threshold
}

// normalizeClause lowercases, collapses whitespace and strips surrounding
// punctuation and quotes.
func normalizeClause(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	joined := strings.Join(fields, " ")
	return strings.TrimFunc(joined, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
}

// similarity is 1 - levenshtein(x, y) / max(len).
func similarity(x, y []rune) float64 {
	longest := len(x)
	if len(y) > longest {
		longest = len(y)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(x, y))/float64(longest)
}

func levenshtein(x, y []rune) int {
	if len(x) < len(y) {
		x, y = y, x
	}
	prev := make([]int, len(y)+1)
	curr := make([]int, len(y)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(x); i++ {
		curr[0] = i
		for j := 1; j <= len(y); j++ {
			cost := 1
			if x[i-1] == y[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(y)]
}
