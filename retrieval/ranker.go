package retrieval

import (
	"sort"
	"strings"
)

// Chunk is a fixed-size slice of text from one source.
type Chunk struct {
	Source  string
	Content string
	Score   int
}

// Ranker picks the k chunks most relevant to query. Chunks that are not
// relevant at all must be left out.
type Ranker interface {
	Rank(query string, chunks []Chunk, k int) []Chunk
}

// WordOverlapRanker scores a chunk by how many of the query's words it
// contains. It is bag-of-words only; swap in a vector ranker behind the
// same interface for real semantic search.
type WordOverlapRanker struct{}

var _ Ranker = WordOverlapRanker{}

func (WordOverlapRanker) Rank(query string, chunks []Chunk, k int) []Chunk {
	words := strings.Fields(strings.ToLower(query))
	scored := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		text := strings.ToLower(c.Content)
		c.Score = 0
		for _, w := range words {
			if strings.Contains(text, w) {
				c.Score++
			}
		}
		if c.Score > 0 {
			scored = append(scored, c)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// splitChunks cuts text into pieces of at most size runes.
func splitChunks(source, text string, size int) []Chunk {
	runes := []rune(text)
	var out []Chunk
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, Chunk{Source: source, Content: string(runes[i:end])})
	}
	return out
}
