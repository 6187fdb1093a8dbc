package keyword

import (
	"math"
	"sort"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

// Index is an immutable Okapi BM25 index over a corpus snapshot.
// A zero-document Index is valid and always returns no hits.
type Index struct {
	chunks   []domain.Chunk
	termFreq []map[string]int
	docLen   []int
	avgDL    float64
	idf      map[string]float64
	k1       float64
	b        float64
}

// Tokenize lowercases text and splits it on whitespace. Punctuation stays
// attached to its token.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func Build(chunks []domain.Chunk) *Index {
	idx := &Index{
		chunks:   make([]domain.Chunk, len(chunks)),
		termFreq: make([]map[string]int, len(chunks)),
		docLen:   make([]int, len(chunks)),
		idf:      make(map[string]float64),
		k1:       defaultK1,
		b:        defaultB,
	}
	copy(idx.chunks, chunks)
	if len(chunks) == 0 {
		return idx
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, chunk := range chunks {
		tokens := Tokenize(chunk.Text)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for tok := range freqs {
			docFreq[tok]++
		}
		idx.termFreq[i] = freqs
		idx.docLen[i] = len(tokens)
		totalLen += len(tokens)
	}
	idx.avgDL = float64(totalLen) / float64(len(chunks))

	n := float64(len(chunks))
	for tok, df := range docFreq {
		// log1p keeps idf positive even when a term appears in every document.
		idx.idf[tok] = math.Log1p((n - float64(df) + 0.5) / (float64(df) + 0.5))
	}
	return idx
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.chunks)
}

// Search returns at most k hits with strictly positive score, best first.
// Equal scores keep corpus order.
func (idx *Index) Search(query string, k int) []domain.ScoredChunk {
	if idx.Len() == 0 || k <= 0 {
		return nil
	}
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	hits := make([]domain.ScoredChunk, 0, 16)
	for i := range idx.chunks {
		score := idx.score(i, queryTokens)
		if score > 0 {
			hits = append(hits, domain.ScoredChunk{Chunk: idx.chunks[i], Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func (idx *Index) score(doc int, queryTokens []string) float64 {
	freqs := idx.termFreq[doc]
	lengthNorm := 1 - idx.b
	if idx.avgDL > 0 {
		lengthNorm += idx.b * float64(idx.docLen[doc]) / idx.avgDL
	}

	var total float64
	for _, tok := range queryTokens {
		tf, ok := freqs[tok]
		if !ok {
			continue
		}
		f := float64(tf)
		total += idx.idf[tok] * (f * (idx.k1 + 1)) / (f + idx.k1*lengthNorm)
	}
	return total
}
