package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// Rerank signal weights. They sum to 1 so a reranked score, scaled back by
// the best fused score, stays within the fused score range.
const (
	rerankFusedWeight    = 0.55
	rerankCoverageWeight = 0.25
	rerankPhraseWeight   = 0.10
	rerankAgreeWeight    = 0.10
)

// rerankFused reorders fused results by the fused score plus evidence the
// fusion step cannot see: how many query terms the chunk covers, whether it
// contains a query phrase verbatim, and whether both channels agreed on it.
// Equal scores keep their fused order.
func rerankFused(question string, fused []domain.RetrievalResult) []domain.RetrievalResult {
	if len(fused) == 0 {
		return fused
	}

	maxFused := 0.0
	for _, r := range fused {
		if r.FinalScore > maxFused {
			maxFused = r.FinalScore
		}
	}
	if maxFused <= 0 {
		return fused
	}

	terms := splitAlphaNumLower(question)
	termSet := toTokenSet(question)
	bigrams := queryBigrams(terms)

	out := make([]domain.RetrievalResult, len(fused))
	copy(out, fused)
	for i := range out {
		docTokens := splitAlphaNumLower(out[i].Chunk.Title + " " + out[i].Chunk.Text)
		score := rerankFusedWeight*out[i].FinalScore/maxFused +
			rerankCoverageWeight*termCoverage(termSet, docTokens) +
			rerankPhraseWeight*phraseHit(bigrams, docTokens)
		if out[i].HasChannel(domain.ChannelVector) && out[i].HasChannel(domain.ChannelKeyword) {
			score += rerankAgreeWeight
		}
		out[i].FinalScore = score * maxFused
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

func termCoverage(terms map[string]struct{}, docTokens []string) float64 {
	if len(terms) == 0 || len(docTokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(terms))
	for _, token := range docTokens {
		if _, ok := terms[token]; ok {
			seen[token] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(len(terms))
}

func queryBigrams(terms []string) map[string]struct{} {
	out := make(map[string]struct{}, len(terms))
	for i := 1; i < len(terms); i++ {
		out[terms[i-1]+" "+terms[i]] = struct{}{}
	}
	return out
}

// phraseHit is 1 when any adjacent query term pair appears adjacent in the
// document.
func phraseHit(bigrams map[string]struct{}, docTokens []string) float64 {
	if len(bigrams) == 0 {
		return 0
	}
	for i := 1; i < len(docTokens); i++ {
		if _, ok := bigrams[docTokens[i-1]+" "+docTokens[i]]; ok {
			return 1
		}
	}
	return 0
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
