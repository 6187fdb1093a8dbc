package usecase

import (
	"sort"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

const fusionKeyRunes = 100

type channelHits struct {
	channel domain.Channel
	weight  float64
	hits    []domain.ScoredChunk
}

type fusedCandidate struct {
	chunk      domain.Chunk
	raw        float64
	normalized float64
	final      float64
	channels   []domain.Channel
}

// fuseWeighted min-max normalizes each channel, merges hits sharing the same
// text prefix and scores them as the weighted sum of their normalized scores.
// The result is ordered by final score; equal scores keep first-seen order.
func fuseWeighted(lists ...channelHits) []domain.RetrievalResult {
	index := make(map[string]int)
	acc := make([]fusedCandidate, 0, 16)

	for _, list := range lists {
		normalized := minMaxNormalize(list.hits)
		for i, hit := range list.hits {
			key := fusionKey(hit.Chunk)
			pos, ok := index[key]
			if !ok {
				acc = append(acc, fusedCandidate{chunk: hit.Chunk})
				pos = len(acc) - 1
				index[key] = pos
			}

			candidate := &acc[pos]
			candidate.chunk = preferRicherChunk(candidate.chunk, hit.Chunk)
			candidate.final += normalized[i] * list.weight
			if !ok || normalized[i] > candidate.normalized {
				candidate.normalized = normalized[i]
				candidate.raw = hit.Score
			}
			candidate.channels = appendChannel(candidate.channels, list.channel)
		}
	}

	out := make([]domain.RetrievalResult, 0, len(acc))
	for _, c := range acc {
		out = append(out, domain.RetrievalResult{
			Chunk:           c.chunk,
			RawScore:        c.raw,
			NormalizedScore: c.normalized,
			FinalScore:      c.final,
			Channels:        c.channels,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

// minMaxNormalize maps scores into [0,1]. A constant set is returned as is.
func minMaxNormalize(hits []domain.ScoredChunk) []float64 {
	out := make([]float64, len(hits))
	if len(hits) == 0 {
		return out
	}

	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, hit := range hits[1:] {
		if hit.Score < minScore {
			minScore = hit.Score
		}
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}

	span := maxScore - minScore
	for i, hit := range hits {
		if span == 0 {
			out[i] = hit.Score
			continue
		}
		out[i] = (hit.Score - minScore) / span
	}
	return out
}

func trimResults(results []domain.RetrievalResult, limit int) []domain.RetrievalResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

// fusionKey identifies a logical result across channels by its text prefix.
func fusionKey(chunk domain.Chunk) string {
	runes := []rune(chunk.Text)
	if len(runes) > fusionKeyRunes {
		runes = runes[:fusionKeyRunes]
	}
	return string(runes)
}

func appendChannel(channels []domain.Channel, ch domain.Channel) []domain.Channel {
	for _, existing := range channels {
		if existing == ch {
			return channels
		}
	}
	return append(channels, ch)
}

func preferRicherChunk(current, candidate domain.Chunk) domain.Chunk {
	if current.ID == "" && current.Text == "" {
		return candidate
	}
	if current.ID == "" && candidate.ID != "" {
		current.ID = candidate.ID
	}
	if len(candidate.Text) > len(current.Text) {
		current.Text = candidate.Text
	}
	if current.Title == "" && candidate.Title != "" {
		current.Title = candidate.Title
	}
	if current.SourceURL == "" && candidate.SourceURL != "" {
		current.SourceURL = candidate.SourceURL
	}
	if current.DocType == "" && candidate.DocType != "" {
		current.DocType = candidate.DocType
	}
	if current.QualityTag == "" && candidate.QualityTag != "" {
		current.QualityTag = candidate.QualityTag
	}
	return current
}

// channelsUsed lists the channels present in results, vector first.
func channelsUsed(results []domain.RetrievalResult) []domain.Channel {
	var vector, keyword bool
	for _, r := range results {
		vector = vector || r.HasChannel(domain.ChannelVector)
		keyword = keyword || r.HasChannel(domain.ChannelKeyword)
	}
	out := make([]domain.Channel, 0, 2)
	if vector {
		out = append(out, domain.ChannelVector)
	}
	if keyword {
		out = append(out, domain.ChannelKeyword)
	}
	return out
}

// uniqueSources returns source URLs in first-seen rank order.
func uniqueSources(results []domain.RetrievalResult) []string {
	seen := make(map[string]struct{}, len(results))
	out := make([]string, 0, len(results))
	for _, r := range results {
		url := r.Chunk.SourceURL
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}
