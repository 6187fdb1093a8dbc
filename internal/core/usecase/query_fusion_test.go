package usecase

import (
	"math"
	"strings"
	"testing"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFuseWeightedSingleChannelScalesNormalizedScores(t *testing.T) {
	vector := []domain.ScoredChunk{
		scored("a", "alpha", 0.9),
		scored("b", "beta", 0.5),
		scored("c", "gamma", 0.1),
	}

	fused := fuseWeighted(channelHits{channel: domain.ChannelVector, weight: 0.7, hits: vector})
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(fused))
	}
	want := []float64{0.7, 0.35, 0}
	for i, r := range fused {
		if !almostEqual(r.FinalScore, want[i]) {
			t.Fatalf("result %d: expected final %.3f, got %.3f", i, want[i], r.FinalScore)
		}
		if r.ChannelTag() != "vector" {
			t.Fatalf("result %d: expected vector tag, got %s", i, r.ChannelTag())
		}
	}
	if !almostEqual(fused[0].RawScore, 0.9) || !almostEqual(fused[0].NormalizedScore, 1) {
		t.Fatalf("expected raw 0.9 and normalized 1 for top result, got %+v", fused[0])
	}
}

func TestFuseWeightedMergesSameTextAcrossChannels(t *testing.T) {
	vector := []domain.ScoredChunk{scored("v1", "shared text", 0.8), scored("v2", "vector only", 0.4)}
	keyword := []domain.ScoredChunk{scored("k1", "shared text", 7.5), scored("k2", "keyword only", 2.5)}

	fused := fuseWeighted(
		channelHits{channel: domain.ChannelVector, weight: 0.7, hits: vector},
		channelHits{channel: domain.ChannelKeyword, weight: 0.3, hits: keyword},
	)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(fused))
	}
	if fused[0].Chunk.Text != "shared text" {
		t.Fatalf("expected shared chunk first, got %q", fused[0].Chunk.Text)
	}
	if !almostEqual(fused[0].FinalScore, 1.0) {
		t.Fatalf("expected shared final score 1.0, got %f", fused[0].FinalScore)
	}
	if fused[0].ChannelTag() != "both" {
		t.Fatalf("expected both channels, got %v", fused[0].Channels)
	}
	for _, r := range fused[1:] {
		if len(r.Channels) != 1 {
			t.Fatalf("expected single channel for %q, got %v", r.Chunk.Text, r.Channels)
		}
	}
}

func TestFuseWeightedConstantScoresAreLeftUnchanged(t *testing.T) {
	fused := fuseWeighted(channelHits{
		channel: domain.ChannelKeyword,
		weight:  0.3,
		hits:    []domain.ScoredChunk{scored("a", "only hit", 4.2)},
	})
	if len(fused) != 1 {
		t.Fatalf("expected one result, got %d", len(fused))
	}
	if !almostEqual(fused[0].NormalizedScore, 4.2) {
		t.Fatalf("expected unchanged score 4.2, got %f", fused[0].NormalizedScore)
	}
	if !almostEqual(fused[0].FinalScore, 4.2*0.3) {
		t.Fatalf("expected final %f, got %f", 4.2*0.3, fused[0].FinalScore)
	}
}

func TestFuseWeightedTieKeepsFirstSeenOrder(t *testing.T) {
	vector := []domain.ScoredChunk{scored("v", "from vector", 0.5), scored("v0", "vector floor", 0.1)}
	keyword := []domain.ScoredChunk{scored("k", "from keyword", 3), scored("k0", "keyword floor", 1)}

	fused := fuseWeighted(
		channelHits{channel: domain.ChannelVector, weight: 0.5, hits: vector},
		channelHits{channel: domain.ChannelKeyword, weight: 0.5, hits: keyword},
	)
	if fused[0].Chunk.Text != "from vector" || fused[1].Chunk.Text != "from keyword" {
		t.Fatalf("expected vector hit before tied keyword hit, got %q then %q", fused[0].Chunk.Text, fused[1].Chunk.Text)
	}
}

func TestFuseWeightedKeysOnTextPrefix(t *testing.T) {
	prefix := strings.Repeat("x", fusionKeyRunes)
	short := scored("a", prefix+" short tail", 0.9)
	long := scored("b", prefix+" a much longer tail for the same passage", 5)
	long.Chunk.Title = ""

	fused := fuseWeighted(
		channelHits{channel: domain.ChannelVector, weight: 0.7, hits: []domain.ScoredChunk{short}},
		channelHits{channel: domain.ChannelKeyword, weight: 0.3, hits: []domain.ScoredChunk{long}},
	)
	if len(fused) != 1 {
		t.Fatalf("expected prefix match to merge into one result, got %d", len(fused))
	}
	if fused[0].Chunk.Text != long.Chunk.Text {
		t.Fatalf("expected the longer text to be kept, got %q", fused[0].Chunk.Text)
	}
	if fused[0].Chunk.Title != short.Chunk.Title {
		t.Fatalf("expected title from first channel, got %q", fused[0].Chunk.Title)
	}
}

func TestFuseWeightedEmptyInput(t *testing.T) {
	if out := fuseWeighted(); len(out) != 0 {
		t.Fatalf("expected no results, got %d", len(out))
	}
	out := fuseWeighted(
		channelHits{channel: domain.ChannelVector, weight: 0.7},
		channelHits{channel: domain.ChannelKeyword, weight: 0.3},
	)
	if len(out) != 0 {
		t.Fatalf("expected no results for empty channels, got %d", len(out))
	}
}

func TestUniqueSourcesAndChannelsUsed(t *testing.T) {
	results := []domain.RetrievalResult{
		{Chunk: domain.Chunk{SourceURL: "https://a"}, Channels: []domain.Channel{domain.ChannelKeyword}},
		{Chunk: domain.Chunk{SourceURL: "https://b"}, Channels: []domain.Channel{domain.ChannelVector}},
		{Chunk: domain.Chunk{SourceURL: "https://a"}, Channels: []domain.Channel{domain.ChannelVector}},
		{Chunk: domain.Chunk{}, Channels: []domain.Channel{domain.ChannelVector}},
	}

	sources := uniqueSources(results)
	if len(sources) != 2 || sources[0] != "https://a" || sources[1] != "https://b" {
		t.Fatalf("unexpected sources: %v", sources)
	}
	channels := channelsUsed(results)
	if len(channels) != 2 || channels[0] != domain.ChannelVector || channels[1] != domain.ChannelKeyword {
		t.Fatalf("unexpected channels: %v", channels)
	}
	if got := uniqueSources(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil sources, got %#v", got)
	}
}
