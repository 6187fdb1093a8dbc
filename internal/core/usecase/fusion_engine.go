package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

type FusionConfig struct {
	TopK           int
	ScoreThreshold float64
	VectorWeight   float64
	KeywordWeight  float64
	EnableHybrid   bool
	// ChannelCandidates is the per-channel fetch size; 0 means TopK.
	ChannelCandidates int
	EnableRerank      bool
}

func (c FusionConfig) normalize() FusionConfig {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.ChannelCandidates < c.TopK {
		c.ChannelCandidates = c.TopK
	}
	return c
}

// FusionEngine queries the vector and keyword channels concurrently and
// merges them into one ranked list.
type FusionEngine struct {
	vector   *VectorSearchClient
	keyword  ports.KeywordSearcher
	cfg      FusionConfig
	observer ports.PipelineObserver
}

func NewFusionEngine(vector *VectorSearchClient, keyword ports.KeywordSearcher, cfg FusionConfig, observer ports.PipelineObserver) *FusionEngine {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &FusionEngine{
		vector:   vector,
		keyword:  keyword,
		cfg:      cfg.normalize(),
		observer: observer,
	}
}

// Retrieve returns at most TopK fused results. Channel failures yield empty
// channels; only cancellation of ctx is returned as an error, in which case
// partial results are discarded.
func (e *FusionEngine) Retrieve(ctx context.Context, query string) ([]domain.RetrievalResult, error) {
	var vectorHits, keywordHits []domain.ScoredChunk
	hybrid := e.cfg.EnableHybrid && e.keyword != nil

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.vector.Search(gctx, query, e.cfg.ChannelCandidates, e.cfg.ScoreThreshold)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		e.observer.ObserveChannel(domain.ChannelVector, len(hits), err != nil)
		vectorHits = hits
		return nil
	})
	if hybrid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hits := e.keyword.Search(query, e.cfg.ChannelCandidates)
			e.observer.ObserveChannel(domain.ChannelKeyword, len(hits), false)
			keywordHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lists := []channelHits{{channel: domain.ChannelVector, weight: e.cfg.VectorWeight, hits: vectorHits}}
	if hybrid {
		lists = append(lists, channelHits{channel: domain.ChannelKeyword, weight: e.cfg.KeywordWeight, hits: keywordHits})
	}

	fused := fuseWeighted(lists...)
	if e.cfg.EnableRerank {
		fused = rerankFused(query, fused)
	}
	results := trimResults(fused, e.cfg.TopK)

	slog.Debug("fusion_completed",
		"vector_hits", len(vectorHits),
		"keyword_hits", len(keywordHits),
		"hybrid", hybrid,
		"results", len(results),
	)
	return results, nil
}
