package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

// VectorSearchClient turns query text into a nearest-neighbour lookup.
// Failures degrade to an empty hit list.
type VectorSearchClient struct {
	embedder ports.Embedder
	store    ports.VectorStore
}

func NewVectorSearchClient(embedder ports.Embedder, store ports.VectorStore) *VectorSearchClient {
	return &VectorSearchClient{embedder: embedder, store: store}
}

// Search returns hits with score >= scoreThreshold, best first. The error is
// informational only; hits is always safe to use.
func (c *VectorSearchClient) Search(ctx context.Context, query string, k int, scoreThreshold float64) ([]domain.ScoredChunk, error) {
	if c == nil || c.embedder == nil || c.store == nil || k <= 0 {
		return nil, nil
	}

	vector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, c.degrade("embed query", err)
	}
	if len(vector) == 0 {
		return nil, c.degrade("embed query", errors.New("empty embedding"))
	}

	hits, err := c.store.Search(ctx, vector, k, scoreThreshold)
	if err != nil {
		return nil, c.degrade("vector search", err)
	}

	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < scoreThreshold {
			continue
		}
		out = append(out, hit)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (c *VectorSearchClient) degrade(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	slog.Warn("vector_channel_degraded", "operation", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}
