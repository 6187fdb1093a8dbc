package keyword

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

func corpus(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		out = append(out, domain.Chunk{ID: fmt.Sprintf("c%d", i), Text: text, Title: fmt.Sprintf("T%d", i)})
	}
	return out
}

func TestTokenizeLowercasesAndKeepsPunctuation(t *testing.T) {
	assert.Equal(t, []string{"how", "do", "i", "connect", "snowflake?"}, Tokenize("How do I\tconnect  Snowflake?"))
	assert.Empty(t, Tokenize("   "))
}

func TestEmptyIndexReturnsNoHits(t *testing.T) {
	idx := Build(nil)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Search("anything", 5))
}

func TestSearchBoundedPositiveAndNonIncreasing(t *testing.T) {
	idx := Build(corpus(
		"snowflake connector setup guide",
		"lineage graph for snowflake tables and snowflake views",
		"glossary terms and owners",
		"sso with okta",
		"snowflake",
		"connector permissions for bigquery",
	))

	for _, k := range []int{1, 2, 3, 10} {
		hits := idx.Search("snowflake connector", k)
		require.LessOrEqual(t, len(hits), k)
		for i, hit := range hits {
			assert.Greater(t, hit.Score, 0.0)
			if i > 0 {
				assert.LessOrEqual(t, hit.Score, hits[i-1].Score)
			}
		}
	}
}

func TestSearchExcludesNonMatchingChunks(t *testing.T) {
	idx := Build(corpus("alpha beta", "gamma delta", "beta gamma"))
	hits := idx.Search("beta", 10)
	require.Len(t, hits, 2)
	for _, hit := range hits {
		assert.Contains(t, hit.Chunk.Text, "beta")
	}
}

func TestSearchTiesKeepCorpusOrder(t *testing.T) {
	idx := Build(corpus("same words here", "other text", "same words here"))
	hits := idx.Search("same", 5)
	require.Len(t, hits, 2)
	assert.Equal(t, "c0", hits[0].Chunk.ID)
	assert.Equal(t, "c2", hits[1].Chunk.ID)
}

func TestSingleDocumentCorpusStillScoresPositive(t *testing.T) {
	idx := Build(corpus("Connect Snowflake by creating a service account with USAGE grant"))
	hits := idx.Search("How do I connect Snowflake?", 5)
	require.Len(t, hits, 1)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestSearchWithNonPositiveKReturnsNothing(t *testing.T) {
	idx := Build(corpus("alpha"))
	assert.Empty(t, idx.Search("alpha", 0))
	assert.Empty(t, idx.Search("alpha", -1))
}

type corpusFake struct {
	chunks []domain.Chunk
	err    error
}

func (f corpusFake) ListChunks(context.Context) ([]domain.Chunk, error) {
	return f.chunks, f.err
}

func TestHolderRebuildSwapsIndex(t *testing.T) {
	h := NewHolder(corpusFake{chunks: corpus("reset password via sso", "connector setup")})
	assert.Empty(t, h.Search("sso", 5))
	assert.True(t, h.BuiltAt().IsZero())

	n, err := h.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, h.Search("sso", 5), 1)
	assert.False(t, h.BuiltAt().IsZero())
}

func TestHolderRebuildFailureKeepsPreviousIndex(t *testing.T) {
	h := NewHolder(corpusFake{err: errors.New("db down")})
	h.Replace(corpus("keep me around"))

	_, err := h.Rebuild(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, h.Size())
	assert.Len(t, h.Search("keep", 5), 1)
}

func TestHolderWithoutSourceReportsCorpusUnavailable(t *testing.T) {
	h := NewHolder(nil)
	_, err := h.Rebuild(context.Background())
	assert.True(t, domain.IsKind(err, domain.ErrCorpusUnavailable))
}

func TestHolderConcurrentReadersDuringReplace(t *testing.T) {
	h := NewHolder(nil)
	h.Replace(corpus("alpha one", "alpha two"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				hits := h.Search("alpha", 5)
				if len(hits) != 2 && len(hits) != 3 {
					t.Errorf("observed partial index with %d hits", len(hits))
					return
				}
			}
		}()
	}
	for j := 0; j < 50; j++ {
		if j%2 == 0 {
			h.Replace(corpus("alpha one", "alpha two", "alpha three"))
		} else {
			h.Replace(corpus("alpha one", "alpha two"))
		}
	}
	wg.Wait()
}
