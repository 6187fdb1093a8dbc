package keyword

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

// Holder publishes the current Index to concurrent readers. Rebuilds build a
// fresh Index off to the side and swap the pointer, so a reader sees either
// the old or the new index and never a partial one.
type Holder struct {
	source ports.CorpusSource

	current atomic.Pointer[Index]
	builtAt atomic.Int64

	rebuildMu sync.Mutex
}

func NewHolder(source ports.CorpusSource) *Holder {
	h := &Holder{source: source}
	h.current.Store(Build(nil))
	return h
}

func (h *Holder) Search(query string, k int) []domain.ScoredChunk {
	return h.current.Load().Search(query, k)
}

func (h *Holder) Size() int {
	return h.current.Load().Len()
}

// BuiltAt is the time of the last successful swap, zero before the first.
func (h *Holder) BuiltAt() time.Time {
	ns := h.builtAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// Replace builds an index over chunks and publishes it.
func (h *Holder) Replace(chunks []domain.Chunk) int {
	next := Build(chunks)
	h.current.Store(next)
	h.builtAt.Store(time.Now().UnixNano())
	return next.Len()
}

// Rebuild scrolls the full corpus and publishes a new index. On failure the
// previous index stays in place.
func (h *Holder) Rebuild(ctx context.Context) (int, error) {
	if h.source == nil {
		return 0, domain.WrapError(domain.ErrCorpusUnavailable, "rebuild keyword index", fmt.Errorf("no corpus source configured"))
	}

	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	start := time.Now()
	chunks, err := h.source.ListChunks(ctx)
	if err != nil {
		slog.Warn("keyword_index_rebuild_failed", "error", err, "kept_chunks", h.Size())
		return 0, fmt.Errorf("list corpus chunks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := h.Replace(chunks)
	slog.Info("keyword_index_rebuilt",
		"chunks", n,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return n, nil
}
