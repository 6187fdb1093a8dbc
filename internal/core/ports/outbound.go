package ports

import (
	"context"
	"time"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// Embedder builds vectors for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore performs nearest-neighbour search against the vector backend.
type VectorStore interface {
	Search(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]domain.ScoredChunk, error)
}

// KeywordSearcher scores a query against the in-process keyword index.
type KeywordSearcher interface {
	Search(query string, k int) []domain.ScoredChunk
}

// CompletionRequest is one system+user prompt round trip.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// JSON asks the backend for a bare JSON object where supported.
	JSON bool
}

// LanguageModel generates text for a prompt.
type LanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CorpusSource returns a full snapshot of the documentation corpus.
type CorpusSource interface {
	ListChunks(ctx context.Context) ([]domain.Chunk, error)
}

// CorpusWatcher reports a fingerprint that changes whenever the corpus does.
type CorpusWatcher interface {
	Fingerprint(ctx context.Context) (domain.CorpusFingerprint, error)
}

// CorpusEvents carries "corpus changed" notifications between processes.
type CorpusEvents interface {
	PublishCorpusUpdated(ctx context.Context, event domain.CorpusEvent) error
	// SubscribeCorpusUpdated blocks until ctx is done.
	SubscribeCorpusUpdated(ctx context.Context, handler func(context.Context, domain.CorpusEvent) error) error
}

// IndexObserver records keyword index rebuilds.
type IndexObserver interface {
	StartRebuild()
	FinishRebuild(trigger string, chunks int, duration time.Duration, err error)
	ObserveEventLag(lag time.Duration)
}

// WatchObserver receives corpus watcher poll outcomes.
type WatchObserver interface {
	ObservePoll(changed bool, err error)
}

// SessionStore holds bounded per-conversation history.
type SessionStore interface {
	GetOrCreate(sessionID string) string
	AppendMessage(sessionID string, role domain.Role, text string) string
	// AppendTurn writes a user message and its answer atomically.
	AppendTurn(sessionID, userText, assistantText string) string
	History(sessionID string) []domain.Message
	Context(sessionID string, lastNPairs int) string
}

// PipelineObserver receives retrieval and classification outcomes for metrics.
type PipelineObserver interface {
	ObserveChannel(channel domain.Channel, hits int, failed bool)
	ObserveEnhancement(applied bool)
	ObserveGeneration(failed bool)
	ObserveClassification(fallback bool)
	ObserveRouting(decision domain.RoutingDecision)
}

// NopObserver discards every observation.
type NopObserver struct{}

func (NopObserver) ObserveChannel(domain.Channel, int, bool) {}
func (NopObserver) ObserveEnhancement(bool) {}
func (NopObserver) ObserveGeneration(bool) {}
func (NopObserver) ObserveClassification(bool) {}
func (NopObserver) ObserveRouting(domain.RoutingDecision) {}

// NopIndexObserver discards rebuild observations.
type NopIndexObserver struct{}

func (NopIndexObserver) StartRebuild() {}
func (NopIndexObserver) FinishRebuild(string, int, time.Duration, error) {}
func (NopIndexObserver) ObserveEventLag(time.Duration) {}
