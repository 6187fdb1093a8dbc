package usecase

import (
	"context"
	"sync"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

type llmFake struct {
	mu       sync.Mutex
	requests []ports.CompletionRequest
	reply    func(req ports.CompletionRequest) (string, error)
}

func (f *llmFake) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.reply == nil {
		return "", nil
	}
	return f.reply(req)
}

func (f *llmFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func replyWith(text string, err error) func(ports.CompletionRequest) (string, error) {
	return func(ports.CompletionRequest) (string, error) { return text, err }
}

type embedderFake struct {
	query string
	err   error
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.query = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type vectorStoreFake struct {
	hits      []domain.ScoredChunk
	err       error
	limit     int
	threshold float64
	// block waits for ctx cancellation before returning.
	block bool
}

func (f *vectorStoreFake) Search(ctx context.Context, _ []float32, limit int, threshold float64) ([]domain.ScoredChunk, error) {
	f.limit = limit
	f.threshold = threshold
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.ScoredChunk, len(f.hits))
	copy(out, f.hits)
	return out, nil
}

type keywordFake struct {
	hits  []domain.ScoredChunk
	query string
	k     int
}

func (f *keywordFake) Search(query string, k int) []domain.ScoredChunk {
	f.query = query
	f.k = k
	if len(f.hits) > k {
		return f.hits[:k]
	}
	return f.hits
}

type observerFake struct {
	mu              sync.Mutex
	channels        map[domain.Channel]int
	failedChannels  map[domain.Channel]int
	enhancements    []bool
	generations     []bool
	classifications []bool
	routings        []domain.RoutingDecision
}

func newObserverFake() *observerFake {
	return &observerFake{
		channels:       map[domain.Channel]int{},
		failedChannels: map[domain.Channel]int{},
	}
}

func (o *observerFake) ObserveChannel(ch domain.Channel, _ int, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.channels[ch]++
	if failed {
		o.failedChannels[ch]++
	}
}

func (o *observerFake) ObserveEnhancement(applied bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enhancements = append(o.enhancements, applied)
}

func (o *observerFake) ObserveGeneration(failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generations = append(o.generations, failed)
}

func (o *observerFake) ObserveClassification(fallback bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.classifications = append(o.classifications, fallback)
}

func (o *observerFake) ObserveRouting(decision domain.RoutingDecision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routings = append(o.routings, decision)
}

func scored(id, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{ID: id, Text: text, Title: "Title " + id, SourceURL: "https://docs.example.com/" + id},
		Score: score,
	}
}
