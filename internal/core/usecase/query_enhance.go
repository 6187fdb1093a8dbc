package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

const enhanceSystemPrompt = "You rewrite support questions into search queries for a documentation index. " +
	"Keep the original intent, add close synonyms and product terms, and answer with the rewritten query only."

type EnhancerConfig struct {
	Enabled     bool
	MaxTokens   int
	Temperature float64
}

// QueryEnhancer optionally rewrites a query before retrieval. It never fails:
// any problem returns the original query.
type QueryEnhancer struct {
	llm      ports.LanguageModel
	cfg      EnhancerConfig
	observer ports.PipelineObserver
}

func NewQueryEnhancer(llm ports.LanguageModel, cfg EnhancerConfig, observer ports.PipelineObserver) *QueryEnhancer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 100
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &QueryEnhancer{llm: llm, cfg: cfg, observer: observer}
}

// Enhance returns the query to search with and whether it differs from the input.
func (e *QueryEnhancer) Enhance(ctx context.Context, query string) (string, bool) {
	if e == nil || !e.cfg.Enabled || e.llm == nil {
		return query, false
	}

	out, err := e.llm.Complete(ctx, ports.CompletionRequest{
		System:      enhanceSystemPrompt,
		User:        fmt.Sprintf("Original question: %s\n\nSearch query:", query),
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		slog.Warn("query_enhancement_failed", "error", err)
		e.observer.ObserveEnhancement(false)
		return query, false
	}

	enhanced := cleanEnhancedQuery(out)
	if enhanced == "" || strings.EqualFold(enhanced, strings.TrimSpace(query)) {
		e.observer.ObserveEnhancement(false)
		return query, false
	}
	e.observer.ObserveEnhancement(true)
	return enhanced, true
}

func cleanEnhancedQuery(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimPrefix(s, "Search query:")
	return strings.Trim(strings.TrimSpace(s), "\"'`")
}
