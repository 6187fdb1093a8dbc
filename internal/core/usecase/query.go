package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

type QueryUseCase struct {
	enhancer     *QueryEnhancer
	fusion       *FusionEngine
	synthesizer  *AnswerSynthesizer
	sessions     ports.SessionStore
	contextPairs int
	observer     ports.PipelineObserver
}

func NewQueryUseCase(
	enhancer *QueryEnhancer,
	fusion *FusionEngine,
	synthesizer *AnswerSynthesizer,
	sessions ports.SessionStore,
	contextPairs int,
	observer ports.PipelineObserver,
) *QueryUseCase {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &QueryUseCase{
		enhancer:     enhancer,
		fusion:       fusion,
		synthesizer:  synthesizer,
		sessions:     sessions,
		contextPairs: contextPairs,
		observer:     observer,
	}
}

// Handle answers query within the given session. Retrieval and generation
// problems degrade the answer instead of failing; the returned error is
// limited to invalid input and cancellation of ctx.
func (uc *QueryUseCase) Handle(ctx context.Context, query, sessionID string) (*domain.RetrievalResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle query", errors.New("query is empty"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Read only. The final AppendTurn is the one write to the store.
	var conversation string
	if uc.sessions != nil && sessionID != "" {
		conversation = uc.sessions.Context(sessionID, uc.contextPairs)
	}

	searchQuery, enhanced := uc.enhancer.Enhance(ctx, query)

	results, err := uc.fusion.Retrieve(ctx, searchQuery)
	if err != nil {
		return nil, err
	}

	answer, err := uc.synthesizer.Synthesize(ctx, query, results, conversation)
	generationFailed := err != nil
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("answer_generation_failed", "session_id", sessionID, "results", len(results), "error", err)
	}
	uc.observer.ObserveGeneration(generationFailed)

	if uc.sessions != nil {
		sessionID = uc.sessions.AppendTurn(sessionID, query, answer)
	}

	resp := &domain.RetrievalResponse{
		SessionID:          sessionID,
		Answer:             answer,
		Sources:            uniqueSources(results),
		RetrievedCount:     len(results),
		ChannelsUsed:       channelsUsed(results),
		EnhancementApplied: enhanced,
		GenerationFailed:   generationFailed,
		Results:            results,
	}
	if enhanced {
		resp.EnhancedQuery = searchQuery
	}
	return resp, nil
}
