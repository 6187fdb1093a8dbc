package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

const (
	// NoRelevantInfoAnswer is returned without calling the model when
	// retrieval produced nothing to ground an answer on.
	NoRelevantInfoAnswer = "I couldn't find relevant information in the documentation to answer your question."
	// GenerationFallbackAnswer replaces the answer when the model call fails.
	GenerationFallbackAnswer = "I encountered an error while generating a response. Please try again."

	answerSystemPrompt = "You are a helpful support assistant that answers questions about the product based on the provided documentation context."
)

type SynthesizerConfig struct {
	MaxTokens   int
	Temperature float64
}

type AnswerSynthesizer struct {
	llm ports.LanguageModel
	cfg SynthesizerConfig
}

func NewAnswerSynthesizer(llm ports.LanguageModel, cfg SynthesizerConfig) *AnswerSynthesizer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &AnswerSynthesizer{llm: llm, cfg: cfg}
}

// Synthesize answers question from results. On model failure it returns
// GenerationFallbackAnswer together with an ErrGenerationFailed error.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, results []domain.RetrievalResult, conversation string) (string, error) {
	if len(results) == 0 {
		return NoRelevantInfoAnswer, nil
	}
	if s.llm == nil {
		return GenerationFallbackAnswer, domain.WrapError(domain.ErrGenerationFailed, "synthesize answer", errors.New("no language model configured"))
	}

	text, err := s.llm.Complete(ctx, ports.CompletionRequest{
		System:      answerSystemPrompt,
		User:        buildAnswerPrompt(question, results, conversation),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return GenerationFallbackAnswer, domain.WrapError(domain.ErrGenerationFailed, "synthesize answer", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return GenerationFallbackAnswer, domain.WrapError(domain.ErrGenerationFailed, "synthesize answer", errors.New("empty completion"))
	}
	return text, nil
}

func buildAnswerPrompt(question string, results []domain.RetrievalResult, conversation string) string {
	var b strings.Builder
	b.WriteString("Use the following context to answer the user's question. Be specific and accurate. ")
	b.WriteString("If the context doesn't contain enough information to fully answer the question, say so clearly.\n\n")

	if conversation = strings.TrimSpace(conversation); conversation != "" {
		b.WriteString("Previous conversation:\n")
		b.WriteString(conversation)
		b.WriteString("\n\n")
	}

	b.WriteString("Context:\n")
	for i, r := range results {
		title := r.Chunk.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "Context %d:\nSource: %s\nSearch: %s\nContent: %s\n\n", i+1, title, r.ChannelTag(), r.Chunk.Text)
	}

	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", question)
	return b.String()
}
