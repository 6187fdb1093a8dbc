package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

// SearchIssueMessage is shown when a documentation answer was wanted but the
// retrieval pipeline could not produce one.
const SearchIssueMessage = "I encountered an issue searching our documentation. Your question has been logged and our support team will get back to you within 24 hours."

// SupportDeskUseCase classifies an incoming request, then either answers it
// from documentation or hands it to a team.
type SupportDeskUseCase struct {
	classifier ports.TicketClassifier
	router     *TicketRouter
	retrieval  ports.RetrievalService
	sessions   ports.SessionStore
	observer   ports.PipelineObserver
}

func NewSupportDeskUseCase(
	classifier ports.TicketClassifier,
	router *TicketRouter,
	retrieval ports.RetrievalService,
	sessions ports.SessionStore,
	observer ports.PipelineObserver,
) *SupportDeskUseCase {
	if router == nil {
		router = NewTicketRouter(nil, nil)
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &SupportDeskUseCase{
		classifier: classifier,
		router:     router,
		retrieval:  retrieval,
		sessions:   sessions,
		observer:   observer,
	}
}

func (uc *SupportDeskUseCase) Respond(ctx context.Context, content, sessionID string) (*domain.SupportReply, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "support respond", errors.New("content is empty"))
	}

	subject, body := ParseTicketContent(content)
	cls := domain.FallbackClassification()
	if uc.classifier != nil {
		cls = uc.classifier.Classify(ctx, subject, body)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decision := uc.router.Decide(cls)
	uc.observer.ObserveRouting(decision)

	reply := &domain.SupportReply{
		SessionID:      sessionID,
		Classification: cls,
		Decision:       decision,
	}

	if decision.UseRAG && uc.retrieval != nil {
		resp, err := uc.retrieval.Handle(ctx, content, sessionID)
		switch {
		case err == nil:
			reply.SessionID = resp.SessionID
			reply.Message = resp.Answer
			reply.Retrieval = resp
			return reply, nil
		case domain.IsKind(err, domain.ErrInvalidInput), ctx.Err() != nil:
			return nil, err
		default:
			slog.Error("support_retrieval_failed", "session_id", sessionID, "error", err)
			reply.Message = SearchIssueMessage
		}
	} else {
		reply.Message = uc.router.Message(decision)
	}

	if uc.sessions != nil {
		reply.SessionID = uc.sessions.AppendTurn(reply.SessionID, content, reply.Message)
	}
	slog.Info("support_request_handled",
		"session_id", reply.SessionID,
		"response_type", decision.ResponseType,
		"primary_topic", decision.PrimaryTopic,
		"fallback_classification", cls.Fallback,
	)
	return reply, nil
}
