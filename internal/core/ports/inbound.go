package ports

import (
	"context"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// RetrievalService is the inbound contract for retrieval-augmented answers.
type RetrievalService interface {
	Handle(ctx context.Context, query, sessionID string) (*domain.RetrievalResponse, error)
}

// SupportDesk classifies a support request and either answers or routes it.
type SupportDesk interface {
	Respond(ctx context.Context, content, sessionID string) (*domain.SupportReply, error)
}

// TicketClassifier labels a ticket with topics, sentiment and priority.
type TicketClassifier interface {
	Classify(ctx context.Context, subject, body string) domain.Classification
}

// SessionManager is the read/admin view over conversation sessions.
type SessionManager interface {
	SessionStore
	Info(sessionID string) (domain.SessionInfo, bool)
	Clear(sessionID string) bool
	Delete(sessionID string) bool
	ListActive() []string
	Stats() domain.MemoryStats
	CleanupStats() domain.CleanupStats
	ForceSweep() int
}

// IndexRebuilder rebuilds the keyword index from the corpus store.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}
