package usecase

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// DefaultRAGTopics are the topics answered from documentation instead of
// being handed to a specialist team.
var DefaultRAGTopics = []string{"How-to", "Product", "Best practices", "API/SDK", "SSO"}

var defaultTeamMessages = map[domain.Topic]string{
	domain.TopicConnector:     "This appears to be a data connector integration issue. Our Connectors team specializes in setting up and troubleshooting data source connections. They will help you with authentication, permissions, and connection configuration.",
	domain.TopicLineage:       "This question is about data lineage and dependency tracking. Our Data Platform team handles lineage-related inquiries and can assist with lineage configuration, troubleshooting, and best practices.",
	domain.TopicGlossary:      "This relates to business glossary and term management. Our Data Governance team manages glossary features and can help with term definitions, hierarchies, and metadata management.",
	domain.TopicSensitiveData: "This involves data privacy and security concerns. Our Security team will review this inquiry to ensure proper handling of sensitive data requirements and compliance considerations.",
	domain.TopicUnknown:       "We're analyzing the specifics of your request to route it to the most appropriate specialist team.",
}

// TicketRouter decides whether a classified request is answered by retrieval
// or routed to a team.
type TicketRouter struct {
	ragTopics    []string
	teamMessages map[string]string
}

// NewTicketRouter builds a router. Empty ragTopics selects DefaultRAGTopics;
// overrides replace the team message for a topic, matched case-insensitively.
func NewTicketRouter(ragTopics []string, overrides map[string]string) *TicketRouter {
	if len(ragTopics) == 0 {
		ragTopics = DefaultRAGTopics
	}
	messages := make(map[string]string, len(defaultTeamMessages)+len(overrides))
	for topic, msg := range defaultTeamMessages {
		messages[strings.ToLower(string(topic))] = msg
	}
	for topic, msg := range overrides {
		if strings.TrimSpace(msg) == "" {
			continue
		}
		messages[strings.ToLower(strings.TrimSpace(topic))] = msg
	}

	normalized := make([]string, 0, len(ragTopics))
	for _, topic := range ragTopics {
		if topic = strings.TrimSpace(topic); topic != "" {
			normalized = append(normalized, topic)
		}
	}
	return &TicketRouter{ragTopics: normalized, teamMessages: messages}
}

func (r *TicketRouter) Decide(cls domain.Classification) domain.RoutingDecision {
	if len(cls.Topics) == 0 {
		slog.Warn("routing_without_topics")
		return domain.RoutingDecision{
			UseRAG:           false,
			ResponseType:     domain.ResponseRouted,
			Reason:           "Invalid classification - no topics identified",
			PrimaryTopic:     domain.TopicUnknown,
			ClassifiedTopics: []domain.Topic{},
			MatchedTopics:    []domain.Topic{},
		}
	}

	matched := make([]domain.Topic, 0, len(cls.Topics))
	for _, topic := range cls.Topics {
		if r.isRAGTopic(topic) {
			matched = append(matched, topic)
		}
	}

	decision := domain.RoutingDecision{
		UseRAG:           len(matched) > 0,
		ResponseType:     domain.ResponseRouted,
		PrimaryTopic:     cls.Topics[0],
		ClassifiedTopics: append([]domain.Topic(nil), cls.Topics...),
		MatchedTopics:    matched,
	}
	if decision.UseRAG {
		decision.ResponseType = domain.ResponseRAG
		decision.Reason = "Found RAG topics: " + joinTopics(matched, ", ")
	} else {
		decision.Reason = "No RAG topic match found. Classified as: " + joinTopics(cls.Topics, ", ")
	}
	slog.Debug("routing_decided", "use_rag", decision.UseRAG, "reason", decision.Reason)
	return decision
}

// Message renders the hand-off text shown when a request is routed to a team.
func (r *TicketRouter) Message(decision domain.RoutingDecision) string {
	primary := decision.PrimaryTopic
	if primary == "" {
		primary = domain.TopicUnknown
	}
	specific, ok := r.teamMessages[strings.ToLower(string(primary))]
	if !ok {
		specific = fmt.Sprintf("This has been categorized as a '%s' inquiry and will be handled by our specialized team.", primary)
	}

	topics := decision.ClassifiedTopics
	if len(topics) > 1 {
		return fmt.Sprintf("Your inquiry covers %s topics. %s You should receive a response within 24 hours. Reference ID: #%04d",
			humanJoin(topics), specific, referenceID(joinTopics(topics, ",")))
	}
	return fmt.Sprintf("%s You should receive a response within 24 hours. Reference ID: #%04d", specific, referenceID(string(primary)))
}

func (r *TicketRouter) isRAGTopic(topic domain.Topic) bool {
	for _, candidate := range r.ragTopics {
		if strings.EqualFold(strings.TrimSpace(string(topic)), candidate) {
			return true
		}
	}
	return false
}

func referenceID(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % 10000
}

func joinTopics(topics []domain.Topic, sep string) string {
	parts := make([]string, len(topics))
	for i, t := range topics {
		parts[i] = string(t)
	}
	return strings.Join(parts, sep)
}

// humanJoin renders [A B C] as "A, B and C".
func humanJoin(topics []domain.Topic) string {
	if len(topics) == 1 {
		return string(topics[0])
	}
	return joinTopics(topics[:len(topics)-1], ", ") + " and " + string(topics[len(topics)-1])
}
