package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

func TestTicketRouterMatchesRAGTopics(t *testing.T) {
	router := NewTicketRouter(nil, nil)

	decision := router.Decide(domain.Classification{Topics: []domain.Topic{domain.TopicConnector, domain.TopicHowTo}})

	assert.True(t, decision.UseRAG)
	assert.Equal(t, domain.ResponseRAG, decision.ResponseType)
	assert.Equal(t, domain.TopicConnector, decision.PrimaryTopic)
	assert.Equal(t, []domain.Topic{domain.TopicHowTo}, decision.MatchedTopics)
	assert.Equal(t, "Found RAG topics: How-to", decision.Reason)
}

func TestTicketRouterRoutesNonRAGTopics(t *testing.T) {
	router := NewTicketRouter(nil, nil)

	decision := router.Decide(domain.Classification{Topics: []domain.Topic{domain.TopicLineage, domain.TopicGlossary}})

	assert.False(t, decision.UseRAG)
	assert.Equal(t, domain.ResponseRouted, decision.ResponseType)
	assert.Empty(t, decision.MatchedTopics)
	assert.Equal(t, "No RAG topic match found. Classified as: Lineage, Glossary", decision.Reason)
}

func TestTicketRouterEmptyTopics(t *testing.T) {
	decision := NewTicketRouter(nil, nil).Decide(domain.Classification{})

	assert.False(t, decision.UseRAG)
	assert.Equal(t, domain.TopicUnknown, decision.PrimaryTopic)
	assert.Equal(t, "Invalid classification - no topics identified", decision.Reason)
	assert.Empty(t, decision.ClassifiedTopics)
}

func TestTicketRouterCustomRAGTopicsAreCaseInsensitive(t *testing.T) {
	router := NewTicketRouter([]string{" lineage "}, nil)

	decision := router.Decide(domain.Classification{Topics: []domain.Topic{domain.TopicLineage}})
	assert.True(t, decision.UseRAG)

	decision = router.Decide(domain.Classification{Topics: []domain.Topic{domain.TopicHowTo}})
	assert.False(t, decision.UseRAG)
}

func TestTicketRouterMessage(t *testing.T) {
	router := NewTicketRouter(nil, map[string]string{"glossary": "The governance desk will follow up."})

	single := router.Message(router.Decide(domain.Classification{Topics: []domain.Topic{domain.TopicConnector}}))
	assert.True(t, strings.HasPrefix(single, "This appears to be a data connector integration issue."))
	assert.Contains(t, single, "You should receive a response within 24 hours. Reference ID: #")

	multi := router.Message(router.Decide(domain.Classification{Topics: []domain.Topic{domain.TopicGlossary, domain.TopicLineage, domain.TopicSensitiveData}}))
	assert.True(t, strings.HasPrefix(multi, "Your inquiry covers Glossary, Lineage and Sensitive data topics. The governance desk will follow up."))

	unmapped := router.Message(domain.RoutingDecision{PrimaryTopic: "Billing", ClassifiedTopics: []domain.Topic{"Billing"}})
	assert.Contains(t, unmapped, "This has been categorized as a 'Billing' inquiry")
}

func TestTicketRouterReferenceIDIsStable(t *testing.T) {
	router := NewTicketRouter(nil, nil)
	decision := router.Decide(domain.Classification{Topics: []domain.Topic{domain.TopicLineage}})

	first := router.Message(decision)
	second := router.Message(decision)
	assert.Equal(t, first, second)

	ref := first[strings.LastIndex(first, "#")+1:]
	assert.Len(t, ref, 4)
}
