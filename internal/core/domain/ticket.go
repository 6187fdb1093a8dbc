package domain

import "strings"

type Topic string

const (
	TopicHowTo         Topic = "How-to"
	TopicProduct       Topic = "Product"
	TopicConnector     Topic = "Connector"
	TopicLineage       Topic = "Lineage"
	TopicAPISDK        Topic = "API/SDK"
	TopicSSO           Topic = "SSO"
	TopicGlossary      Topic = "Glossary"
	TopicBestPractices Topic = "Best practices"
	TopicSensitiveData Topic = "Sensitive data"
	TopicUnknown       Topic = "Unknown"
)

// KnownTopics lists the topic tags the classifier may assign.
var KnownTopics = []Topic{
	TopicHowTo,
	TopicProduct,
	TopicConnector,
	TopicLineage,
	TopicAPISDK,
	TopicSSO,
	TopicGlossary,
	TopicBestPractices,
	TopicSensitiveData,
}

// ParseTopic matches raw case-insensitively against KnownTopics.
func ParseTopic(raw string) (Topic, bool) {
	raw = strings.TrimSpace(raw)
	for _, t := range KnownTopics {
		if strings.EqualFold(string(t), raw) {
			return t, true
		}
	}
	return TopicUnknown, false
}

type Sentiment string

const (
	SentimentFrustrated Sentiment = "Frustrated"
	SentimentCurious    Sentiment = "Curious"
	SentimentAngry      Sentiment = "Angry"
	SentimentNeutral    Sentiment = "Neutral"
)

func ParseSentiment(raw string) (Sentiment, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "frustrated":
		return SentimentFrustrated, true
	case "curious":
		return SentimentCurious, true
	case "angry":
		return SentimentAngry, true
	case "neutral":
		return SentimentNeutral, true
	default:
		return SentimentNeutral, false
	}
}

type Priority string

const (
	PriorityHigh   Priority = "P0 (High)"
	PriorityMedium Priority = "P1 (Medium)"
	PriorityLow    Priority = "P2 (Low)"
)

// ParsePriority accepts both the full label and the bare P0/P1/P2 code.
func ParsePriority(raw string) (Priority, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(v, "P0"), v == "HIGH":
		return PriorityHigh, true
	case strings.HasPrefix(v, "P1"), v == "MEDIUM":
		return PriorityMedium, true
	case strings.HasPrefix(v, "P2"), v == "LOW":
		return PriorityLow, true
	default:
		return PriorityMedium, false
	}
}

type Classification struct {
	Topics    []Topic   `json:"topic_tags"`
	Sentiment Sentiment `json:"sentiment"`
	Priority  Priority  `json:"priority"`
	Fallback  bool      `json:"fallback,omitempty"`
}

// FallbackClassification is returned whenever the model output cannot be used.
func FallbackClassification() Classification {
	return Classification{
		Topics:    []Topic{TopicUnknown},
		Sentiment: SentimentNeutral,
		Priority:  PriorityMedium,
		Fallback:  true,
	}
}

type Ticket struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type ClassifiedTicket struct {
	Ticket
	Classification Classification `json:"classification"`
}

type ResponseType string

const (
	ResponseRAG    ResponseType = "rag"
	ResponseRouted ResponseType = "routing"
)

type RoutingDecision struct {
	UseRAG           bool         `json:"should_use_rag"`
	ResponseType     ResponseType `json:"response_type"`
	Reason           string       `json:"reason"`
	PrimaryTopic     Topic        `json:"primary_topic"`
	ClassifiedTopics []Topic      `json:"classified_topics"`
	MatchedTopics    []Topic      `json:"matched_topics"`
}

// SupportReply is the outcome of answering or routing one support request.
type SupportReply struct {
	SessionID      string             `json:"session_id"`
	Classification Classification     `json:"classification"`
	Decision       RoutingDecision    `json:"decision"`
	Message        string             `json:"message"`
	Retrieval      *RetrievalResponse `json:"retrieval,omitempty"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ClassificationSummary is the distribution of labels over a batch of tickets.
type ClassificationSummary struct {
	Total      int          `json:"total"`
	Fallbacks  int          `json:"fallbacks"`
	Topics     []LabelCount `json:"topics"`
	Sentiments []LabelCount `json:"sentiments"`
	Priorities []LabelCount `json:"priorities"`
}
