package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

const classifySystemPrompt = "You are an AI assistant that classifies customer support tickets for a data catalog platform. Always respond with only valid JSON."

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

type ClassifierConfig struct {
	MaxTokens   int
	Temperature float64
}

type TicketClassifier struct {
	llm      ports.LanguageModel
	cfg      ClassifierConfig
	observer ports.PipelineObserver
}

func NewTicketClassifier(llm ports.LanguageModel, cfg ClassifierConfig, observer ports.PipelineObserver) *TicketClassifier {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &TicketClassifier{llm: llm, cfg: cfg, observer: observer}
}

// Classify never fails. Backend errors and unusable output both yield
// domain.FallbackClassification.
func (c *TicketClassifier) Classify(ctx context.Context, subject, body string) domain.Classification {
	if c.llm == nil {
		c.observer.ObserveClassification(true)
		return domain.FallbackClassification()
	}

	raw, err := c.llm.Complete(ctx, ports.CompletionRequest{
		System:      classifySystemPrompt,
		User:        buildClassificationPrompt(subject, body),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		JSON:        true,
	})
	if err != nil {
		slog.Warn("ticket_classification_failed", "error", err)
		c.observer.ObserveClassification(true)
		return domain.FallbackClassification()
	}

	cls, err := parseClassification(raw)
	if err != nil {
		slog.Warn("ticket_classification_malformed", "error", err, "raw", truncateForLog(raw, 200))
		c.observer.ObserveClassification(true)
		return domain.FallbackClassification()
	}
	c.observer.ObserveClassification(false)
	return cls
}

func parseClassification(raw string) (domain.Classification, error) {
	content := strings.TrimSpace(raw)
	if m := codeFencePattern.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	content = extractJSONObject(content)

	var payload struct {
		TopicTags []string `json:"topic_tags"`
		Sentiment string   `json:"sentiment"`
		Priority  string   `json:"priority"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.Classification{}, domain.WrapError(domain.ErrMalformedResponse, "parse classification", err)
	}

	cls := domain.Classification{}
	seen := make(map[domain.Topic]struct{}, len(payload.TopicTags))
	for _, tag := range payload.TopicTags {
		topic, ok := domain.ParseTopic(tag)
		if !ok {
			continue
		}
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		cls.Topics = append(cls.Topics, topic)
	}
	if len(cls.Topics) == 0 {
		cls.Topics = []domain.Topic{domain.TopicUnknown}
	}
	cls.Sentiment, _ = domain.ParseSentiment(payload.Sentiment)
	cls.Priority, _ = domain.ParsePriority(payload.Priority)

	if len(payload.TopicTags) == 0 && payload.Sentiment == "" && payload.Priority == "" {
		return domain.Classification{}, domain.WrapError(domain.ErrMalformedResponse, "parse classification", errors.New("no classification fields"))
	}
	return cls, nil
}

// ParseTicketContent splits "Subject: ...\n\nbody" into its parts. Content
// without the prefix is treated as body only.
func ParseTicketContent(content string) (subject, body string) {
	if !strings.HasPrefix(content, "Subject: ") {
		return "", content
	}
	first, rest, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(strings.TrimPrefix(first, "Subject: ")), strings.TrimSpace(rest)
}

func buildClassificationPrompt(subject, body string) string {
	var b strings.Builder
	b.WriteString("Analyze the following ticket and provide a classification.\n\n")
	fmt.Fprintf(&b, "Subject: %s\nBody: %s\n\n", subject, body)
	b.WriteString(`Provide your analysis in the following JSON format:
{"topic_tags": ["tag1", "tag2"], "sentiment": "sentiment_value", "priority": "priority_level"}

Topic Tags (choose relevant ones):
- How-to: General usage questions
- Product: Core product features and functionality
- Connector: Data source connections and integrations
- Lineage: Data lineage and dependency tracking
- API/SDK: Programming interfaces and development tools
- SSO: Single sign-on and authentication
- Glossary: Business glossary and term management
- Best practices: Recommendations and methodologies
- Sensitive data: Data privacy and security concerns

Sentiment (choose one): Frustrated, Curious, Angry, Neutral

Priority (choose one):
- P0 (High): Critical issues, production blockers, urgent business needs
- P1 (Medium): Important but not critical, moderate business impact
- P2 (Low): Nice to have, low business impact, general questions

Respond with only the JSON object, no additional text.`)
	return b.String()
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func truncateForLog(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
