package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// fileOverlay is the YAML shape of CONFIG_FILE. Zero values leave the
// environment-derived settings untouched.
type fileOverlay struct {
	Retrieval struct {
		TopK             *int     `yaml:"top_k"`
		ScoreThreshold   *float64 `yaml:"score_threshold"`
		VectorWeight     *float64 `yaml:"vector_weight"`
		KeywordWeight    *float64 `yaml:"keyword_weight"`
		EnableHybrid     *bool    `yaml:"enable_hybrid"`
		EnableEnhance    *bool    `yaml:"enable_query_enhancement"`
		EnableRerank     *bool    `yaml:"enable_rerank"`
		ContextPairs     *int     `yaml:"context_pairs"`
		AnswerMaxTokens  *int     `yaml:"answer_max_tokens"`
		AnswerTemp       *float64 `yaml:"answer_temperature"`
		ClassifyTemp     *float64 `yaml:"classify_temperature"`
		ClassifyMaxToken *int     `yaml:"classify_max_tokens"`
	} `yaml:"retrieval"`
	Sessions struct {
		MaxMessages         *int `yaml:"max_messages"`
		TimeoutSeconds      *int `yaml:"timeout_seconds"`
		AutoCleanupInterval *int `yaml:"auto_cleanup_interval"`
	} `yaml:"sessions"`
	Routing struct {
		RAGTopics    []string          `yaml:"rag_topics"`
		TeamMessages map[string]string `yaml:"team_messages"`
	} `yaml:"routing"`
}

// LoadWithFile loads the environment config and applies CONFIG_FILE on top.
func LoadWithFile() (Config, error) {
	cfg := Load()
	if strings.TrimSpace(cfg.ConfigFile) == "" {
		return cfg, nil
	}
	if err := cfg.ApplyFile(cfg.ConfigFile); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.WrapError(domain.ErrConfiguration, "read config file", err)
	}
	return c.applyYAML(raw)
}

func (c *Config) applyYAML(raw []byte) error {
	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return domain.WrapError(domain.ErrConfiguration, "parse config file", fmt.Errorf("yaml: %w", err))
	}

	r := overlay.Retrieval
	setInt(&c.RAGTopK, r.TopK)
	setFloat(&c.RAGScoreThreshold, r.ScoreThreshold)
	setFloat(&c.RAGVectorWeight, r.VectorWeight)
	setFloat(&c.RAGKeywordWeight, r.KeywordWeight)
	setBool(&c.RAGEnableHybrid, r.EnableHybrid)
	setBool(&c.RAGEnableEnhancement, r.EnableEnhance)
	setBool(&c.RAGEnableRerank, r.EnableRerank)
	setInt(&c.RAGContextPairs, r.ContextPairs)
	setInt(&c.RAGAnswerMaxTokens, r.AnswerMaxTokens)
	setFloat(&c.RAGAnswerTemperature, r.AnswerTemp)
	setFloat(&c.ClassifyTemperature, r.ClassifyTemp)
	setInt(&c.ClassifyMaxTokens, r.ClassifyMaxToken)

	s := overlay.Sessions
	setInt(&c.SessionMaxMessages, s.MaxMessages)
	setInt(&c.SessionTimeoutSeconds, s.TimeoutSeconds)
	setInt(&c.SessionAutoCleanupInterval, s.AutoCleanupInterval)

	if len(overlay.Routing.RAGTopics) > 0 {
		c.RoutingRAGTopics = overlay.Routing.RAGTopics
	}
	if len(overlay.Routing.TeamMessages) > 0 {
		c.RoutingTeamMessages = overlay.Routing.TeamMessages
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
