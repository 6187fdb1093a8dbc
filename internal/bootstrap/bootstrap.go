package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpadapter "github.com/kanugurajesh/Assistly/internal/adapters/http"
	mcpadapter "github.com/kanugurajesh/Assistly/internal/adapters/mcp"
	"github.com/kanugurajesh/Assistly/internal/config"
	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
	"github.com/kanugurajesh/Assistly/internal/core/usecase"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/keyword"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/llm/ollama"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/llm/openai"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/queue/nats"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/repository/postgres"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/resilience"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/session"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/vector/qdrant"
	"github.com/kanugurajesh/Assistly/internal/observability/metrics"
)

// App wires the answering and ticket pipeline for one process. The session
// store is created here and injected; nothing is a package-level singleton.
type App struct {
	Config config.Config

	Metrics      *metrics.HTTPServerMetrics
	IndexMetrics *metrics.IndexMetrics

	Sessions   *session.Store
	Keyword    *keyword.Holder
	Vector     *qdrant.Client
	Retrieval  *usecase.QueryUseCase
	Classifier *usecase.TicketClassifier
	Router     *usecase.TicketRouter
	Support    *usecase.SupportDeskUseCase
	Bulk       *usecase.BulkClassifier
	Index      *usecase.IndexRebuildUseCase
	Tickets    *postgres.TicketRepository

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	httpMetrics := metrics.NewHTTPServerMetrics(service)
	indexMetrics := metrics.NewIndexMetrics(service, httpMetrics.Registry())
	executor := NewExecutor(cfg, httpMetrics)

	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llm, embedder, err := NewLanguageModels(cfg, executor)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var events *nats.Bus
	if cfg.NATSEnabled {
		events, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init corpus events: %w", err)
		}
	}

	sessions := session.NewStore(session.Options{
		MaxMessages:         cfg.SessionMaxMessages,
		Timeout:             cfg.SessionTimeout(),
		AutoCleanupInterval: cfg.SessionAutoCleanupInterval,
	})
	httpMetrics.RegisterSessionGauges(sessions.Snapshot)

	corpus := postgres.NewCorpusRepository(db, executor)
	holder := keyword.NewHolder(corpus)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
		APIKey:   cfg.QdrantAPIKey,
		Executor: executor,
	})

	enhancer := usecase.NewQueryEnhancer(llm, usecase.EnhancerConfig{
		Enabled:     cfg.RAGEnableEnhancement,
		MaxTokens:   cfg.RAGEnhanceMaxTokens,
		Temperature: cfg.RAGEnhanceTemperature,
	}, httpMetrics)
	fusion := usecase.NewFusionEngine(usecase.NewVectorSearchClient(embedder, vectorDB), holder, usecase.FusionConfig{
		TopK:              cfg.RAGTopK,
		ScoreThreshold:    cfg.RAGScoreThreshold,
		VectorWeight:      cfg.RAGVectorWeight,
		KeywordWeight:     cfg.RAGKeywordWeight,
		EnableHybrid:      cfg.RAGEnableHybrid,
		ChannelCandidates: cfg.RAGChannelCandidates,
		EnableRerank:      cfg.RAGEnableRerank,
	}, httpMetrics)
	synthesizer := usecase.NewAnswerSynthesizer(llm, usecase.SynthesizerConfig{
		MaxTokens:   cfg.RAGAnswerMaxTokens,
		Temperature: cfg.RAGAnswerTemperature,
	})
	retrieval := usecase.NewQueryUseCase(enhancer, fusion, synthesizer, sessions, cfg.RAGContextPairs, httpMetrics)

	classifier := newTicketClassifier(cfg, llm, httpMetrics)
	router := usecase.NewTicketRouter(cfg.RoutingRAGTopics, cfg.RoutingTeamMessages)
	support := usecase.NewSupportDeskUseCase(classifier, router, retrieval, sessions, httpMetrics)

	var corpusEvents ports.CorpusEvents
	if events != nil {
		corpusEvents = events
	}
	index := usecase.NewIndexRebuildUseCase(holder, corpusEvents, indexMetrics, time.Duration(cfg.KeywordRebuildTimeoutSec)*time.Second)

	return &App{
		Config:       cfg,
		Metrics:      httpMetrics,
		IndexMetrics: indexMetrics,
		Sessions:     sessions,
		Keyword:      holder,
		Vector:       vectorDB,
		Retrieval:    retrieval,
		Classifier:   classifier,
		Router:       router,
		Support:      support,
		Bulk:         usecase.NewBulkClassifier(classifier, cfg.BulkClassifyWorkers),
		Index:        index,
		Tickets:      postgres.NewTicketRepository(db),
		closeFn: func() {
			if events != nil {
				events.Close()
			}
			_ = db.Close()
		},
	}, nil
}

// HTTPHandler is the full API surface including /metrics and readiness.
func (a *App) HTTPHandler() http.Handler {
	return httpadapter.NewRouter(a.Config, httpadapter.Dependencies{
		Retrieval:  a.Retrieval,
		Support:    a.Support,
		Classifier: a.Classifier,
		Sessions:   a.Sessions,
		Index:      a.Index,
		Readiness:  a.Ready,
		Metrics:    a.Metrics,
	}).Handler()
}

func (a *App) MCPServer() *mcpadapter.Server {
	return mcpadapter.NewServer(a.Retrieval, a.Classifier, a.Support)
}

// Ready checks that the vector collection answers. The keyword index may be
// empty; retrieval then runs on the vector channel alone.
func (a *App) Ready(ctx context.Context) error {
	info, err := a.Vector.Collection(ctx)
	if err != nil {
		return err
	}
	if info.Status != "" && info.Status != "green" && info.Status != "yellow" {
		return domain.WrapError(domain.ErrTemporary, "readiness", fmt.Errorf("qdrant collection status %s", info.Status))
	}
	return nil
}

// StartBackground runs the startup index build, the session janitor and the
// corpus event listener until ctx is done.
func (a *App) StartBackground(ctx context.Context) {
	if a.Config.KeywordRebuildOnStartup {
		go func() {
			if _, err := a.Index.Startup(ctx); err != nil {
				slog.Warn("keyword_index_startup_failed", "error", err)
			}
		}()
	}
	if a.Config.SessionJanitorIntervalSec > 0 {
		go a.Sessions.Run(ctx, time.Duration(a.Config.SessionJanitorIntervalSec)*time.Second)
	}
	go func() {
		if err := a.Index.Listen(ctx); err != nil {
			slog.Error("corpus_event_listener_stopped", "error", err)
		}
	}()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewExecutor builds the shared resilience executor. observer may be nil.
func NewExecutor(cfg config.Config, observer resilience.Observer) *resilience.Executor {
	executor := resilience.NewExecutor(resilience.ConfigFromSettings(
		cfg.ResilienceRetryMaxAttempts,
		cfg.ResilienceBreakerEnabled,
		cfg.ResilienceBreakerMinRequest,
	))
	if observer != nil {
		executor.WithObserver(observer)
	}
	return executor
}

// NewLanguageModels returns the completion and embedding backends selected
// by LLM_PROVIDER.
func NewLanguageModels(cfg config.Config, executor *resilience.Executor) (ports.LanguageModel, ports.Embedder, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{Executor: executor})
		return client, client, nil
	case config.ProviderOpenAI:
		client, err := openai.New(openai.Options{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			ChatModel:  cfg.OpenAIModel,
			EmbedModel: cfg.OpenAIEmbedModel,
			Executor:   executor,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init openai client: %w", err)
		}
		return client, client, nil
	default:
		return nil, nil, domain.WrapError(domain.ErrConfiguration, "select llm provider", fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider))
	}
}

// NewTicketClassifier builds a classifier that needs only the language model,
// for tools that do not touch the corpus.
func NewTicketClassifier(cfg config.Config, observer ports.PipelineObserver) (*usecase.TicketClassifier, error) {
	var executorObserver resilience.Observer
	if o, ok := observer.(resilience.Observer); ok {
		executorObserver = o
	}
	llm, _, err := NewLanguageModels(cfg, NewExecutor(cfg, executorObserver))
	if err != nil {
		return nil, err
	}
	return newTicketClassifier(cfg, llm, observer), nil
}

func newTicketClassifier(cfg config.Config, llm ports.LanguageModel, observer ports.PipelineObserver) *usecase.TicketClassifier {
	return usecase.NewTicketClassifier(llm, usecase.ClassifierConfig{
		MaxTokens:   cfg.ClassifyMaxTokens,
		Temperature: cfg.ClassifyTemperature,
	}, observer)
}

// OpenStore opens Postgres and ensures the schema, for processes that need
// the database but not the answering pipeline.
func OpenStore(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}
