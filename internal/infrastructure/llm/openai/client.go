package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/resilience"
)

// Client wraps the OpenAI chat and embeddings APIs. It implements both
// ports.LanguageModel and ports.Embedder.
type Client struct {
	api        *goopenai.Client
	chatModel  string
	embedModel string
	timeout    time.Duration
	executor   *resilience.Executor
}

type Options struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
	Timeout    time.Duration
	Executor   *resilience.Executor
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "openai client", errors.New("api key is required"))
	}
	clientConfig := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		api:        goopenai.NewClientWithConfig(clientConfig),
		chatModel:  opts.ChatModel,
		embedModel: opts.EmbedModel,
		timeout:    timeout,
		executor:   opts.Executor,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.User})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := resilience.Call(ctx, c.executor, "openai.chat", func(ctx context.Context) (goopenai.ChatCompletionResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.api.CreateChatCompletion(callCtx, chatReq)
	}, classifyOpenAIError)
	if err != nil {
		return "", resilience.WrapTemporary("openai chat", err, classifyOpenAIError)
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrMalformedResponse, "openai chat", errors.New("no choices returned"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embedReq := goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(c.embedModel),
	}

	resp, err := resilience.Call(ctx, c.executor, "openai.embed", func(ctx context.Context) (goopenai.EmbeddingResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.api.CreateEmbeddings(callCtx, embedReq)
	}, classifyOpenAIError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", err, classifyOpenAIError)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "openai embed", errors.New("empty embedding response"))
	}
	return resp.Data[0].Embedding, nil
}

var classifyOpenAIError = resilience.ClassifyHTTPError(openAIStatus)

func openAIStatus(err error) (int, bool) {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
