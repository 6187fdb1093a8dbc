package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server. It implements both
// ports.LanguageModel and ports.Embedder.
type Client struct {
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL, chatModel, embedModel string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	payload := chatRequest{
		Model:  c.chatModel,
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		payload.Options["num_predict"] = req.MaxTokens
	}
	if req.JSON {
		payload.Format = "json"
	}
	if strings.TrimSpace(req.System) != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.User})

	out, err := resilience.Call(ctx, c.executor, "ollama.chat", func(ctx context.Context) (chatResponse, error) {
		var resp chatResponse
		err := c.postJSON(ctx, "/api/chat", payload, &resp, "chat")
		return resp, err
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama chat", err)
	}
	return strings.TrimSpace(out.Message.Content), nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": c.embedModel,
		"input": []string{text},
	}

	type embedResponse struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	out, err := resilience.Call(ctx, c.executor, "ollama.embed", func(ctx context.Context) (embedResponse, error) {
		var resp embedResponse
		err := c.postJSON(ctx, "/api/embed", request, &resp, "embed")
		return resp, err
	}, classifyOllamaError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama embed", err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "ollama embed", errors.New("empty embedding result"))
	}
	return out.Embeddings[0], nil
}
