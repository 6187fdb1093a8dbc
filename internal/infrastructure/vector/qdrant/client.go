package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/resilience"
)

// Client searches a Qdrant collection over its REST API.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	APIKey   string
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL, collection string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     opts.APIKey,
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
	}
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	ScoreThreshold *float64  `json:"score_threshold,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search returns up to limit nearest chunks with score >= scoreThreshold.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	reqBody := searchRequest{
		Vector:      queryVector,
		Limit:       limit,
		WithPayload: true,
	}
	if scoreThreshold > 0 {
		reqBody.ScoreThreshold = &scoreThreshold
	}

	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	resp, err := resilience.Call(ctx, c.executor, "qdrant.search", func(ctx context.Context) (searchResponse, error) {
		var out searchResponse
		err := c.doJSON(ctx, http.MethodPost, path, reqBody, &out, "search")
		return out, err
	}, classifyQdrantError)
	if err != nil {
		return nil, resilience.WrapTemporary("qdrant search", err, classifyQdrantError)
	}

	out := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.ScoredChunk{
			Chunk: chunkFromPayload(r.ID, r.Payload),
			Score: r.Score,
		})
	}
	return out, nil
}

// CollectionInfo is the subset of the collection description used for
// readiness reporting.
type CollectionInfo struct {
	Status       string `json:"status"`
	PointsCount  int64  `json:"points_count"`
	VectorsCount int64  `json:"vectors_count"`
}

func (c *Client) Collection(ctx context.Context) (CollectionInfo, error) {
	var resp struct {
		Result CollectionInfo `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s", c.collection)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, "collection info"); err != nil {
		return CollectionInfo{}, resilience.WrapTemporary("qdrant collection info", err, classifyQdrantError)
	}
	return resp.Result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("qdrant", operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

var classifyQdrantError = resilience.ClassifyHTTPError(nil)

func chunkFromPayload(id any, payload map[string]any) domain.Chunk {
	chunk := domain.Chunk{
		ID:         getStringPayload(payload, "chunk_id"),
		Text:       getStringPayload(payload, "text"),
		Title:      getStringPayload(payload, "title"),
		SourceURL:  getStringPayload(payload, "source_url"),
		DocType:    getStringPayload(payload, "doc_type"),
		QualityTag: getStringPayload(payload, "quality"),
	}
	if chunk.ID == "" && id != nil {
		chunk.ID = formatPayloadValue(id)
	}
	return chunk
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return formatPayloadValue(v)
}

func formatPayloadValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; point ids are integers.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
