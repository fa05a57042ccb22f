package embedders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/httpclient"
)

// ExternalEmbedder POSTs {"text": ...} to a configured endpoint. The service
// answers with either an "embedding" or a "vector" field; both are accepted.
type ExternalEmbedder struct {
	cfg    *config.EmbedderConfig
	client *httpclient.Client
}

type externalEmbedRequest struct {
	Text string `json:"text"`
}

type externalEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Vector    []float32 `json:"vector"`
}

func NewExternalEmbedderFromConfig(cfg *config.EmbedderConfig) (*ExternalEmbedder, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("embedding url is required")
	}
	return &ExternalEmbedder{
		cfg: cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Second),
		),
	}, nil
}

func (e *ExternalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.Timeout)*time.Second)
	defer cancel()

	slog.Debug("external embedding request", "url", e.cfg.URL, "text_length", len(text))

	resp, err := e.client.PostJSON(ctx, e.cfg.URL, externalEmbedRequest{Text: text}, nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, newEmbeddingError(KindUnavailable, e.cfg.URL,
				fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body)))
		}
		return nil, classifyTransportError(e.cfg.URL, err)
	}
	defer resp.Body.Close()

	var decoded externalEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, newEmbeddingError(KindBadResponse, e.cfg.URL, fmt.Errorf("failed to decode response: %w", err))
	}

	vector := decoded.Embedding
	if len(vector) == 0 {
		vector = decoded.Vector
	}
	if len(vector) == 0 {
		return nil, newEmbeddingError(KindEmpty, e.cfg.URL, fmt.Errorf("service returned no embedding"))
	}
	return vector, nil
}

func (e *ExternalEmbedder) Dimension() int {
	return e.cfg.Dimension
}

func (e *ExternalEmbedder) Model() string {
	if e.cfg.Model != "" {
		return e.cfg.Model
	}
	return "external"
}
