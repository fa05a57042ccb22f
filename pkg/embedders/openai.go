package embedders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/httpclient"
)

// OpenAIEmbedder calls an OpenAI-compatible hosted embeddings API with a
// configured model name and API key.
type OpenAIEmbedder struct {
	cfg      *config.EmbedderConfig
	client   *httpclient.Client
	endpoint string
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewOpenAIEmbedderFromConfig(cfg *config.EmbedderConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for hosted embeddings")
	}
	return &OpenAIEmbedder{
		cfg:      cfg,
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + "/embeddings",
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Second),
		),
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.Timeout)*time.Second)
	defer cancel()

	slog.Debug("hosted embedding request", "model", e.cfg.Model, "text_length", len(text))

	headers := map[string]string{"Authorization": "Bearer " + e.cfg.APIKey}
	resp, err := e.client.PostJSON(ctx, e.endpoint, openAIEmbedRequest{
		Model: e.cfg.Model,
		Input: []string{text},
	}, headers)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, newEmbeddingError(KindUnavailable, e.endpoint,
				fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body)))
		}
		return nil, classifyTransportError(e.endpoint, err)
	}
	defer resp.Body.Close()

	var decoded openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, newEmbeddingError(KindBadResponse, e.endpoint, fmt.Errorf("failed to decode response: %w", err))
	}
	if decoded.Error != nil {
		return nil, newEmbeddingError(KindBadResponse, e.endpoint,
			fmt.Errorf("%s: %s", decoded.Error.Type, decoded.Error.Message))
	}
	if len(decoded.Data) == 0 || len(decoded.Data[0].Embedding) == 0 {
		return nil, newEmbeddingError(KindEmpty, e.endpoint, fmt.Errorf("service returned no embedding"))
	}
	return decoded.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.cfg.Dimension
}

func (e *OpenAIEmbedder) Model() string {
	return e.cfg.Model
}
