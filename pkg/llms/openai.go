package llms

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

// OpenAIProvider calls an OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	cfg      *config.LLMConfig
	client   *httpclient.Client
	endpoint string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewOpenAIProviderFromConfig(cfg *config.LLMConfig) (*OpenAIProvider, error) {
	return &OpenAIProvider{
		cfg:      cfg,
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions",
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(2*time.Second),
		),
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, system, user string) (*Generation, error) {
	start := time.Now()

	request := openAIRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	headers := map[string]string{}
	if p.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.cfg.APIKey
	}

	resp, err := p.client.PostJSON(ctx, p.endpoint, request, headers)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, &LLMError{
				Kind:     KindBadStatus,
				Endpoint: p.endpoint,
				Message:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
				Err:      err,
			}
		}
		return nil, &LLMError{
			Kind:     classifyTransportError(err),
			Endpoint: p.endpoint,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	var decoded openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &LLMError{Kind: KindBadResponse, Endpoint: p.endpoint, Message: "failed to decode response", Err: err}
	}
	if decoded.Error != nil {
		return nil, &LLMError{
			Kind:     KindBadStatus,
			Endpoint: p.endpoint,
			Message:  fmt.Sprintf("%s: %s", decoded.Error.Type, decoded.Error.Message),
		}
	}
	if len(decoded.Choices) == 0 {
		return nil, &LLMError{Kind: KindBadResponse, Endpoint: p.endpoint, Message: "response contained no choices"}
	}

	model := decoded.Model
	if model == "" {
		model = p.cfg.Model
	}

	slog.Debug("generation complete",
		"model", model,
		"duration", time.Since(start),
		"total_tokens", decoded.Usage.TotalTokens)

	return &Generation{
		Text:  decoded.Choices[0].Message.Content,
		Model: model,
		Usage: decoded.Usage,
	}, nil
}

func (p *OpenAIProvider) Model() string {
	return p.cfg.Model
}
