package databases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/httpclient"
)

// httpProvider speaks the vector store's REST contract:
//
//	POST /collections/{name}/points/search  {vector, limit, with_payload, score_threshold?}
//	POST /collections/{name}/points/scroll  {limit, offset, with_payload}
type httpProvider struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
	timeout time.Duration
}

// NewHTTPProviderFromConfig creates a REST vector store client.
func NewHTTPProviderFromConfig(cfg *config.VectorStoreConfig) (Provider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("vector store url is required")
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	return &httpProvider{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
			httpclient.WithMaxRetries(1),
		),
	}, nil
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	ScoreThreshold *float32  `json:"score_threshold,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID      interface{}            `json:"id"`
		Score   float32                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

func (p *httpProvider) Search(ctx context.Context, collection string, vector []float32, opts SearchOptions) ([]RetrievalPoint, error) {
	url := fmt.Sprintf("%s/collections/%s/points/search", p.baseURL, collection)
	limit := opts.effectiveLimit()

	body := searchRequest{
		Vector:         vector,
		Limit:          limit,
		WithPayload:    opts.WithPayload,
		ScoreThreshold: opts.ScoreThreshold,
	}

	var decoded searchResponse
	if err := p.postJSON(ctx, "search", url, body, &decoded); err != nil {
		return nil, err
	}

	points := make([]RetrievalPoint, 0, len(decoded.Result))
	for _, hit := range decoded.Result {
		points = append(points, RetrievalPoint{
			ID:      pointIDString(hit.ID),
			Score:   hit.Score,
			Payload: hit.Payload,
		})
	}

	// The store returns hits ordered by score, but the ordering guarantee
	// is ours to keep.
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Score > points[j].Score
	})
	if len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

type scrollRequest struct {
	Limit       int         `json:"limit"`
	Offset      interface{} `json:"offset,omitempty"`
	WithPayload bool        `json:"with_payload"`
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      interface{}            `json:"id"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"points"`
		NextPageOffset interface{} `json:"next_page_offset"`
	} `json:"result"`
}

func (p *httpProvider) Scroll(ctx context.Context, collection string, limit int, offset interface{}) (*ScrollPage, error) {
	url := fmt.Sprintf("%s/collections/%s/points/scroll", p.baseURL, collection)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var decoded scrollResponse
	if err := p.postJSON(ctx, "scroll", url, scrollRequest{Limit: limit, Offset: offset, WithPayload: true}, &decoded); err != nil {
		return nil, err
	}

	page := &ScrollPage{
		Points:     make([]RetrievalPoint, 0, len(decoded.Result.Points)),
		NextOffset: decoded.Result.NextPageOffset,
	}
	for _, pt := range decoded.Result.Points {
		page.Points = append(page.Points, RetrievalPoint{
			ID:      pointIDString(pt.ID),
			Payload: pt.Payload,
		})
	}
	return page, nil
}

func (p *httpProvider) postJSON(ctx context.Context, operation, url string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["api-key"] = p.apiKey
	}

	resp, err := p.client.PostJSON(ctx, url, body, headers)
	if err != nil {
		if resp != nil {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return newRetrievalError(operation, url, resp.StatusCode, string(raw), err)
		}
		return newRetrievalError(operation, url, 0, "", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newRetrievalError(operation, url, resp.StatusCode, "", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (p *httpProvider) Close() error {
	return nil
}

// pointIDString renders the store's id (uuid string or integer) uniformly.
func pointIDString(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
