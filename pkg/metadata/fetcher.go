package metadata

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/uniportal/assistant/pkg/httpclient"
)

// DefaultFetchTimeout bounds a single GET {baseURL}/metadata call.
const DefaultFetchTimeout = 10 * time.Second

// maxMetadataBody caps how much of an agent's response is read.
const maxMetadataBody = 1 << 20

// Fetcher retrieves agent metadata documents with TTL caching. It never
// returns an error to its caller: any failure (timeout, connection refused,
// DNS failure, invalid JSON, HTTP error status) yields nil, is logged at
// warn level, and is not cached. The next call retries immediately so a
// transient failure cannot stick for a TTL window.
type Fetcher struct {
	client  *httpclient.Client
	cache   *Cache
	timeout time.Duration
}

type FetcherOption func(*Fetcher)

func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithHTTPClient(client *httpclient.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

func NewFetcher(cache *Cache, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		cache:   cache,
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cache == nil {
		f.cache = NewCache(DefaultTTL)
	}
	if f.client == nil {
		f.client = httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: f.timeout}),
			httpclient.WithMaxRetries(0),
		)
	}
	return f
}

// Cache exposes the underlying cache for administrative invalidation.
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// GetMetadata returns the agent's metadata document, from cache when fresh.
// A nil result means the agent is currently unreachable or misbehaving.
func (f *Fetcher) GetMetadata(ctx context.Context, baseURL string) *AgentMetadata {
	if baseURL == "" {
		return nil
	}

	if meta, ok := f.cache.Get(baseURL); ok {
		return meta
	}

	meta := f.fetch(ctx, baseURL)
	if meta == nil {
		return nil
	}

	f.cache.Set(baseURL, meta)
	return meta
}

func (f *Fetcher) fetch(ctx context.Context, baseURL string) *AgentMetadata {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	url := strings.TrimSuffix(baseURL, "/") + "/metadata"
	resp, err := f.client.GetJSON(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		slog.Warn("agent metadata fetch failed", "url", url, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("agent metadata fetch returned non-OK status", "url", url, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBody))
	if err != nil {
		slog.Warn("agent metadata read failed", "url", url, "error", err)
		return nil
	}

	meta, err := Parse(body)
	if err != nil {
		slog.Warn("agent metadata is not a JSON object", "url", url, "error", err)
		return nil
	}
	return meta
}
