// Package databases provides the vector store clients used by the retrieval
// pipeline: a REST client speaking the collection search/scroll contract and
// a gRPC client on the qdrant SDK, behind a common provider interface.
package databases

import (
	"context"
	"fmt"

	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/registry"
)

const (
	// DefaultSearchLimit is the top-K applied when the caller does not set one.
	DefaultSearchLimit = 5
	// MaxSearchLimit caps a single similarity search.
	MaxSearchLimit = 20
)

// RetrievalPoint is one nearest-neighbor hit: id, relevance score and the
// opaque payload stored alongside the vector.
type RetrievalPoint struct {
	ID      string                 `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// SearchOptions tunes a similarity search.
type SearchOptions struct {
	// Limit is clamped to [1, MaxSearchLimit]; zero means DefaultSearchLimit.
	Limit int

	// ScoreThreshold drops hits below the bound when set.
	ScoreThreshold *float32

	// WithPayload requests point payloads (the pipeline always needs them).
	WithPayload bool
}

func (o SearchOptions) effectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return DefaultSearchLimit
	case o.Limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return o.Limit
	}
}

// ScrollPage is one page of a collection browse.
type ScrollPage struct {
	Points []RetrievalPoint `json:"points"`
	// NextOffset is the opaque cursor for the following page; nil when the
	// collection is exhausted.
	NextOffset interface{} `json:"next_offset,omitempty"`
}

// Provider is implemented by every vector store client.
type Provider interface {
	// Search returns up to opts.Limit points ordered by descending score.
	Search(ctx context.Context, collection string, vector []float32, opts SearchOptions) ([]RetrievalPoint, error)

	// Scroll pages through a collection for administrative browsing; it is
	// not part of the query hot path.
	Scroll(ctx context.Context, collection string, limit int, offset interface{}) (*ScrollPage, error)

	Close() error
}

// Factory builds a provider from a validated configuration.
type Factory func(*config.VectorStoreConfig) (Provider, error)

// ProviderRegistry holds vector store factories keyed by provider type.
type ProviderRegistry struct {
	*registry.BaseRegistry[Factory]
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		BaseRegistry: registry.NewBaseRegistry[Factory](),
	}
}

// DefaultRegistry holds the built-in providers. NewProviderFromConfig
// resolves cfg.Type against it.
var DefaultRegistry = NewProviderRegistry()

func init() {
	DefaultRegistry.Register("qdrant-http", NewHTTPProviderFromConfig)
	DefaultRegistry.Register("qdrant-grpc", NewQdrantProviderFromConfig)
}

// NewProviderFromConfig builds the provider selected by cfg.Type.
func NewProviderFromConfig(cfg *config.VectorStoreConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vector store config cannot be nil")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory, ok := DefaultRegistry.Get(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported vector store type: %s (registered: %v)", cfg.Type, DefaultRegistry.Keys())
	}
	return factory(cfg)
}
