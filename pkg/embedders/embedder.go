// Package embedders turns free text into fixed-length vectors. Two provider
// strategies exist: a bare external endpoint accepting {"text": ...} and an
// OpenAI-compatible hosted embeddings API.
package embedders

import (
	"context"
	"fmt"

	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/registry"
)

// Embedder produces an embedding vector for the given text. A successful
// call never returns an empty vector; providers report EmbeddingEmpty
// instead.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// Factory builds an embedder from a validated configuration.
type Factory func(*config.EmbedderConfig) (Embedder, error)

// EmbedderRegistry holds embedder factories keyed by provider type.
type EmbedderRegistry struct {
	*registry.BaseRegistry[Factory]
}

func NewEmbedderRegistry() *EmbedderRegistry {
	return &EmbedderRegistry{
		BaseRegistry: registry.NewBaseRegistry[Factory](),
	}
}

// DefaultRegistry holds the built-in providers. NewEmbedderFromConfig
// resolves cfg.Type against it.
var DefaultRegistry = NewEmbedderRegistry()

func init() {
	DefaultRegistry.Register("external", func(cfg *config.EmbedderConfig) (Embedder, error) {
		return NewExternalEmbedderFromConfig(cfg)
	})
	DefaultRegistry.Register("openai", func(cfg *config.EmbedderConfig) (Embedder, error) {
		return NewOpenAIEmbedderFromConfig(cfg)
	})
}

// NewEmbedderFromConfig builds the embedder selected by cfg.Type.
func NewEmbedderFromConfig(cfg *config.EmbedderConfig) (Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder config cannot be nil")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory, ok := DefaultRegistry.Get(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported embedder type: %s (registered: %v)", cfg.Type, DefaultRegistry.Keys())
	}
	return factory(cfg)
}
