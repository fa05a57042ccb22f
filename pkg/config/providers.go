package config

import (
	"fmt"
)

// EmbedderConfig configures how question text is turned into vectors.
//
// Example YAML:
//
//	embedder:
//	  type: external
//	  url: http://embeddings:9000/embed
//	  dimension: 768
//
//	embedder:
//	  type: openai
//	  base_url: https://api.openai.com/v1
//	  model: text-embedding-3-small
//	  api_key: ${OPENAI_API_KEY}
type EmbedderConfig struct {
	// Type is "external" (bare {text} endpoint) or "openai" (hosted
	// embeddings API).
	Type string `yaml:"type" koanf:"type"`

	// URL is the full endpoint for the external strategy.
	URL string `yaml:"url,omitempty" koanf:"url"`

	// BaseURL/Model/APIKey configure the hosted strategy.
	BaseURL string `yaml:"base_url,omitempty" koanf:"base_url"`
	Model   string `yaml:"model,omitempty" koanf:"model"`
	APIKey  string `yaml:"api_key,omitempty" koanf:"api_key"`

	// Dimension of produced vectors, when known.
	Dimension int `yaml:"dimension,omitempty" koanf:"dimension"`

	// Timeout in seconds for a single embed call. The administrative
	// search path uses this bound; interactive callers may pass a shorter
	// context deadline.
	Timeout    int `yaml:"timeout,omitempty" koanf:"timeout"`
	MaxRetries int `yaml:"max_retries,omitempty" koanf:"max_retries"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "external"
	}
	if c.Timeout == 0 {
		c.Timeout = 25
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.Type == "openai" {
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
		if c.Model == "" {
			c.Model = "text-embedding-3-small"
		}
	}
}

func (c *EmbedderConfig) Validate() error {
	switch c.Type {
	case "external":
		if c.URL == "" {
			return fmt.Errorf("url is required for external embedder")
		}
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("api_key is required for openai embedder")
		}
	default:
		return fmt.Errorf("unsupported embedder type: %s", c.Type)
	}
	return nil
}

// VectorStoreConfig configures the similarity-search backend.
//
// Example YAML:
//
//	vector_store:
//	  type: qdrant-http
//	  url: http://qdrant:6333
//
//	vector_store:
//	  type: qdrant-grpc
//	  host: qdrant.example.com
//	  port: 6334
//	  api_key: ${QDRANT_API_KEY}
type VectorStoreConfig struct {
	// Type is "qdrant-http" (REST contract) or "qdrant-grpc" (SDK client).
	Type string `yaml:"type" koanf:"type"`

	// URL is the REST root for qdrant-http.
	URL string `yaml:"url,omitempty" koanf:"url"`

	// Host/Port/UseTLS configure the gRPC client.
	Host   string `yaml:"host,omitempty" koanf:"host"`
	Port   int    `yaml:"port,omitempty" koanf:"port"`
	UseTLS bool   `yaml:"use_tls,omitempty" koanf:"use_tls"`

	APIKey string `yaml:"api_key,omitempty" koanf:"api_key"`

	// Timeout in seconds for a single search or scroll call.
	Timeout int `yaml:"timeout,omitempty" koanf:"timeout"`
}

func (c *VectorStoreConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "qdrant-http"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
}

func (c *VectorStoreConfig) Validate() error {
	switch c.Type {
	case "qdrant-http":
		if c.URL == "" {
			return fmt.Errorf("url is required for qdrant-http vector store")
		}
	case "qdrant-grpc":
		if c.Host == "" {
			return fmt.Errorf("host is required for qdrant-grpc vector store")
		}
	default:
		return fmt.Errorf("unsupported vector store type: %s", c.Type)
	}
	return nil
}

// LLMConfig configures the generation model endpoint (OpenAI-compatible
// chat completions).
type LLMConfig struct {
	Type        string  `yaml:"type" koanf:"type"`
	BaseURL     string  `yaml:"base_url,omitempty" koanf:"base_url"`
	Model       string  `yaml:"model" koanf:"model"`
	APIKey      string  `yaml:"api_key,omitempty" koanf:"api_key"`
	Temperature float64 `yaml:"temperature,omitempty" koanf:"temperature"`
	MaxTokens   int     `yaml:"max_tokens,omitempty" koanf:"max_tokens"`

	// Timeout in seconds for a single generation call.
	Timeout    int `yaml:"timeout,omitempty" koanf:"timeout"`
	MaxRetries int `yaml:"max_retries,omitempty" koanf:"max_retries"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "openai"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 120
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
}

func (c *LLMConfig) Validate() error {
	if c.Type != "openai" {
		return fmt.Errorf("unsupported llm type: %s", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// RetrievalConfig wires the retrieval-grounded assistant to its corpus.
type RetrievalConfig struct {
	// Enabled is the administrative plugin flag. When false, retrieval is
	// not attempted and callers are told to enable "retrieval.enabled".
	Enabled bool `yaml:"enabled" koanf:"enabled"`

	// Assistant is the alias whose questions run through the pipeline.
	Assistant string `yaml:"assistant,omitempty" koanf:"assistant"`

	// Orchestrator is the primary alias excluded from the delegate list.
	Orchestrator string `yaml:"orchestrator,omitempty" koanf:"orchestrator"`

	// Collection holds the indexed corpus.
	Collection string `yaml:"collection,omitempty" koanf:"collection"`

	// TopK passages retrieved per question.
	TopK int `yaml:"top_k,omitempty" koanf:"top_k"`

	// ScoreThreshold drops weak matches when set.
	ScoreThreshold *float32 `yaml:"score_threshold,omitempty" koanf:"score_threshold"`

	// MetadataTTL in seconds for the agent metadata cache.
	MetadataTTL int `yaml:"metadata_ttl,omitempty" koanf:"metadata_ttl"`

	// MetadataTimeout in seconds for a single /metadata fetch.
	MetadataTimeout int `yaml:"metadata_timeout,omitempty" koanf:"metadata_timeout"`

	// MaxConcurrentResolves caps the metadata fan-out when resolving the
	// full assistant list.
	MaxConcurrentResolves int `yaml:"max_concurrent_resolves,omitempty" koanf:"max_concurrent_resolves"`
}

func (c *RetrievalConfig) SetDefaults() {
	if c.Assistant == "" {
		c.Assistant = "regulations"
	}
	if c.Orchestrator == "" {
		c.Orchestrator = "orchestrator"
	}
	if c.Collection == "" {
		c.Collection = "regulations"
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.MetadataTTL == 0 {
		c.MetadataTTL = 300
	}
	if c.MetadataTimeout == 0 {
		c.MetadataTimeout = 10
	}
	if c.MaxConcurrentResolves == 0 {
		c.MaxConcurrentResolves = 8
	}
}

func (c *RetrievalConfig) Validate() error {
	if c.TopK < 0 {
		return fmt.Errorf("top_k cannot be negative")
	}
	return nil
}
