// Package config defines the portal configuration: the set of assistant
// agents, the embedding and vector store providers backing retrieval, the
// generation model, and the HTTP server itself.
package config

import (
	"fmt"
)

// Config is the root configuration document.
type Config struct {
	Server        ServerConfig        `yaml:"server" koanf:"server"`
	Agents        []AgentConfig       `yaml:"agents" koanf:"agents"`
	Embedder      EmbedderConfig      `yaml:"embedder" koanf:"embedder"`
	VectorStore   VectorStoreConfig   `yaml:"vector_store" koanf:"vector_store"`
	LLM           LLMConfig           `yaml:"llm" koanf:"llm"`
	Retrieval     RetrievalConfig     `yaml:"retrieval" koanf:"retrieval"`
	Observability ObservabilityConfig `yaml:"observability" koanf:"observability"`
}

func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	for i := range c.Agents {
		c.Agents[i].SetDefaults()
	}
	c.Embedder.SetDefaults()
	c.VectorStore.SetDefaults()
	c.LLM.SetDefaults()
	c.Retrieval.SetDefaults()
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	seen := make(map[string]bool, len(c.Agents))
	for i := range c.Agents {
		if err := c.Agents[i].Validate(); err != nil {
			return fmt.Errorf("agents[%d]: %w", i, err)
		}
		if seen[c.Agents[i].Alias] {
			return fmt.Errorf("agents[%d]: duplicate alias %q", i, c.Agents[i].Alias)
		}
		seen[c.Agents[i].Alias] = true
	}
	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vector_store: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	return nil
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `yaml:"host" koanf:"host"`
	Port int    `yaml:"port" koanf:"port"`

	// AgentPort is the port internal agents are mounted on. Internal agent
	// base URLs are synthesized against this port; defaults to Port.
	AgentPort int `yaml:"agent_port,omitempty" koanf:"agent_port"`

	// ReadTimeout/WriteTimeout in seconds.
	ReadTimeout  int `yaml:"read_timeout,omitempty" koanf:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout,omitempty" koanf:"write_timeout"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.AgentPort == 0 {
		c.AgentPort = c.Port
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 120
	}
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// ObservabilityConfig configures tracing and metrics exporters.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing" koanf:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" koanf:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" koanf:"enabled"`
	EndpointURL  string  `yaml:"endpoint_url,omitempty" koanf:"endpoint_url"`
	SamplingRate float64 `yaml:"sampling_rate,omitempty" koanf:"sampling_rate"`
	ServiceName  string  `yaml:"service_name,omitempty" koanf:"service_name"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" koanf:"enabled"`
}
