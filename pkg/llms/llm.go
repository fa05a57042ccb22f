// Package llms provides the generation model client. The portal treats the
// model as a black-box HTTP service speaking the OpenAI chat completions
// contract.
package llms

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/registry"
)

// Usage is the token accounting reported by the upstream, when available.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Generation is one completed model call.
type Generation struct {
	Text  string
	Model string
	Usage Usage
}

// Provider generates an answer from a system instruction and a user prompt.
type Provider interface {
	Generate(ctx context.Context, system, user string) (*Generation, error)
	Model() string
}

// ErrorKind classifies generation failures. Transport-level handlers map
// timeouts and unreachable endpoints to retryable statuses and everything
// else to an upstream fault.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindUnavailable
	KindBadStatus
	KindBadResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindBadStatus:
		return "bad_status"
	case KindBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// LLMError reports a failed generation call with the attempted endpoint.
type LLMError struct {
	Kind     ErrorKind
	Endpoint string
	Message  string
	Err      error
}

func (e *LLMError) Error() string {
	msg := fmt.Sprintf("[llm] request to %s failed: %s", e.Endpoint, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func isKind(err error, kind ErrorKind) bool {
	var llmErr *LLMError
	return errors.As(err, &llmErr) && llmErr.Kind == kind
}

// classifyTransportError separates deadline expiry from network-level
// unavailability (connection refused, DNS failure).
func classifyTransportError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnavailable
}

// IsTimeout reports whether err is a generation timeout.
func IsTimeout(err error) bool {
	return isKind(err, KindTimeout)
}

// IsUnavailable reports whether err is a network-level failure to reach
// the generation endpoint.
func IsUnavailable(err error) bool {
	return isKind(err, KindUnavailable)
}

// Factory builds a provider from a validated configuration.
type Factory func(*config.LLMConfig) (Provider, error)

// ProviderRegistry holds LLM provider factories keyed by provider type.
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
	DefaultRegistry.Register("openai", func(cfg *config.LLMConfig) (Provider, error) {
		return NewOpenAIProviderFromConfig(cfg)
	})
}

// NewProviderFromConfig builds the provider selected by cfg.Type.
func NewProviderFromConfig(cfg *config.LLMConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config cannot be nil")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory, ok := DefaultRegistry.Get(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported llm type: %s (registered: %v)", cfg.Type, DefaultRegistry.Keys())
	}
	return factory(cfg)
}
