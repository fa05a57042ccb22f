package llms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniportal/assistant/pkg/config"
)

func llmConfig(baseURL string) *config.LLMConfig {
	cfg := &config.LLMConfig{
		Type:    "openai",
		BaseURL: baseURL,
		Model:   "gpt-4o-mini",
		APIKey:  "test-key",
	}
	cfg.SetDefaults()
	return cfg
}

func TestOpenAIGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "gpt-4o-mini-2024",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "The library opens at 8."}},
			},
			"usage": map[string]int{"prompt_tokens": 40, "completion_tokens": 9, "total_tokens": 49},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(llmConfig(server.URL))
	require.NoError(t, err)

	gen, err := provider.Generate(context.Background(), "You are a helpful assistant.", "When does the library open?")
	require.NoError(t, err)
	assert.Equal(t, "The library opens at 8.", gen.Text)
	assert.Equal(t, "gpt-4o-mini-2024", gen.Model)
	assert.Equal(t, 49, gen.Usage.TotalTokens)
}

func TestOpenAIGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "invalid api key", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(llmConfig(server.URL))
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), "system", "user")
	require.Error(t, err)

	var llmErr *LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Contains(t, llmErr.Message, "401")
	assert.Equal(t, KindBadStatus, llmErr.Kind)
	assert.False(t, IsUnavailable(err))
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(llmConfig(server.URL))
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), "system", "user")
	require.Error(t, err)

	var llmErr *LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Contains(t, llmErr.Message, "no choices")
	assert.Equal(t, KindBadResponse, llmErr.Kind)
}

func TestOpenAIGenerateUnreachable(t *testing.T) {
	provider, err := NewOpenAIProviderFromConfig(llmConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), "system", "user")
	require.Error(t, err)

	var llmErr *LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, KindUnavailable, llmErr.Kind)
	assert.True(t, IsUnavailable(err))
	assert.False(t, IsTimeout(err))
}

func TestNewProviderFromConfig(t *testing.T) {
	provider, err := NewProviderFromConfig(llmConfig("http://localhost:9999"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", provider.Model())

	_, err = NewProviderFromConfig(&config.LLMConfig{Type: "nonexistent"})
	assert.Error(t, err)
}

func TestDefaultRegistryHoldsBuiltins(t *testing.T) {
	assert.Equal(t, []string{"openai"}, DefaultRegistry.Keys())

	factory, ok := DefaultRegistry.Get("openai")
	require.True(t, ok)
	provider, err := factory(llmConfig("http://localhost:9999"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", provider.Model())
}
