package databases

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

func newHTTPProvider(t *testing.T, handler http.HandlerFunc) Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	provider, err := NewHTTPProviderFromConfig(&config.VectorStoreConfig{
		Type:    "qdrant-http",
		URL:     srv.URL,
		Timeout: 5,
	})
	require.NoError(t, err)
	return provider
}

func TestHTTPProvider_Search(t *testing.T) {
	provider := newHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/regulations/points/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5, req.Limit)
		assert.True(t, req.WithPayload)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{"id": "b", "score": 0.7, "payload": map[string]string{"text": "second"}},
				{"id": "a", "score": 0.9, "payload": map[string]string{"text": "first"}},
				{"id": 3, "score": 0.5, "payload": map[string]string{"text": "third"}},
			},
		})
	})

	points, err := provider.Search(context.Background(), "regulations", []float32{0.1, 0.2}, SearchOptions{WithPayload: true})
	require.NoError(t, err)
	require.Len(t, points, 3)

	// Highest score first regardless of wire order.
	assert.Equal(t, "a", points[0].ID)
	assert.Equal(t, "b", points[1].ID)
	assert.Equal(t, "3", points[2].ID)
	assert.Equal(t, "first", points[0].Payload["text"])
}

func TestHTTPProvider_SearchLimitClamping(t *testing.T) {
	var gotLimit int
	provider := newHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotLimit = req.Limit
		json.NewEncoder(w).Encode(map[string]interface{}{"result": []interface{}{}})
	})

	_, err := provider.Search(context.Background(), "c", nil, SearchOptions{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, MaxSearchLimit, gotLimit)

	_, err = provider.Search(context.Background(), "c", nil, SearchOptions{Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, gotLimit)
}

func TestHTTPProvider_SearchScoreThreshold(t *testing.T) {
	var gotThreshold *float32
	provider := newHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotThreshold = req.ScoreThreshold
		json.NewEncoder(w).Encode(map[string]interface{}{"result": []interface{}{}})
	})

	threshold := float32(0.4)
	_, err := provider.Search(context.Background(), "c", nil, SearchOptions{ScoreThreshold: &threshold})
	require.NoError(t, err)
	require.NotNil(t, gotThreshold)
	assert.InDelta(t, 0.4, float64(*gotThreshold), 1e-6)
}

func TestHTTPProvider_SearchErrorStatus(t *testing.T) {
	provider := newHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status": {"error": "collection not found"}}`))
	})

	_, err := provider.Search(context.Background(), "missing", []float32{0.1}, SearchOptions{WithPayload: true})
	require.Error(t, err)

	var retrievalErr *RetrievalError
	require.True(t, errors.As(err, &retrievalErr))
	assert.Equal(t, http.StatusNotFound, retrievalErr.StatusCode)
	assert.Contains(t, retrievalErr.Body, "collection not found")
	assert.Contains(t, retrievalErr.URL, "/collections/missing/points/search")
}

func TestHTTPProvider_SearchUnreachable(t *testing.T) {
	provider, err := NewHTTPProviderFromConfig(&config.VectorStoreConfig{
		Type:    "qdrant-http",
		URL:     "http://127.0.0.1:1",
		Timeout: 1,
	})
	require.NoError(t, err)

	_, err = provider.Search(context.Background(), "c", []float32{0.1}, SearchOptions{})
	require.Error(t, err)

	var retrievalErr *RetrievalError
	require.True(t, errors.As(err, &retrievalErr))
	assert.Zero(t, retrievalErr.StatusCode)
	assert.Contains(t, retrievalErr.URL, "127.0.0.1:1")
}

func TestHTTPProvider_Scroll(t *testing.T) {
	provider := newHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/regulations/points/scroll", r.URL.Path)

		var req scrollRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.Limit)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"points": []map[string]interface{}{
					{"id": "p1", "payload": map[string]string{"text": "one"}},
					{"id": "p2", "payload": map[string]string{"text": "two"}},
				},
				"next_page_offset": "p3",
			},
		})
	})

	page, err := provider.Scroll(context.Background(), "regulations", 2, nil)
	require.NoError(t, err)
	require.Len(t, page.Points, 2)
	assert.Equal(t, "p1", page.Points[0].ID)
	assert.Equal(t, "p3", page.NextOffset)
}

func TestNewProviderFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.VectorStoreConfig
		wantErr bool
	}{
		{"nil config", nil, true},
		{"http provider", &config.VectorStoreConfig{Type: "qdrant-http", URL: "http://qdrant:6333"}, false},
		{"unknown type", &config.VectorStoreConfig{Type: "pinecone"}, true},
		{"http without url", &config.VectorStoreConfig{Type: "qdrant-http"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProviderFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProviderFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultRegistryHoldsBuiltins(t *testing.T) {
	assert.Equal(t, []string{"qdrant-grpc", "qdrant-http"}, DefaultRegistry.Keys())

	factory, ok := DefaultRegistry.Get("qdrant-http")
	require.True(t, ok)
	provider, err := factory(&config.VectorStoreConfig{Type: "qdrant-http", URL: "http://qdrant:6333", Timeout: 5})
	require.NoError(t, err)
	require.NoError(t, provider.Close())
}
