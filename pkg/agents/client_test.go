package agents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ask", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req AskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "When is the deadline?", req.Prompt)
		assert.Equal(t, "session-1", req.SessionID)
		assert.Equal(t, "de", req.Context.Language)

		json.NewEncoder(w).Encode(AskResponse{
			SessionID:       req.SessionID,
			Status:          StatusSuccess,
			ContentMarkdown: "The deadline is **March 15**.",
			Meta:            AskMeta{Model: "agent-model", ResponseTimeMS: 420, TokensUsed: 30},
		})
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Ask(context.Background(), "deadlines", server.URL, AskRequest{
		SessionID: "session-1",
		Prompt:    "When is the deadline?",
		Context:   AskContext{Language: "de"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "The deadline is **March 15**.", resp.ContentMarkdown)
	assert.Equal(t, 30, resp.Meta.TokensUsed)
}

func TestAskAgentLevelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AskResponse{
			Status:       StatusError,
			ErrorCode:    "quota_exceeded",
			ErrorMessage: "daily limit reached",
		})
	}))
	defer server.Close()

	resp, err := NewClient().Ask(context.Background(), "deadlines", server.URL, AskRequest{Prompt: "q"})
	require.NoError(t, err, "an agent-level error is a contract answer, not a transport failure")
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "quota_exceeded", resp.ErrorCode)
}

func TestAskErrorBodyWithErrorStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(AskResponse{
			Status:       StatusError,
			ErrorMessage: "daily limit reached",
		})
	}))
	defer server.Close()

	client := NewClient(WithAskTimeout(2 * time.Second))
	resp, err := client.Ask(context.Background(), "deadlines", server.URL, AskRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "daily limit reached", resp.ErrorMessage)
}

func TestAskUnreachable(t *testing.T) {
	_, err := NewClient().Ask(context.Background(), "ghost", "http://127.0.0.1:1", AskRequest{Prompt: "q"})
	require.Error(t, err)

	var agentErr *AgentError
	require.True(t, errors.As(err, &agentErr))
	assert.Contains(t, agentErr.URL, "/ask")
}

func TestAskMissingStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content_markdown": "hello"}`))
	}))
	defer server.Close()

	_, err := NewClient().Ask(context.Background(), "odd", server.URL, AskRequest{Prompt: "q"})
	require.Error(t, err)

	var agentErr *AgentError
	require.True(t, errors.As(err, &agentErr))
	assert.Contains(t, agentErr.Err.Error(), "missing status")
}

func TestGetData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data", r.URL.Path)
		assert.Equal(t, "deadlines", r.URL.Query().Get("type"))

		json.NewEncoder(w).Encode(DataResponse{
			Status:      StatusSuccess,
			DataType:    "deadlines",
			Items:       []interface{}{"March 15"},
			LastUpdated: "2026-08-30T10:00:00Z",
		})
	}))
	defer server.Close()

	resp, err := NewClient().GetData(context.Background(), server.URL, "deadlines")
	require.NoError(t, err)
	assert.Equal(t, "deadlines", resp.DataType)
	require.Len(t, resp.Items, 1)
}
