package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/uniportal/assistant/pkg/agents"
	"github.com/uniportal/assistant/pkg/assistants"
	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/databases"
	"github.com/uniportal/assistant/pkg/embedders"
	"github.com/uniportal/assistant/pkg/llms"
	"github.com/uniportal/assistant/pkg/pipeline"
)

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	URL   string `json:"url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}

	var perr *pipeline.Error
	if errors.As(err, &perr) {
		resp.Stage = string(perr.Stage)
		resp.URL = perr.URL
	}
	var agentErr *agents.AgentError
	if errors.As(err, &agentErr) {
		resp.URL = agentErr.URL
	}
	var retErr *databases.RetrievalError
	if errors.As(err, &retErr) {
		resp.URL = retErr.URL
	}

	writeJSON(w, httpStatusFor(err), resp)
}

// httpStatusFor maps the error taxonomy onto HTTP statuses: bad input 400,
// disabled plugin 409, unreachable or timed-out upstream 503, upstream that
// answered garbage 502.
func httpStatusFor(err error) int {
	switch {
	case pipeline.IsInvalidRequest(err):
		return http.StatusBadRequest
	case pipeline.IsPluginDisabled(err):
		return http.StatusConflict
	case embedders.IsTimeout(err), embedders.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case embedders.IsEmpty(err):
		return http.StatusBadGateway
	}

	var embErr *embedders.EmbeddingError
	if errors.As(err, &embErr) {
		return http.StatusBadGateway
	}
	var retErr *databases.RetrievalError
	if errors.As(err, &retErr) {
		return http.StatusServiceUnavailable
	}
	var agentErr *agents.AgentError
	if errors.As(err, &agentErr) {
		// No response at all means unreachable; a response that violated the
		// contract is the upstream's fault.
		if agentErr.StatusCode == 0 {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}
	var llmErr *llms.LLMError
	if errors.As(err, &llmErr) {
		if llms.IsTimeout(err) || llms.IsUnavailable(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// assistantSummary is the lightweight listing entry: configuration plus
// derived presentation, with no metadata fetch behind it.
type assistantSummary struct {
	Alias        string               `json:"alias"`
	BaseURL      string               `json:"base_url"`
	DomainURL    string               `json:"domain_url,omitempty"`
	DisplayOrder int                  `json:"display_order"`
	RoutingHint  string               `json:"routing_hint,omitempty"`
	Colors       assistants.ColorPair `json:"colors"`
}

func (s *Server) handleListAssistants(w http.ResponseWriter, r *http.Request) {
	configs := s.registry.ListConfigs()
	summaries := make([]assistantSummary, 0, len(configs))
	for _, ac := range configs {
		tenant := config.DecodeTenant(ac.Tenant)
		summaries = append(summaries, assistantSummary{
			Alias:        ac.Alias,
			BaseURL:      ac.BaseURL,
			DomainURL:    ac.DomainURL,
			DisplayOrder: ac.DisplayOrder,
			RoutingHint:  tenant.RoutingHint,
			Colors:       assistants.ColorsFor(ac.Alias),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assistants": summaries})
}

func (s *Server) handleListResolved(w http.ResponseWriter, r *http.Request) {
	resolved := s.registry.ResolveAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"assistants": resolved})
}

func (s *Server) handleGetAssistant(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	resolved := s.registry.GetByAlias(r.Context(), alias)
	if resolved == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown assistant: " + alias})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assistant":         resolved,
		"daily_limit":       s.quota.DailyLimit(alias),
		"embed_daily_limit": s.quota.EmbedDailyLimit(alias),
	})
}

func (s *Server) handleOrchestratorAgents(w http.ResponseWriter, r *http.Request) {
	delegates := s.registry.ListForOrchestrator(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": delegates})
}

// askPayload accepts both the portal's "question" field and the agent
// contract's "prompt" field.
type askPayload struct {
	SessionID string                 `json:"session_id,omitempty"`
	User      string                 `json:"user,omitempty"`
	ModelID   string                 `json:"model_id,omitempty"`
	Prompt    string                 `json:"prompt,omitempty"`
	Question  string                 `json:"question,omitempty"`
	Language  string                 `json:"language,omitempty"`
	Project   string                 `json:"project,omitempty"`
	ExtraData map[string]interface{} `json:"extra_data,omitempty"`
}

func (p *askPayload) question() string {
	if p.Question != "" {
		return p.Question
	}
	return p.Prompt
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")

	var payload askPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, &pipeline.InvalidRequestError{Message: "invalid request body: " + err.Error()})
		return
	}

	if alias == s.cfg.Retrieval.Assistant {
		s.askPipeline(w, r, payload)
		return
	}
	s.askAgent(w, r, alias, payload)
}

func (s *Server) askPipeline(w http.ResponseWriter, r *http.Request, payload askPayload) {
	answer, err := s.pipe.Run(r.Context(), pipeline.Request{
		Question:  payload.question(),
		SessionID: payload.SessionID,
		Language:  payload.Language,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":       answer.SessionID,
		"status":           agents.StatusSuccess,
		"content_markdown": answer.Text,
		"sources":          answer.Sources,
		"meta": agents.AskMeta{
			Model:          answer.Model,
			ResponseTimeMS: answer.Duration.Milliseconds(),
			TokensUsed:     answer.Usage.TotalTokens,
		},
	})
}

func (s *Server) askAgent(w http.ResponseWriter, r *http.Request, alias string, payload askPayload) {
	ac, ok := s.configFor(alias)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown assistant: " + alias})
		return
	}

	resp, err := s.agents.Ask(r.Context(), alias, ac.BaseURL, agents.AskRequest{
		SessionID: payload.SessionID,
		User:      payload.User,
		ModelID:   payload.ModelID,
		Prompt:    payload.question(),
		Context: agents.AskContext{
			Language:  payload.Language,
			Project:   payload.Project,
			ExtraData: payload.ExtraData,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	ac, ok := s.configFor(alias)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown assistant: " + alias})
		return
	}

	s.registry.Fetcher().Cache().Invalidate(ac.BaseURL)
	slog.Info("assistant metadata invalidated", "alias", alias)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	ac, ok := s.configFor(alias)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown assistant: " + alias})
		return
	}

	dataType := r.URL.Query().Get("type")
	if dataType == "" {
		writeError(w, &pipeline.InvalidRequestError{Message: "query parameter \"type\" is required"})
		return
	}

	resp, err := s.agents.GetData(r.Context(), ac.BaseURL, dataType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleScrollPoints pages through the retrieval corpus for administrative
// inspection.
func (s *Server) handleScrollPoints(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Retrieval.Enabled {
		writeError(w, &pipeline.PluginDisabledError{Setting: assistants.RetrievalSetting})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, &pipeline.InvalidRequestError{Message: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	// Collections keyed by integer point ids need a numeric offset; the
	// store rejects a quoted number.
	var offset interface{}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			offset = n
		} else {
			offset = raw
		}
	}

	page, err := s.store.Scroll(r.Context(), s.cfg.Retrieval.Collection, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) configFor(alias string) (config.AgentConfig, bool) {
	for _, ac := range s.registry.ListConfigs() {
		if ac.Alias == alias {
			return ac, true
		}
	}
	return config.AgentConfig{}, false
}
