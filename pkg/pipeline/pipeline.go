// Package pipeline implements the retrieval-augmented answer flow: embed the
// question, search the corpus, compose numbered passages and generate a
// grounded answer. Stages run strictly in order and every upstream failure
// is tagged with the stage that produced it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/uniportal/assistant/pkg/assistants"
	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/databases"
	"github.com/uniportal/assistant/pkg/embedders"
	"github.com/uniportal/assistant/pkg/llms"
	"github.com/uniportal/assistant/pkg/observability"
)

// systemPrompt constrains the model to the supplied passages. Admitting
// absence beats inventing a regulation that does not exist.
const systemPrompt = `You are a university assistant answering questions about official regulations.
Answer ONLY from the numbered passages provided below. Cite passages by their number.
If the passages do not contain the information needed, say so plainly. Never invent regulations, article numbers or deadlines that are not in the passages.`

// emptyContext is sent to the model when retrieval yields no usable passage,
// so it truthfully reports that nothing matched instead of hallucinating.
const emptyContext = "No matching passages were found in the regulations corpus for this question."

// Request is one question submitted to the retrieval-grounded assistant.
type Request struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	Language  string `json:"language,omitempty"`
}

// Answer is a completed pipeline run.
type Answer struct {
	SessionID string        `json:"session_id"`
	Text      string        `json:"text"`
	Sources   []string      `json:"sources,omitempty"`
	Model     string        `json:"model,omitempty"`
	Duration  time.Duration `json:"duration"`
	Usage     llms.Usage    `json:"usage,omitempty"`
}

// Pipeline runs retrieval-augmented answering against a fixed corpus
// collection. It holds no per-request state; a single instance serves all
// requests concurrently.
type Pipeline struct {
	cfg      *config.RetrievalConfig
	embedder embedders.Embedder
	store    databases.Provider
	llm      llms.Provider
	tracer   trace.Tracer
}

func New(cfg *config.RetrievalConfig, embedder embedders.Embedder, store databases.Provider, llm llms.Provider) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		llm:      llm,
		tracer:   observability.GetTracer("pipeline"),
	}
}

// Run executes the full staged flow. The returned error, when non-nil, is
// an InvalidRequestError, a PluginDisabledError or a stage-tagged Error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Answer, error) {
	start := time.Now()

	answer, err := p.run(ctx, req)
	observability.RecordPipelineRun(ctx, time.Since(start), string(FailedStage(err)), err)
	if err != nil {
		return nil, err
	}

	answer.Duration = time.Since(start)
	return answer, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Answer, error) {
	ctx, span := p.tracer.Start(ctx, observability.SpanPipelineRun)
	defer span.End()

	// The plugin gate comes before any validation of upstream settings; a
	// disabled plugin must not leak whether retrieval is even configured.
	if !p.cfg.Enabled {
		return nil, &PluginDisabledError{Setting: assistants.RetrievalSetting}
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, &InvalidRequestError{Message: "question cannot be empty"}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	vector, err := p.embed(ctx, question)
	if err != nil {
		return nil, err
	}

	points, err := p.search(ctx, vector)
	if err != nil {
		return nil, err
	}

	passages, sources := composePassages(points)
	if len(passages) == 0 {
		slog.Info("retrieval returned no usable passages", "session_id", sessionID)
	}

	generation, err := p.generate(ctx, question, req.Language, passages)
	if err != nil {
		return nil, err
	}

	return &Answer{
		SessionID: sessionID,
		Text:      generation.Text,
		Sources:   sources,
		Model:     generation.Model,
		Usage:     generation.Usage,
	}, nil
}

func (p *Pipeline) embed(ctx context.Context, question string) ([]float32, error) {
	ctx, span := p.tracer.Start(ctx, observability.SpanEmbedding)
	defer span.End()

	vector, err := p.embedder.Embed(ctx, question)
	if err == nil {
		return vector, nil
	}

	message := "embedding service failed"
	switch {
	case embedders.IsTimeout(err):
		message = "embedding service timed out"
	case embedders.IsUnavailable(err):
		message = "embedding service is unreachable"
	case embedders.IsEmpty(err):
		message = "embedding service returned an empty vector"
	}

	var embErr *embedders.EmbeddingError
	url := ""
	if errors.As(err, &embErr) {
		url = embErr.Endpoint
	}
	return nil, &Error{Stage: StageEmbedding, Message: message, URL: url, Err: err}
}

func (p *Pipeline) search(ctx context.Context, vector []float32) ([]databases.RetrievalPoint, error) {
	ctx, span := p.tracer.Start(ctx, observability.SpanSearch)
	defer span.End()

	points, err := p.store.Search(ctx, p.cfg.Collection, vector, databases.SearchOptions{
		Limit:          p.cfg.TopK,
		ScoreThreshold: p.cfg.ScoreThreshold,
		WithPayload:    true,
	})
	if err == nil {
		span.SetAttributes(attribute.Int("points", len(points)))
		return points, nil
	}

	var retErr *databases.RetrievalError
	url := ""
	if errors.As(err, &retErr) {
		url = retErr.URL
	}
	return nil, &Error{Stage: StageSearching, Message: "vector search failed", URL: url, Err: err}
}

// composePassages turns retrieval hits into numbered passages and their
// ordered source labels. Points without extractable text are dropped.
func composePassages(points []databases.RetrievalPoint) ([]string, []string) {
	passages := make([]string, 0, len(points))
	sources := make([]string, 0, len(points))
	for _, point := range points {
		text := databases.ExtractText(point.Payload)
		if strings.TrimSpace(text) == "" {
			continue
		}
		label, ok := databases.SourceLabel(point.Payload)
		if !ok {
			label = fmt.Sprintf("Result %d", len(passages)+1)
		}
		passages = append(passages, fmt.Sprintf("[%d] %s\n%s", len(passages)+1, label, text))
		sources = append(sources, label)
	}
	return passages, sources
}

func (p *Pipeline) generate(ctx context.Context, question, language string, passages []string) (*llms.Generation, error) {
	ctx, span := p.tracer.Start(ctx, observability.SpanGeneration)
	defer span.End()

	contextBlock := emptyContext
	if len(passages) > 0 {
		contextBlock = strings.Join(passages, "\n\n")
	}

	var user strings.Builder
	user.WriteString("Passages:\n")
	user.WriteString(contextBlock)
	user.WriteString("\n\nQuestion: ")
	user.WriteString(question)
	if language != "" {
		fmt.Fprintf(&user, "\n\nAnswer in %s.", language)
	}

	start := time.Now()
	generation, err := p.llm.Generate(ctx, systemPrompt, user.String())
	if err != nil {
		observability.RecordLLMCall(ctx, p.llm.Model(), time.Since(start), 0, 0, err)
		var llmErr *llms.LLMError
		url := ""
		if errors.As(err, &llmErr) {
			url = llmErr.Endpoint
		}
		return nil, &Error{Stage: StageGenerating, Message: "answer generation failed", URL: url, Err: err}
	}

	observability.RecordLLMCall(ctx, generation.Model, time.Since(start),
		generation.Usage.PromptTokens, generation.Usage.CompletionTokens, nil)
	return generation, nil
}
