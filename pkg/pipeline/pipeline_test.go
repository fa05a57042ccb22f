package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/databases"
	"github.com/uniportal/assistant/pkg/embedders"
	"github.com/uniportal/assistant/pkg/llms"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Dimension() int { return len(f.vector) }
func (f *fakeEmbedder) Model() string  { return "fake-embedder" }

type fakeStore struct {
	points []databases.RetrievalPoint
	err    error
	calls  int

	gotCollection string
	gotOpts       databases.SearchOptions
}

func (f *fakeStore) Search(ctx context.Context, collection string, vector []float32, opts databases.SearchOptions) ([]databases.RetrievalPoint, error) {
	f.calls++
	f.gotCollection = collection
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func (f *fakeStore) Scroll(ctx context.Context, collection string, limit int, offset interface{}) (*databases.ScrollPage, error) {
	return &databases.ScrollPage{}, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeLLM struct {
	generation *llms.Generation
	err        error
	calls      int

	gotSystem string
	gotUser   string
}

func (f *fakeLLM) Generate(ctx context.Context, system, user string) (*llms.Generation, error) {
	f.calls++
	f.gotSystem = system
	f.gotUser = user
	if f.err != nil {
		return nil, f.err
	}
	return f.generation, nil
}

func (f *fakeLLM) Model() string { return "fake-llm" }

func retrievalConfig() *config.RetrievalConfig {
	cfg := &config.RetrievalConfig{Enabled: true}
	cfg.SetDefaults()
	return cfg
}

func newTestPipeline(embedder *fakeEmbedder, store *fakeStore, llm *fakeLLM) *Pipeline {
	return New(retrievalConfig(), embedder, store, llm)
}

func TestRunAnswersFromPassages(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	store := &fakeStore{points: []databases.RetrievalPoint{
		{ID: "1", Score: 0.9, Payload: map[string]interface{}{"text": "Exams may be retaken twice.", "title": "Exam Regulation §12"}},
		{ID: "2", Score: 0.8, Payload: map[string]interface{}{"content": "Retakes must be registered."}},
	}}
	llm := &fakeLLM{generation: &llms.Generation{
		Text:  "Exams may be retaken twice [1].",
		Model: "gpt-4o-mini",
		Usage: llms.Usage{PromptTokens: 100, CompletionTokens: 12, TotalTokens: 112},
	}}

	answer, err := newTestPipeline(embedder, store, llm).Run(context.Background(), Request{Question: "How often can I retake an exam?"})
	require.NoError(t, err)

	assert.Equal(t, "Exams may be retaken twice [1].", answer.Text)
	assert.Equal(t, []string{"Exam Regulation §12", "Result 2"}, answer.Sources)
	assert.Equal(t, 112, answer.Usage.TotalTokens)
	assert.NotEmpty(t, answer.SessionID, "session id is generated when absent")
	assert.Greater(t, answer.Duration.Nanoseconds(), int64(0))

	// The search is driven by the configured corpus.
	assert.Equal(t, "regulations", store.gotCollection)
	assert.Equal(t, 5, store.gotOpts.Limit)
	assert.True(t, store.gotOpts.WithPayload)

	// Passages arrive numbered with their labels; the model is constrained
	// to them by the system instruction.
	assert.Contains(t, llm.gotUser, "[1] Exam Regulation §12\nExams may be retaken twice.")
	assert.Contains(t, llm.gotUser, "[2] Result 2\nRetakes must be registered.")
	assert.Contains(t, llm.gotUser, "Question: How often can I retake an exam?")
	assert.Contains(t, llm.gotSystem, "ONLY from the numbered passages")
}

func TestRunPreservesSessionIDAndLanguage(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	store := &fakeStore{}
	llm := &fakeLLM{generation: &llms.Generation{Text: "answer"}}

	answer, err := newTestPipeline(embedder, store, llm).Run(context.Background(), Request{
		Question:  "question",
		SessionID: "session-42",
		Language:  "German",
	})
	require.NoError(t, err)
	assert.Equal(t, "session-42", answer.SessionID)
	assert.Contains(t, llm.gotUser, "Answer in German.")
}

func TestRunRejectsEmptyQuestion(t *testing.T) {
	embedder := &fakeEmbedder{}
	llm := &fakeLLM{}

	_, err := newTestPipeline(embedder, &fakeStore{}, llm).Run(context.Background(), Request{Question: "   \n\t"})
	require.Error(t, err)
	assert.True(t, IsInvalidRequest(err))
	assert.Equal(t, 0, embedder.calls, "no upstream call for invalid input")
	assert.Equal(t, 0, llm.calls)
}

func TestRunPluginDisabled(t *testing.T) {
	cfg := retrievalConfig()
	cfg.Enabled = false
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	llm := &fakeLLM{}

	_, err := New(cfg, embedder, store, llm).Run(context.Background(), Request{Question: "question"})
	require.Error(t, err)
	assert.True(t, IsPluginDisabled(err))
	assert.Contains(t, err.Error(), "retrieval.enabled")
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, 0, store.calls)
	assert.Equal(t, 0, llm.calls)
}

func TestRunEmbeddingFailureStopsBeforeGeneration(t *testing.T) {
	embedder := &fakeEmbedder{err: &embedders.EmbeddingError{
		Kind:     embedders.KindTimeout,
		Endpoint: "http://embeddings:9000/embed",
		Err:      context.DeadlineExceeded,
	}}
	store := &fakeStore{}
	llm := &fakeLLM{}

	_, err := newTestPipeline(embedder, store, llm).Run(context.Background(), Request{Question: "question"})
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageEmbedding, perr.Stage)
	assert.Equal(t, "http://embeddings:9000/embed", perr.URL)
	assert.Contains(t, perr.Message, "timed out")

	assert.Equal(t, 0, store.calls, "search must not run without a vector")
	assert.Equal(t, 0, llm.calls, "generation must not run without a vector")
}

func TestRunSearchFailureIsStageTagged(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	store := &fakeStore{err: &databases.RetrievalError{
		URL:        "http://qdrant:6333/collections/regulations/points/search",
		Operation:  "search",
		StatusCode: 503,
	}}
	llm := &fakeLLM{}

	_, err := newTestPipeline(embedder, store, llm).Run(context.Background(), Request{Question: "question"})
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageSearching, perr.Stage)
	assert.Contains(t, perr.URL, "qdrant")
	assert.Equal(t, 0, llm.calls, "no ungrounded fallback on retrieval failure")
}

func TestRunEmptyRetrievalStillAnswers(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	store := &fakeStore{points: nil}
	llm := &fakeLLM{generation: &llms.Generation{Text: "No matching regulation exists."}}

	answer, err := newTestPipeline(embedder, store, llm).Run(context.Background(), Request{Question: "question"})
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 1, llm.calls, "zero passages is a valid outcome, not an error")
	assert.Contains(t, llm.gotUser, emptyContext)
}

func TestRunDropsEmptyPayloadPoints(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	store := &fakeStore{points: []databases.RetrievalPoint{
		{ID: "1", Score: 0.9, Payload: nil},
		{ID: "2", Score: 0.8, Payload: map[string]interface{}{"text": "Usable passage."}},
	}}
	llm := &fakeLLM{generation: &llms.Generation{Text: "answer"}}

	answer, err := newTestPipeline(embedder, store, llm).Run(context.Background(), Request{Question: "question"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Result 1"}, answer.Sources)
	assert.Equal(t, 1, strings.Count(llm.gotUser, "Usable passage."))
	assert.NotContains(t, llm.gotUser, "[2]")
}

func TestRunGenerationFailureIsStageTagged(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	store := &fakeStore{}
	llm := &fakeLLM{err: &llms.LLMError{Kind: llms.KindBadStatus, Endpoint: "http://llm:8000/v1/chat/completions", Message: "boom"}}

	_, err := newTestPipeline(embedder, store, llm).Run(context.Background(), Request{Question: "question"})
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageGenerating, perr.Stage)
	assert.Contains(t, perr.URL, "llm:8000")
}

func TestFailedStage(t *testing.T) {
	assert.Equal(t, StageEmbedding, FailedStage(&Error{Stage: StageEmbedding}))
	assert.Equal(t, StageFailed, FailedStage(errors.New("plain")))
}
