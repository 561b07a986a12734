package ragflow

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/ragflow/config"
	"github.com/BaSui01/ragflow/embedding"
	"github.com/BaSui01/ragflow/eval"
	"github.com/BaSui01/ragflow/loader"
	"github.com/BaSui01/ragflow/types"
)

// hashProvider 确定性的词袋哈希嵌入，离线测试用
type hashProvider struct{}

func (hashProvider) embed(text string) []float64 {
	vec := make([]float64, 32)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%len(vec)]++
	}
	return vec
}

func (p hashProvider) Embed(ctx context.Context, req *embedding.EmbeddingRequest) (*embedding.EmbeddingResponse, error) {
	resp := &embedding.EmbeddingResponse{Provider: p.Name(), Model: "hash"}
	for i, in := range req.Input {
		resp.Embeddings = append(resp.Embeddings, embedding.EmbeddingData{Index: i, Embedding: p.embed(in)})
	}
	return resp, nil
}

func (p hashProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return p.embed(query), nil
}

func (p hashProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	out := make([][]float64, len(documents))
	for i, d := range documents {
		out[i] = p.embed(d)
	}
	return out, nil
}

func (hashProvider) Name() string      { return "hash" }
func (hashProvider) Dimensions() int   { return 32 }
func (hashProvider) MaxBatchSize() int { return 128 }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Rerank.Provider = "overlap"
	engine, err := New(cfg, WithEmbeddingProvider(hashProvider{}))
	require.NoError(t, err)
	return engine
}

func corpusChunks() []types.Chunk {
	return []types.Chunk{
		{ID: "go-1", Text: "Goroutines are lightweight threads managed by the Go runtime."},
		{ID: "go-2", Text: "Channels let goroutines communicate by passing values."},
		{ID: "py-1", Text: "Python lists are resizable arrays with amortized append."},
	}
}

func TestEngineIndexAndAsk(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.IndexChunks(ctx, corpusChunks()))

	count, err := engine.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	result, err := engine.Ask(ctx, "goroutines in the Go runtime", 2)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "go-1", result.Candidates[0].Chunk.ID)
	assert.False(t, result.Degraded)
}

func TestEngineAskIsDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, engine.IndexChunks(ctx, corpusChunks()))

	first, err := engine.Ask(ctx, "channels and goroutines", 3)
	require.NoError(t, err)
	second, err := engine.Ask(ctx, "channels and goroutines", 3)
	require.NoError(t, err)
	assert.Equal(t, first.ChunkIDs(), second.ChunkIDs())
}

func TestEngineFAQShortCircuit(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	chunks := corpusChunks()
	chunks = append(chunks, types.Chunk{
		ID:   "faq-1",
		Text: "Question: What is your refund policy?\nAnswer: Full refund within 30 days.",
		Metadata: map[string]string{
			"type":                "faq",
			"question":            "What is your refund policy?",
			"question_normalized": "what is your refund policy?",
		},
	})
	require.NoError(t, engine.IndexChunks(ctx, chunks))

	result, err := engine.Ask(ctx, "What is your refund policy?", 5)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "faq-1", result.Candidates[0].Chunk.ID)
	assert.InDelta(t, 1.0, result.Candidates[0].RerankScore, 1e-9)

	// Retrieve 绕过 FAQ 缓存，走完整管线
	full, err := engine.Retrieve(ctx, "What is your refund policy?", 2)
	require.NoError(t, err)
	assert.Len(t, full.Candidates, 2)
}

func TestEngineIndexDocuments(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	docs := []loader.Document{
		{Content: "Go compiles fast. The toolchain is a single binary.", Source: "go.md"},
		{Content: "Rust guarantees memory safety without garbage collection.", Source: "rust.md"},
	}
	count, err := engine.IndexDocuments(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	result, err := engine.Ask(ctx, "memory safety without garbage collection", 1)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "rust.md", result.Candidates[0].Chunk.Metadata["source"])
}

func TestEngineIndexChunksEmpty(t *testing.T) {
	engine := newTestEngine(t)
	err := engine.IndexChunks(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Retrieval.Fusion.SemanticWeight = 0.9
	cfg.Retrieval.Fusion.LexicalWeight = 0.9
	_, err := New(cfg, WithEmbeddingProvider(hashProvider{}))
	require.Error(t, err)
}

func TestEngineHNSWIndex(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rerank.Provider = "overlap"
	cfg.Index.Type = "hnsw"
	engine, err := New(cfg, WithEmbeddingProvider(hashProvider{}))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, engine.IndexChunks(ctx, corpusChunks()))

	result, err := engine.Ask(ctx, "goroutines in the Go runtime", 2)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, "go-1", result.Candidates[0].Chunk.ID)
}

func TestEngineRejectsUnknownIndexType(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Type = "ivf"
	_, err := New(cfg, WithEmbeddingProvider(hashProvider{}))
	require.Error(t, err)
}

func TestEngineEvaluator(t *testing.T) {
	engine := newTestEngine(t)
	evaluator, err := engine.Evaluator()
	require.NoError(t, err)

	report, err := evaluator.Evaluate(context.Background(), []eval.Sample{{
		ID:          "s1",
		Question:    "What is the capital of France?",
		Answer:      "The capital of France is Paris.",
		Contexts:    []string{"The capital of France is Paris."},
		GroundTruth: "The capital of France is Paris.",
	}})
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Zero(t, report.FailedItems)
	assert.InDelta(t, 1.0, report.Averages["faithfulness"], 1e-9)
}

func TestEngineEvaluatorRetrievesContexts(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, engine.IndexChunks(ctx, corpusChunks()))

	evaluator, err := engine.Evaluator()
	require.NoError(t, err)

	// 样本不带上下文与答案，评估器通过引擎检索补齐
	report, err := evaluator.Evaluate(ctx, []eval.Sample{{
		ID:          "s1",
		Question:    "goroutines in the Go runtime",
		GroundTruth: "Goroutines are lightweight threads managed by the Go runtime.",
	}})
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Zero(t, report.FailedItems)

	// 抽取式答案等于最相关块原文，对照标准答案得满分
	assert.InDelta(t, 1.0, report.Items[0].Scores["answer_correctness"], 1e-9)
	assert.InDelta(t, 1.0, report.Items[0].Scores["context_recall"], 1e-9)
}
