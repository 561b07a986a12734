package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/internal/metrics"
	"github.com/BaSui01/ragflow/store"
	"github.com/BaSui01/ragflow/types"
)

// stubEmbedder 按词命中返回固定向量
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	return []float64{0, 0}, nil
}

func newTestPipeline(t *testing.T, opts ...PipelineOption) (*Pipeline, *stubScorer) {
	t.Helper()

	logger := zap.NewNop()
	chunks := []types.Chunk{
		{ID: "go1", Text: "go concurrency goroutines channels", Embedding: []float64{1, 0}},
		{ID: "py", Text: "python dynamic typing", Embedding: []float64{0, 1}},
		{ID: "go2", Text: "go static typing", Embedding: []float64{0.9, 0.1}},
	}

	chunkStore := store.NewInMemoryChunkStore(logger)
	if err := chunkStore.AddChunks(context.Background(), chunks); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	idx := store.NewFlatIndex(logger)
	vectors := make([][]float64, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		vectors[i] = c.Embedding
		ids[i] = c.ID
	}
	if err := idx.Build(vectors, ids); err != nil {
		t.Fatalf("Build: %v", err)
	}

	bm25 := NewBM25Retriever(DefaultBM25Config(), logger)
	if err := bm25.IndexChunks(chunks); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}

	scorer := &stubScorer{scores: map[string]float64{
		"go concurrency goroutines channels": 0.9,
		"python dynamic typing":              0.1,
		"go static typing":                   0.5,
	}}
	reranker := NewCrossEncoderReranker(scorer, DefaultCrossEncoderConfig(), logger)

	embedder := &stubEmbedder{vectors: map[string][]float64{
		"go goroutines": {1, 0},
	}}

	allOpts := append([]PipelineOption{WithReranker(reranker)}, opts...)
	p, err := NewPipeline(
		DefaultPipelineConfig(),
		chunkStore,
		NewSemanticRetriever(idx, logger),
		bm25,
		embedder,
		logger,
		allOpts...,
	)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p, scorer
}

func TestPipeline_EndToEnd(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)

	result, err := p.Retrieve(context.Background(), "go goroutines", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if result.Degraded {
		t.Fatalf("unexpected degraded result: %v", result.Err)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result.Candidates))
	}
	if result.Candidates[0].Chunk.ID != "go1" {
		t.Fatalf("expected go1 first after rerank, got %s", result.Candidates[0].Chunk.ID)
	}
	if result.Candidates[1].Chunk.ID != "go2" {
		t.Fatalf("expected go2 second, got %s", result.Candidates[1].Chunk.ID)
	}
}

func TestPipeline_RecordsStageDurations(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("ragflow_test", reg, zap.NewNop())

	p, _ := newTestPipeline(t, WithMetrics(collector))
	if _, err := p.Retrieve(context.Background(), "go goroutines", 2); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	// 四个阶段各产生一条耗时序列
	got, err := testutil.GatherAndCount(reg, "ragflow_test_retrieval_stage_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if got != 4 {
		t.Fatalf("expected 4 stage series, got %d", got)
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Retrieve(ctx, "go goroutines", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	second, err := p.Retrieve(ctx, "go goroutines", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different results:\n%+v\n%+v", first, second)
	}
}

func TestPipeline_DegradesToFusionOrderOnScoringFailure(t *testing.T) {
	t.Parallel()

	p, scorer := newTestPipeline(t)
	scorer.err = errors.New("model unreachable")

	result, err := p.Retrieve(context.Background(), "go goroutines", 2)
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}

	if !result.Degraded {
		t.Fatalf("expected degraded result")
	}
	if result.Err == nil || result.Err.Code != types.ErrScoringUnavailable {
		t.Fatalf("expected SCORING_UNAVAILABLE condition, got %v", result.Err)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected fusion order truncated to topK, got %d", len(result.Candidates))
	}
	// 融合排序保持：融合分数降序
	if result.Candidates[0].FusedScore < result.Candidates[1].FusedScore {
		t.Fatalf("fallback should preserve fusion order")
	}
}

func TestPipeline_SemanticFailureIsFatal(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop()
	chunkStore := store.NewInMemoryChunkStore(logger)
	bm25 := NewBM25Retriever(DefaultBM25Config(), logger)
	if err := bm25.IndexChunks([]types.Chunk{{ID: "a", Text: "alpha"}}); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}

	// 空向量索引 → INDEX_UNAVAILABLE
	p, err := NewPipeline(
		DefaultPipelineConfig(),
		chunkStore,
		NewSemanticRetriever(store.NewFlatIndex(logger), logger),
		bm25,
		&stubEmbedder{},
		logger,
	)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	_, err = p.Retrieve(context.Background(), "alpha", 1)
	if types.GetErrorCode(err) != types.ErrIndexUnavailable {
		t.Fatalf("expected INDEX_UNAVAILABLE, got %v", err)
	}
}

func TestPipeline_EmbedderFailure(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	failing := &stubEmbedder{err: errors.New("embedding api down")}
	p.embedder = failing

	_, err := p.Retrieve(context.Background(), "go goroutines", 2)
	if types.GetErrorCode(err) != types.ErrUpstreamError {
		t.Fatalf("expected UPSTREAM_ERROR, got %v", err)
	}
}

func TestPipeline_InvalidTopK(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)

	_, err := p.Retrieve(context.Background(), "go goroutines", 0)
	if types.GetErrorCode(err) != types.ErrInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestPipeline_InvalidFusionWeights(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop()
	cfg := DefaultPipelineConfig()
	cfg.Fusion = FusionConfig{SemanticWeight: 0.9, LexicalWeight: 0.9}

	_, err := NewPipeline(cfg, store.NewInMemoryChunkStore(logger),
		NewSemanticRetriever(store.NewFlatIndex(logger), logger),
		NewBM25Retriever(DefaultBM25Config(), logger),
		&stubEmbedder{}, logger)
	if err == nil {
		t.Fatalf("expected weight validation error")
	}
}

func TestPipeline_ConcurrentRetrievals(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	ctx := context.Background()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := p.Retrieve(ctx, "go goroutines", 2)
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Retrieve: %v", err)
		}
	}
}
