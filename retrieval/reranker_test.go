package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/types"
)

// stubScorer 确定性桩打分器
type stubScorer struct {
	scores map[string]float64
	err    error
	calls  int
}

func (s *stubScorer) Score(ctx context.Context, query, text string) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.scores[text], nil
}

func candidateSet() []types.ScoredCandidate {
	return []types.ScoredCandidate{
		{Chunk: types.Chunk{ID: "a", Text: "alpha"}, FusedScore: 0.9},
		{Chunk: types.Chunk{ID: "b", Text: "beta"}, FusedScore: 0.8},
		{Chunk: types.Chunk{ID: "c", Text: "gamma"}, FusedScore: 0.7},
	}
}

func TestCrossEncoderReranker_ResortsByRerankScore(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: map[string]float64{
		"alpha": 0.1,
		"beta":  0.9,
		"gamma": 0.5,
	}}
	r := NewCrossEncoderReranker(scorer, DefaultCrossEncoderConfig(), zap.NewNop())

	out, err := r.Rerank(context.Background(), "query", candidateSet(), 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}

	// 融合分数被忽略，纯按重排序分数排序
	if out[0].Chunk.ID != "b" || out[1].Chunk.ID != "c" || out[2].Chunk.ID != "a" {
		t.Fatalf("unexpected order: %s %s %s", out[0].Chunk.ID, out[1].Chunk.ID, out[2].Chunk.ID)
	}
}

func TestCrossEncoderReranker_TruncatesToTopK(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: map[string]float64{"alpha": 0.3, "beta": 0.2, "gamma": 0.1}}
	r := NewCrossEncoderReranker(scorer, DefaultCrossEncoderConfig(), zap.NewNop())

	out, err := r.Rerank(context.Background(), "query", candidateSet(), 2)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
}

func TestCrossEncoderReranker_OutputIsSubsetOfInput(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: map[string]float64{"alpha": 0.3, "beta": 0.2, "gamma": 0.1}}
	r := NewCrossEncoderReranker(scorer, DefaultCrossEncoderConfig(), zap.NewNop())

	input := candidateSet()
	out, err := r.Rerank(context.Background(), "query", input, 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}

	inputIDs := make(map[string]bool)
	for _, c := range input {
		inputIDs[c.Chunk.ID] = true
	}
	for _, c := range out {
		if !inputIDs[c.Chunk.ID] {
			t.Fatalf("output contains id %s not in input", c.Chunk.ID)
		}
	}
}

func TestCrossEncoderReranker_ScoringFailureReturnsTypedError(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{err: errors.New("model unreachable")}
	r := NewCrossEncoderReranker(scorer, DefaultCrossEncoderConfig(), zap.NewNop())

	_, err := r.Rerank(context.Background(), "query", candidateSet(), 2)
	if types.GetErrorCode(err) != types.ErrScoringUnavailable {
		t.Fatalf("expected SCORING_UNAVAILABLE, got %v", err)
	}
	if !types.IsRetryable(err) {
		t.Fatalf("scoring failures should be retryable")
	}
}

func TestCrossEncoderReranker_TiesBrokenByID(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: map[string]float64{"alpha": 0.5, "beta": 0.5, "gamma": 0.5}}
	r := NewCrossEncoderReranker(scorer, DefaultCrossEncoderConfig(), zap.NewNop())

	out, err := r.Rerank(context.Background(), "query", candidateSet(), 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if out[0].Chunk.ID != "a" || out[1].Chunk.ID != "b" || out[2].Chunk.ID != "c" {
		t.Fatalf("expected id-ascending tie break, got %s %s %s",
			out[0].Chunk.ID, out[1].Chunk.ID, out[2].Chunk.ID)
	}
}

func TestCrossEncoderReranker_EmptyInput(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{}
	r := NewCrossEncoderReranker(scorer, DefaultCrossEncoderConfig(), zap.NewNop())

	out, err := r.Rerank(context.Background(), "query", nil, 5)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
	if scorer.calls != 0 {
		t.Fatalf("scorer should not be invoked for empty input")
	}
}

func TestOverlapReranker_RanksByQueryCoverage(t *testing.T) {
	t.Parallel()

	r := NewOverlapReranker(zap.NewNop())
	candidates := []types.ScoredCandidate{
		{Chunk: types.Chunk{ID: "a", Text: "nothing relevant here"}},
		{Chunk: types.Chunk{ID: "b", Text: "go concurrency with goroutines"}},
		{Chunk: types.Chunk{ID: "c", Text: "go runtime internals"}},
	}

	out, err := r.Rerank(context.Background(), "go goroutines", candidates, 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if out[0].Chunk.ID != "b" {
		t.Fatalf("expected b first (full coverage), got %s", out[0].Chunk.ID)
	}
	if out[1].Chunk.ID != "c" {
		t.Fatalf("expected c second (partial coverage), got %s", out[1].Chunk.ID)
	}
	if !strings.Contains(out[2].Chunk.Text, "nothing") {
		t.Fatalf("expected a last, got %s", out[2].Chunk.ID)
	}
}
