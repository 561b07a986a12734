package retrieval

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/store"
	"github.com/BaSui01/ragflow/types"
)

func TestSemanticRetriever_RanksBySimilarity(t *testing.T) {
	t.Parallel()

	idx := store.NewFlatIndex(zap.NewNop())
	if err := idx.Build([][]float64{{1, 0}, {0, 1}, {0.9, 0.1}}, []string{"go1", "py", "go2"}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := NewSemanticRetriever(idx, zap.NewNop())
	hits, err := r.Search(context.Background(), []float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "go1" || hits[1].ChunkID != "go2" {
		t.Fatalf("unexpected order: %v", hits)
	}
}

func TestSemanticRetriever_IndexUnavailable(t *testing.T) {
	t.Parallel()

	r := NewSemanticRetriever(store.NewFlatIndex(zap.NewNop()), zap.NewNop())

	_, err := r.Search(context.Background(), []float64{1, 0}, 3)
	if types.GetErrorCode(err) != types.ErrIndexUnavailable {
		t.Fatalf("expected INDEX_UNAVAILABLE, got %v", err)
	}
}

func TestSemanticRetriever_NilIndex(t *testing.T) {
	t.Parallel()

	r := NewSemanticRetriever(nil, zap.NewNop())

	_, err := r.Search(context.Background(), []float64{1, 0}, 3)
	if types.GetErrorCode(err) != types.ErrIndexUnavailable {
		t.Fatalf("expected INDEX_UNAVAILABLE, got %v", err)
	}
}

func TestSemanticRetriever_InvalidK(t *testing.T) {
	t.Parallel()

	idx := store.NewFlatIndex(zap.NewNop())
	if err := idx.Build([][]float64{{1, 0}}, []string{"a"}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	r := NewSemanticRetriever(idx, zap.NewNop())

	_, err := r.Search(context.Background(), []float64{1, 0}, 0)
	if types.GetErrorCode(err) != types.ErrInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}
