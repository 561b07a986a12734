package store

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/types"
)

func TestInMemoryChunkStore_AddListCount(t *testing.T) {
	t.Parallel()

	s := NewInMemoryChunkStore(zap.NewNop())
	ctx := context.Background()

	chunks := []types.Chunk{
		{ID: "c", Text: "gamma"},
		{ID: "a", Text: "alpha"},
		{ID: "b", Text: "beta"},
	}
	if err := s.AddChunks(ctx, chunks); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 chunks, got %d", count)
	}

	listed, err := s.ListChunks(ctx)
	if err != nil {
		t.Fatalf("ListChunks: %v", err)
	}
	if listed[0].ID != "a" || listed[1].ID != "b" || listed[2].ID != "c" {
		t.Fatalf("expected id-ascending order, got %v", listed)
	}
}

func TestInMemoryChunkStore_RejectsDuplicateAndEmptyID(t *testing.T) {
	t.Parallel()

	s := NewInMemoryChunkStore(zap.NewNop())
	ctx := context.Background()

	if err := s.AddChunks(ctx, []types.Chunk{{ID: "a", Text: "alpha"}}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	if err := s.AddChunks(ctx, []types.Chunk{{ID: "a", Text: "again"}}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if err := s.AddChunks(ctx, []types.Chunk{{Text: "no id"}}); err == nil {
		t.Fatalf("expected empty id error")
	}
}

func TestInMemoryChunkStore_GetAndClear(t *testing.T) {
	t.Parallel()

	s := NewInMemoryChunkStore(zap.NewNop())
	ctx := context.Background()

	if err := s.AddChunks(ctx, []types.Chunk{{ID: "a", Text: "alpha"}}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	chunk, err := s.GetChunk(ctx, "a")
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if chunk.Text != "alpha" {
		t.Fatalf("unexpected chunk text %q", chunk.Text)
	}

	if _, err := s.GetChunk(ctx, "missing"); err == nil {
		t.Fatalf("expected not-found error")
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	count, _ := s.Count(ctx)
	if count != 0 {
		t.Fatalf("expected empty store after ClearAll, got %d", count)
	}
}
