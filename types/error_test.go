package types

import (
	"errors"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrScoringUnavailable, "reranker unreachable").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("cohere")

	if GetErrorCode(err) != ErrScoringUnavailable {
		t.Fatalf("expected code %s, got %s", ErrScoringUnavailable, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestGetErrorCode_PlainError(t *testing.T) {
	t.Parallel()

	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code for plain error, got %s", code)
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain errors are not retryable")
	}
}

func TestRetrievalResult_Accessors(t *testing.T) {
	t.Parallel()

	res := RetrievalResult{Candidates: []ScoredCandidate{
		{Chunk: Chunk{ID: "a", Text: "alpha"}},
		{Chunk: Chunk{ID: "b", Text: "beta"}},
	}}

	ids := res.ChunkIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	texts := res.Texts()
	if len(texts) != 2 || texts[0] != "alpha" || texts[1] != "beta" {
		t.Fatalf("unexpected texts: %v", texts)
	}
}
