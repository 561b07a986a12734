package faq

import (
	"testing"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/types"
)

func faqChunk(id, question string) types.Chunk {
	return types.Chunk{
		ID:   id,
		Text: "Question: " + question + "\nAnswer: ...",
		Metadata: map[string]string{
			"question":            question,
			"question_normalized": normalizeForTest(question),
		},
	}
}

func normalizeForTest(q string) string {
	// 与 loader.NormalizeQuestion 对齐的简化版，测试数据无多余空白
	out := make([]rune, 0, len(q))
	for _, r := range q {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

func TestLookup_ExactMatch(t *testing.T) {
	t.Parallel()

	l := NewLookup(0.82, zap.NewNop())
	l.Update([]types.Chunk{
		faqChunk("q1", "How do I reset my password?"),
		faqChunk("q2", "How do I close my account?"),
	})

	chunk, score, ok := l.FindBestMatch("How do I reset my password?")
	if !ok {
		t.Fatalf("expected a match, score=%.2f", score)
	}
	if chunk.ID != "q1" {
		t.Fatalf("expected q1, got %s", chunk.ID)
	}
	if score < 0.99 {
		t.Fatalf("exact match should score ~1.0, got %.2f", score)
	}
}

func TestLookup_NearMatch(t *testing.T) {
	t.Parallel()

	l := NewLookup(0.82, zap.NewNop())
	l.Update([]types.Chunk{
		faqChunk("q1", "How do I reset my password?"),
	})

	// 大小写和少量改动仍应命中
	chunk, _, ok := l.FindBestMatch("how do i reset my password")
	if !ok {
		t.Fatalf("expected near match to hit")
	}
	if chunk.ID != "q1" {
		t.Fatalf("expected q1, got %s", chunk.ID)
	}
}

func TestLookup_BelowThreshold(t *testing.T) {
	t.Parallel()

	l := NewLookup(0.82, zap.NewNop())
	l.Update([]types.Chunk{
		faqChunk("q1", "How do I reset my password?"),
	})

	_, score, ok := l.FindBestMatch("What are the delivery options for large furniture?")
	if ok {
		t.Fatalf("unrelated question should miss, score=%.2f", score)
	}
}

func TestLookup_EmptyCacheAndQuery(t *testing.T) {
	t.Parallel()

	l := NewLookup(0.82, zap.NewNop())

	if _, _, ok := l.FindBestMatch("anything"); ok {
		t.Fatalf("empty cache should never match")
	}

	l.Update([]types.Chunk{faqChunk("q1", "Some question?")})
	if _, _, ok := l.FindBestMatch("   "); ok {
		t.Fatalf("blank query should never match")
	}
}

func TestLookup_IgnoresEntriesWithoutNormalizedQuestion(t *testing.T) {
	t.Parallel()

	l := NewLookup(0.82, zap.NewNop())
	l.Update([]types.Chunk{
		{ID: "plain", Text: "not a faq chunk"},
		faqChunk("q1", "Valid question?"),
	})

	if l.Size() != 1 {
		t.Fatalf("expected 1 entry, got %d", l.Size())
	}
	if chunk, _, ok := l.FindBestMatch("not a faq chunk"); ok {
		t.Fatalf("chunk without normalized question must not match, got %s", chunk.ID)
	}
}

func TestLookup_UpdateReplacesEntries(t *testing.T) {
	t.Parallel()

	l := NewLookup(0.82, zap.NewNop())
	l.Update([]types.Chunk{faqChunk("old", "Old question?")})
	l.Update([]types.Chunk{faqChunk("new", "New question?")})

	chunk, _, ok := l.FindBestMatch("New question?")
	if !ok || chunk.ID != "new" {
		t.Fatalf("expected new entry to match")
	}
	if _, _, ok := l.FindBestMatch("Old question?"); ok {
		t.Fatalf("old entry should be gone")
	}
}

func TestRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1.0},
		{"abc", "xyz", 0.0},
		{"", "", 0.0},
		{"abcd", "bcde", 0.75},
	}
	for _, tt := range tests {
		got := ratio([]rune(tt.a), []rune(tt.b))
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
