package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/chunking"
)

func TestNormalizeQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  How do I reset my password?  ", "how do i reset my password?"},
		{"MULTIPLE   spaces\t here", "multiple spaces here"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeQuestion(tt.in); got != tt.want {
			t.Fatalf("NormalizeQuestion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextLoader_LoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha content")
	writeFile(t, dir, "b.md", "# beta\ncontent")
	writeFile(t, dir, "c.bin", "ignored")

	l := NewTextLoader(zap.NewNop())
	docs, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	for _, doc := range docs {
		if doc.Metadata["type"] != "text" {
			t.Fatalf("expected text type metadata, got %q", doc.Metadata["type"])
		}
	}
}

func TestTextLoader_MissingDir(t *testing.T) {
	t.Parallel()

	l := NewTextLoader(zap.NewNop())
	if _, err := l.LoadDir("/nonexistent/dir"); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestQALoader_LoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "faq.json", `[
		{"question": "How do I pay?", "answer": "Use the app.", "category": "billing", "url": "https://example.com/pay"},
		{"question": "How do I pay?", "answer": "Use the app.", "category": "billing"},
		{"question": "", "answer": "orphan answer"},
		{"question": "Where is support?", "answer": ""},
		{"question": "  Reset   PIN?  ", "answer": "In settings."}
	]`)

	l := NewQALoader(zap.NewNop())
	chunks, err := l.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	// 重复对和空条目被跳过
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first := chunks[0]
	if !strings.Contains(first.Text, "Question: How do I pay?") {
		t.Fatalf("unexpected chunk text: %q", first.Text)
	}
	if first.Metadata["question_normalized"] != "how do i pay?" {
		t.Fatalf("unexpected normalized question: %q", first.Metadata["question_normalized"])
	}
	if first.Metadata["category"] != "billing" {
		t.Fatalf("expected category metadata")
	}
	if first.Metadata["type"] != "faq" {
		t.Fatalf("expected default faq type")
	}
	if first.ID == "" || first.ID == chunks[1].ID {
		t.Fatalf("chunk IDs must be unique and non-empty")
	}

	second := chunks[1]
	if second.Metadata["question"] != "Reset PIN?" {
		t.Fatalf("expected whitespace-normalized question, got %q", second.Metadata["question"])
	}
}

func TestQALoader_InvalidJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "bad.json", `{not json`)

	l := NewQALoader(zap.NewNop())
	if _, err := l.LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestQALoader_MissingFile(t *testing.T) {
	t.Parallel()

	l := NewQALoader(zap.NewNop())
	if _, err := l.LoadFile("/nonexistent/faq.json"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestPDFLoader_MissingFile(t *testing.T) {
	t.Parallel()

	l := NewPDFLoader(zap.NewNop())
	if _, err := l.LoadFile("/nonexistent/doc.pdf"); err == nil {
		t.Fatalf("expected error for missing pdf")
	}
}

func TestToChunks(t *testing.T) {
	t.Parallel()

	splitter := chunking.NewRecursiveSplitter(
		chunking.DefaultSplitterConfig(),
		chunking.NewEstimatorTokenizer(),
		zap.NewNop(),
	)

	docs := []Document{
		{Content: "first document body", Source: "a.txt", Metadata: map[string]string{"type": "text"}},
		{Content: "second document body", Source: "b.txt"},
	}

	chunks := ToChunks(docs, splitter)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	ids := make(map[string]bool)
	for _, c := range chunks {
		if c.ID == "" {
			t.Fatalf("chunk ID must not be empty")
		}
		if ids[c.ID] {
			t.Fatalf("duplicate chunk ID %s", c.ID)
		}
		ids[c.ID] = true
		if c.Metadata["source"] == "" {
			t.Fatalf("chunk must carry source metadata")
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
