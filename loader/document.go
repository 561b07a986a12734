package loader

import (
	"strings"

	"github.com/google/uuid"

	"github.com/BaSui01/ragflow/chunking"
	"github.com/BaSui01/ragflow/types"
)

// Document 加载的原始文档
type Document struct {
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NormalizeQuestion 规范化问题文本：小写并压缩空白。
// FAQ 直查和问答块元数据使用同一规范形式。
func NormalizeQuestion(text string) string {
	return strings.ToLower(NormalizeSpace(text))
}

// NormalizeSpace 压缩连续空白为单个空格并去除首尾空白
func NormalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ToChunks 将文档切分为带唯一 ID 的块
func ToChunks(docs []Document, splitter *chunking.RecursiveSplitter) []types.Chunk {
	var chunks []types.Chunk
	for _, doc := range docs {
		for _, piece := range splitter.Split(doc.Content) {
			metadata := map[string]string{
				"source": doc.Source,
			}
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			chunks = append(chunks, types.Chunk{
				ID:       uuid.NewString(),
				Text:     piece.Text,
				Metadata: metadata,
			})
		}
	}
	return chunks
}
