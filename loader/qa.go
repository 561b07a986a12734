package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/types"
)

// QAPair 问答对条目
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
	URL      string `json:"url,omitempty"`
	Type     string `json:"type,omitempty"`
}

// QALoader 从 JSON 文件加载问答对。
// 每对问答独立成块，不经过切分器，问答的语义单元不可分割。
type QALoader struct {
	logger *zap.Logger
}

// NewQALoader 创建问答加载器
func NewQALoader(logger *zap.Logger) *QALoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QALoader{logger: logger}
}

// LoadFile 加载问答 JSON 文件并转换为块。
// 空问题或空答案的条目被跳过，完全相同的问答对只保留一份。
func (l *QALoader) LoadFile(path string) ([]types.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var pairs []QAPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	type qaKey struct{ q, a string }
	seen := make(map[qaKey]bool)

	var chunks []types.Chunk
	skipped := 0
	for _, pair := range pairs {
		question := NormalizeSpace(pair.Question)
		answer := NormalizeSpace(pair.Answer)
		if question == "" || answer == "" {
			skipped++
			continue
		}

		key := qaKey{question, answer}
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true

		qaType := pair.Type
		if qaType == "" {
			qaType = "faq"
		}

		metadata := map[string]string{
			"source":              path,
			"type":                qaType,
			"question":            question,
			"question_normalized": NormalizeQuestion(question),
		}
		if pair.Category != "" {
			metadata["category"] = pair.Category
		}
		if pair.URL != "" {
			metadata["url"] = pair.URL
		}

		chunks = append(chunks, types.Chunk{
			ID:       uuid.NewString(),
			Text:     fmt.Sprintf("Question: %s\nAnswer: %s", question, answer),
			Metadata: metadata,
		})
	}

	l.logger.Info("qa pairs loaded",
		zap.String("file", path),
		zap.Int("chunks", len(chunks)),
		zap.Int("skipped", skipped))

	return chunks, nil
}
