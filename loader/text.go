package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// TextLoader 从目录加载纯文本和 Markdown 文件
type TextLoader struct {
	logger *zap.Logger
}

// NewTextLoader 创建文本加载器
func NewTextLoader(logger *zap.Logger) *TextLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextLoader{logger: logger}
}

// LoadFile 加载单个文本文件
func (l *TextLoader) LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Document{
		Content: string(data),
		Source:  path,
		Metadata: map[string]string{
			"type": "text",
		},
	}, nil
}

// LoadDir 加载目录下所有 .txt 和 .md 文件，按文件名排序。
func (l *TextLoader) LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		doc, err := l.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			l.logger.Warn("skipping unreadable file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		docs = append(docs, *doc)
	}

	l.logger.Info("text documents loaded",
		zap.String("dir", dir),
		zap.Int("count", len(docs)))

	return docs, nil
}
