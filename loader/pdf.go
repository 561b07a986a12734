package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFLoader 从 PDF 文件提取纯文本
type PDFLoader struct {
	logger *zap.Logger
}

// NewPDFLoader 创建 PDF 加载器
func NewPDFLoader(logger *zap.Logger) *PDFLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFLoader{logger: logger}
}

// LoadFile 加载单个 PDF，每页一个文档并携带页码元数据。
// 无法提取文本的页面被跳过。
func (l *PDFLoader) LoadFile(path string) ([]Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var docs []Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("failed to extract pdf page text",
				zap.String("file", path),
				zap.Int("page", i),
				zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, Document{
			Content: text,
			Source:  path,
			Metadata: map[string]string{
				"type": "pdf",
				"page": strconv.Itoa(i),
			},
		})
	}

	l.logger.Info("pdf loaded",
		zap.String("file", path),
		zap.Int("pages", len(docs)))

	return docs, nil
}

// LoadDir 加载目录下所有 PDF 文件
func (l *PDFLoader) LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".pdf" {
			continue
		}

		pages, err := l.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			l.logger.Warn("skipping unreadable pdf",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		docs = append(docs, pages...)
	}
	return docs, nil
}
