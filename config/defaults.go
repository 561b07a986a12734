// =============================================================================
// 📦 RAGFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"github.com/BaSui01/ragflow/chunking"
	"github.com/BaSui01/ragflow/embedding"
	"github.com/BaSui01/ragflow/eval"
	"github.com/BaSui01/ragflow/faq"
	"github.com/BaSui01/ragflow/rerank"
	"github.com/BaSui01/ragflow/retrieval"
	"github.com/BaSui01/ragflow/store"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Retrieval: retrieval.DefaultPipelineConfig(),
		Index:     DefaultIndexConfig(),
		BM25:      retrieval.DefaultBM25Config(),
		Chunking:  chunking.DefaultSplitterConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Rerank:    DefaultRerankConfig(),
		Eval:      eval.DefaultEvaluatorConfig(),
		FAQ:       DefaultFAQConfig(),
		Log:       DefaultLogConfig(),
	}
}

// DefaultIndexConfig 返回默认向量索引配置。
// HNSW 参数保持零值，切换到 hnsw 时按语料规模自适应。
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Type: string(store.IndexFlat),
	}
}

// DefaultEmbeddingConfig 返回默认嵌入服务配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:     "openai",
		OpenAI:       embedding.DefaultOpenAIConfig(),
		Jina:         embedding.DefaultJinaConfig(),
		CacheEnabled: false,
		Cache:        embedding.DefaultCacheConfig(),
	}
}

// DefaultRerankConfig 返回默认重排序配置
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		Provider: "cohere",
		Cohere:   rerank.DefaultCohereConfig(),
		Jina:     rerank.DefaultJinaConfig(),
	}
}

// DefaultFAQConfig 返回默认问答直答配置
func DefaultFAQConfig() FAQConfig {
	return FAQConfig{
		Enabled:   true,
		Threshold: faq.DefaultThreshold,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}
