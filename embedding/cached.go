package embedding

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/internal/metrics"
)

// CachedEmbedder 带缓存的查询嵌入器。
// 实现检索管线的 Embedder 接口，缓存不可用时直接回源，
// 缓存故障只降低命中率，不影响正确性。
type CachedEmbedder struct {
	provider  Provider
	cache     *Cache
	collector *metrics.Collector
	logger    *zap.Logger
}

// CachedOption 缓存嵌入器可选配置
type CachedOption func(*CachedEmbedder)

// WithCollector 接入指标收集器
func WithCollector(c *metrics.Collector) CachedOption {
	return func(e *CachedEmbedder) { e.collector = c }
}

// NewCachedEmbedder 创建带缓存的嵌入器。cache 为 nil 时退化为直连提供者。
func NewCachedEmbedder(provider Provider, cache *Cache, logger *zap.Logger, opts ...CachedOption) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &CachedEmbedder{
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed 嵌入单条文本，优先命中缓存
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	model := e.providerModel()

	if e.cache != nil {
		embedding, err := e.cache.Get(ctx, model, text)
		if err == nil {
			e.recordCache(true)
			return embedding, nil
		}
		if !IsCacheMiss(err) {
			e.logger.Warn("embedding cache unavailable, falling through", zap.Error(err))
		}
		e.recordCache(false)
	}

	start := time.Now()
	embedding, err := e.provider.EmbedQuery(ctx, text)
	e.recordRequest(err, time.Since(start))
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, model, text, embedding); err != nil {
			e.logger.Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return embedding, nil
}

// EmbedBatch 批量嵌入文档，逐条查缓存，只把未命中的发给提供者。
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	model := e.providerModel()
	result := make([][]float64, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if e.cache != nil {
			if embedding, err := e.cache.Get(ctx, model, text); err == nil {
				e.recordCache(true)
				result[i] = embedding
				continue
			}
			e.recordCache(false)
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return result, nil
	}

	start := time.Now()
	embeddings, err := e.provider.EmbedDocuments(ctx, missing)
	e.recordRequest(err, time.Since(start))
	if err != nil {
		return nil, err
	}

	for j, embedding := range embeddings {
		result[missingIdx[j]] = embedding
		if e.cache != nil {
			if err := e.cache.Set(ctx, model, missing[j], embedding); err != nil {
				e.logger.Warn("failed to cache embedding", zap.Error(err))
			}
		}
	}
	return result, nil
}

func (e *CachedEmbedder) providerModel() string {
	return e.provider.Name()
}

func (e *CachedEmbedder) recordCache(hit bool) {
	if e.collector == nil {
		return
	}
	if hit {
		e.collector.RecordCacheHit("embedding")
	} else {
		e.collector.RecordCacheMiss("embedding")
	}
}

func (e *CachedEmbedder) recordRequest(err error, duration time.Duration) {
	if e.collector == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.collector.RecordEmbedRequest(e.provider.Name(), status, duration)
}
