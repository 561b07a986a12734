// Package ragflow provides a top-level convenience entry point that wires
// the full retrieval stack from a single configuration.
//
// Usage:
//
//	import "github.com/BaSui01/ragflow"
//
//	engine, err := ragflow.New(config.DefaultConfig())
//	engine.IndexChunks(ctx, chunks)
//	result, err := engine.Ask(ctx, "how do goroutines work?", 5)
//
// The engine bundles the chunk store, vector index, BM25 index, FAQ lookup
// and retrieval pipeline behind one object so callers never assemble the
// pieces by hand. Libraries that need finer control use the retrieval and
// store packages directly.
package ragflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/chunking"
	"github.com/BaSui01/ragflow/config"
	"github.com/BaSui01/ragflow/embedding"
	"github.com/BaSui01/ragflow/eval"
	"github.com/BaSui01/ragflow/faq"
	"github.com/BaSui01/ragflow/internal/metrics"
	"github.com/BaSui01/ragflow/loader"
	"github.com/BaSui01/ragflow/rerank"
	"github.com/BaSui01/ragflow/retrieval"
	"github.com/BaSui01/ragflow/store"
	"github.com/BaSui01/ragflow/types"
)

// Engine 端到端检索引擎。
// 索引操作（IndexChunks、IndexDocuments）会重建向量与词法索引，
// 检索操作可安全并发调用。
type Engine struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector

	chunks   *store.InMemoryChunkStore
	index    store.VectorIndex
	lexical  *retrieval.BM25Retriever
	pipeline *retrieval.Pipeline
	splitter *chunking.RecursiveSplitter
	embedder *embedding.CachedEmbedder
	faq      *faq.Lookup
}

// Option 引擎可选配置
type Option func(*engineOptions)

type engineOptions struct {
	logger    *zap.Logger
	provider  embedding.Provider
	reranker  retrieval.Reranker
	collector *metrics.Collector
}

// WithLogger 设置自定义 zap logger，默认 zap.NewNop()
func WithLogger(logger *zap.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithEmbeddingProvider 覆盖配置中的嵌入提供者，测试时可注入桩实现
func WithEmbeddingProvider(p embedding.Provider) Option {
	return func(o *engineOptions) { o.provider = p }
}

// WithReranker 覆盖配置中的重排序器
func WithReranker(r retrieval.Reranker) Option {
	return func(o *engineOptions) { o.reranker = r }
}

// WithCollector 接入 Prometheus 指标收集器
func WithCollector(c *metrics.Collector) Option {
	return func(o *engineOptions) { o.collector = c }
}

// New 根据配置构建引擎。配置为 nil 时使用默认值。
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := o.provider
	if provider == nil {
		var err error
		provider, err = buildEmbeddingProvider(cfg.Embedding)
		if err != nil {
			return nil, err
		}
	}

	// 缓存不可用只降低命中率，不阻止启动
	var cache *embedding.Cache
	if cfg.Embedding.CacheEnabled {
		c, err := embedding.NewCache(cfg.Embedding.Cache, logger)
		if err != nil {
			logger.Warn("embedding cache unavailable, running without cache", zap.Error(err))
		} else {
			cache = c
		}
	}

	cachedOpts := []embedding.CachedOption{}
	if o.collector != nil {
		cachedOpts = append(cachedOpts, embedding.WithCollector(o.collector))
	}
	embedder := embedding.NewCachedEmbedder(provider, cache, logger, cachedOpts...)

	reranker := o.reranker
	if reranker == nil {
		reranker = buildReranker(cfg.Rerank, logger)
	}

	chunks := store.NewInMemoryChunkStore(logger)
	index := buildIndex(cfg.Index, logger)
	lexical := retrieval.NewBM25Retriever(cfg.BM25, logger)
	semantic := retrieval.NewSemanticRetriever(index, logger)

	pipelineOpts := []retrieval.PipelineOption{retrieval.WithReranker(reranker)}
	if o.collector != nil {
		pipelineOpts = append(pipelineOpts, retrieval.WithMetrics(o.collector))
	}
	pipeline, err := retrieval.NewPipeline(cfg.Retrieval, chunks, semantic, lexical, embedder, logger, pipelineOpts...)
	if err != nil {
		return nil, err
	}

	tokenizer := chunking.NewTiktokenTokenizer(embeddingModel(cfg.Embedding))
	splitter := chunking.NewRecursiveSplitter(cfg.Chunking, tokenizer, logger)

	var lookup *faq.Lookup
	if cfg.FAQ.Enabled {
		lookup = faq.NewLookup(cfg.FAQ.Threshold, logger)
	}

	return &Engine{
		cfg:       cfg,
		logger:    logger,
		collector: o.collector,
		chunks:    chunks,
		index:     index,
		lexical:   lexical,
		pipeline:  pipeline,
		splitter:  splitter,
		embedder:  embedder,
		faq:       lookup,
	}, nil
}

func buildEmbeddingProvider(cfg config.EmbeddingConfig) (embedding.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return embedding.NewOpenAIProvider(cfg.OpenAI), nil
	case "jina":
		return embedding.NewJinaProvider(cfg.Jina), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func buildReranker(cfg config.RerankConfig, logger *zap.Logger) retrieval.Reranker {
	switch cfg.Provider {
	case "cohere":
		return rerank.NewProviderReranker(rerank.NewCohereProvider(cfg.Cohere), logger)
	case "jina":
		return rerank.NewProviderReranker(rerank.NewJinaProvider(cfg.Jina), logger)
	default:
		return retrieval.NewOverlapReranker(logger)
	}
}

// buildIndex 根据配置选择向量索引实现。
// 默认精确的 flat 索引，大语料可切换 HNSW 近似索引；
// HNSW 参数未显式配置时在建索引阶段按语料规模自适应。
func buildIndex(cfg config.IndexConfig, logger *zap.Logger) store.VectorIndex {
	if store.IndexType(cfg.Type) == store.IndexHNSW {
		return store.NewHNSWIndex(cfg.HNSW, logger)
	}
	return store.NewFlatIndex(logger)
}

func embeddingModel(cfg config.EmbeddingConfig) string {
	switch cfg.Provider {
	case "jina":
		return cfg.Jina.Model
	default:
		return cfg.OpenAI.Model
	}
}

// IndexDocuments 分块并索引一批文档，返回产出的块数。
func (e *Engine) IndexDocuments(ctx context.Context, docs []loader.Document) (int, error) {
	chunks := loader.ToChunks(docs, e.splitter)
	if err := e.IndexChunks(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// IndexChunks 索引一批块：补齐缺失的嵌入，写入块存储，
// 然后从完整语料重建向量索引、BM25 索引和 FAQ 缓存。
func (e *Engine) IndexChunks(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return types.NewError(types.ErrInvalidRequest, "no chunks to index")
	}

	// 只嵌入缺向量的块
	var missing []string
	var missingIdx []int
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			missing = append(missing, c.Text)
			missingIdx = append(missingIdx, i)
		}
	}
	if len(missing) > 0 {
		vectors, err := e.embedder.EmbedBatch(ctx, missing)
		if err != nil {
			return types.NewError(types.ErrUpstreamError, "chunk embedding failed").WithCause(err)
		}
		for j, v := range vectors {
			chunks[missingIdx[j]].Embedding = v
		}
	}

	if err := e.chunks.AddChunks(ctx, chunks); err != nil {
		return types.NewError(types.ErrInvalidRequest, "failed to store chunks").WithCause(err)
	}

	return e.rebuildIndexes(ctx)
}

// rebuildIndexes 从块存储的全量语料重建各索引，保证三路视图一致
func (e *Engine) rebuildIndexes(ctx context.Context) error {
	all, err := e.chunks.ListChunks(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(all))
	vectors := make([][]float64, len(all))
	for i, c := range all {
		ids[i] = c.ID
		vectors[i] = c.Embedding
	}
	if err := e.index.Build(vectors, ids); err != nil {
		return err
	}
	if err := e.lexical.IndexChunks(all); err != nil {
		return err
	}
	if e.faq != nil {
		e.faq.Update(all)
	}

	e.logger.Info("indexes rebuilt", zap.Int("chunks", len(all)))
	return nil
}

// Ask 回答一个问题：先查 FAQ 直答缓存，命中则跳过检索管线，
// 否则执行完整的混合检索。
func (e *Engine) Ask(ctx context.Context, question string, topK int) (*types.RetrievalResult, error) {
	if e.faq != nil {
		if chunk, score, ok := e.faq.FindBestMatch(question); ok {
			e.logger.Debug("faq cache hit",
				zap.String("question", question),
				zap.Float64("score", score))
			return &types.RetrievalResult{
				Candidates: []types.ScoredCandidate{{
					Chunk:       *chunk,
					RerankScore: score,
					FusedScore:  score,
				}},
			}, nil
		}
	}
	return e.Retrieve(ctx, question, topK)
}

// Retrieve 执行完整的混合检索，跳过 FAQ 缓存
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) (*types.RetrievalResult, error) {
	return e.pipeline.Retrieve(ctx, query, topK)
}

// Evaluator 构建使用引擎嵌入器与检索管线的 RAGAS 评估器。
// 缺少检索上下文的样本会先经过 Ask 补齐上下文再打分。
func (e *Engine) Evaluator() (*eval.Evaluator, error) {
	evalOpts := []eval.EvaluatorOption{eval.WithPipeline(&askPipeline{engine: e})}
	if e.collector != nil {
		evalOpts = append(evalOpts, eval.WithCollector(e.collector))
	}
	return eval.NewEvaluator(e.cfg.Eval, eval.DefaultMetrics(e.embedder), e.logger, evalOpts...)
}

// askPipeline 将引擎的问答检索适配为评估器的流水线接口。
// 系统不含生成模型，答案取最相关块的原文（抽取式）。
type askPipeline struct {
	engine *Engine
}

func (p *askPipeline) Run(ctx context.Context, question string) (string, []string, error) {
	result, err := p.engine.Ask(ctx, question, p.engine.cfg.Retrieval.RerankCandidates)
	if err != nil {
		return "", nil, err
	}
	contexts := make([]string, len(result.Candidates))
	for i, c := range result.Candidates {
		contexts[i] = c.Chunk.Text
	}
	var answer string
	if len(result.Candidates) > 0 {
		answer = result.Candidates[0].Chunk.Text
	}
	return answer, contexts, nil
}

// ChunkCount 返回已索引的块数量
func (e *Engine) ChunkCount(ctx context.Context) (int, error) {
	return e.chunks.Count(ctx)
}
