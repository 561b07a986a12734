package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/ragflow/internal/metrics"
	"github.com/BaSui01/ragflow/store"
	"github.com/BaSui01/ragflow/types"
)

// Embedder 将文本编码为稠密向量。
// 管线对嵌入模型的唯一依赖面，测试可用确定性桩实现。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// PipelineConfig 检索管线配置
type PipelineConfig struct {
	// 各路检索的候选数量
	SemanticK int `json:"semantic_k" yaml:"semantic_k"`
	LexicalK  int `json:"lexical_k" yaml:"lexical_k"`

	// 融合权重
	Fusion FusionConfig `json:"fusion" yaml:"fusion"`

	// 进入重排序的融合候选上限
	RerankCandidates int `json:"rerank_candidates" yaml:"rerank_candidates"`

	// 是否启用重排序
	UseReranking bool `json:"use_reranking" yaml:"use_reranking"`
}

// DefaultPipelineConfig 返回默认管线配置
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SemanticK:        20,
		LexicalK:         20,
		Fusion:           DefaultFusionConfig(),
		RerankCandidates: 10,
		UseReranking:     true,
	}
}

// Pipeline 多阶段检索管线。
// 单次调用无状态，仅读取共享的只读块存储，可安全并发使用。
type Pipeline struct {
	config    PipelineConfig
	chunks    store.ChunkStore
	semantic  *SemanticRetriever
	lexical   *BM25Retriever
	fuser     *Fuser
	reranker  Reranker
	embedder  Embedder
	collector *metrics.Collector
	logger    *zap.Logger
}

// PipelineOption 管线可选配置
type PipelineOption func(*Pipeline)

// WithMetrics 接入 Prometheus 指标收集器
func WithMetrics(c *metrics.Collector) PipelineOption {
	return func(p *Pipeline) { p.collector = c }
}

// WithReranker 设置重排序器（默认不重排序时可省略）
func WithReranker(r Reranker) PipelineOption {
	return func(p *Pipeline) { p.reranker = r }
}

// NewPipeline 创建检索管线。融合权重非法时返回 error。
func NewPipeline(
	config PipelineConfig,
	chunks store.ChunkStore,
	semantic *SemanticRetriever,
	lexical *BM25Retriever,
	embedder Embedder,
	logger *zap.Logger,
	opts ...PipelineOption,
) (*Pipeline, error) {
	fuser, err := NewFuser(config.Fusion)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		config:   config,
		chunks:   chunks,
		semantic: semantic,
		lexical:  lexical,
		fuser:    fuser,
		embedder: embedder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Retrieve 执行完整检索：嵌入查询 → 双路检索 → 融合 → 重排序。
// 相同查询与索引状态下输出完全一致。
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) (*types.RetrievalResult, error) {
	embedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "query embedding failed").WithCause(err)
	}
	return p.RetrieveWithEmbedding(ctx, types.Query{Text: query, Embedding: embedding}, topK)
}

// RetrieveWithEmbedding 使用预计算的查询向量执行检索。
func (p *Pipeline) RetrieveWithEmbedding(ctx context.Context, query types.Query, topK int) (*types.RetrievalResult, error) {
	if topK < 1 {
		return nil, types.NewError(types.ErrInvalidRequest, "topK must be >= 1")
	}

	start := time.Now()

	// 1. 双路检索并发执行
	var semanticHits, lexicalHits []Hit
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stageStart := time.Now()
		hits, err := p.semantic.Search(gctx, query.Embedding, p.config.SemanticK)
		if err != nil {
			return err
		}
		p.recordStage("semantic", time.Since(stageStart))
		semanticHits = hits
		return nil
	})
	g.Go(func() error {
		stageStart := time.Now()
		hits, err := p.lexical.Search(gctx, query.Text, p.config.LexicalK)
		if err != nil {
			return err
		}
		p.recordStage("lexical", time.Since(stageStart))
		lexicalHits = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		p.recordRetrieval("error", time.Since(start))
		return nil, err
	}

	// 2. 融合
	fusionStart := time.Now()
	fused := p.fuser.Fuse(semanticHits, lexicalHits)
	p.recordStage("fusion", time.Since(fusionStart))

	// 3. 取重排序候选并补全块内容
	bound := p.config.RerankCandidates
	if bound <= 0 || bound > len(fused) {
		bound = len(fused)
	}
	candidates, err := p.resolveCandidates(ctx, fused[:bound])
	if err != nil {
		p.recordRetrieval("error", time.Since(start))
		return nil, err
	}

	result := &types.RetrievalResult{}

	// 4. 重排序（失败退化为融合排序）
	if p.config.UseReranking && p.reranker != nil {
		rerankStart := time.Now()
		reranked, err := p.reranker.Rerank(ctx, query.Text, candidates, topK)
		p.recordStage("rerank", time.Since(rerankStart))
		if err != nil {
			if types.GetErrorCode(err) != types.ErrScoringUnavailable {
				p.recordRetrieval("error", time.Since(start))
				return nil, err
			}
			p.logger.Warn("reranker unavailable, falling back to fusion order",
				zap.Error(err))
			if p.collector != nil {
				p.collector.RecordRerankFallback()
			}
			result.Degraded = true
			result.Err = err.(*types.Error)
			result.Candidates = truncate(candidates, topK)
		} else {
			result.Candidates = reranked
		}
	} else {
		result.Candidates = truncate(candidates, topK)
	}

	p.recordRetrieval("ok", time.Since(start))
	p.logger.Debug("retrieval completed",
		zap.String("query", query.Text),
		zap.Int("semantic_hits", len(semanticHits)),
		zap.Int("lexical_hits", len(lexicalHits)),
		zap.Int("fused", len(fused)),
		zap.Int("returned", len(result.Candidates)),
		zap.Bool("degraded", result.Degraded))

	return result, nil
}

// resolveCandidates 将融合命中解析为带块内容的候选
func (p *Pipeline) resolveCandidates(ctx context.Context, fused []FusedHit) ([]types.ScoredCandidate, error) {
	candidates := make([]types.ScoredCandidate, 0, len(fused))
	for _, hit := range fused {
		chunk, err := p.chunks.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			return nil, types.NewError(types.ErrIndexUnavailable, "chunk store out of sync with index").WithCause(err)
		}
		candidates = append(candidates, types.ScoredCandidate{
			Chunk:         *chunk,
			SemanticScore: hit.SemanticScore,
			LexicalScore:  hit.LexicalScore,
			FusedScore:    hit.FusedScore,
		})
	}
	return candidates, nil
}

// recordRetrieval 上报检索指标
func (p *Pipeline) recordRetrieval(status string, duration time.Duration) {
	if p.collector != nil {
		p.collector.RecordRetrieval(status, duration)
	}
}

// recordStage 上报单个阶段耗时
func (p *Pipeline) recordStage(stage string, duration time.Duration) {
	if p.collector != nil {
		p.collector.RecordStage(stage, duration)
	}
}

// truncate 截断候选列表到 topK
func truncate(candidates []types.ScoredCandidate, topK int) []types.ScoredCandidate {
	if topK > len(candidates) {
		topK = len(candidates)
	}
	return candidates[:topK]
}
