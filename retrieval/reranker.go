package retrieval

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/types"
)

// Scorer 计算 (查询, 文本) 对的相关性分数。
// 这是管线对 Cross-Encoder 模型的唯一依赖面，测试可用确定性桩实现。
type Scorer interface {
	Score(ctx context.Context, query, text string) (float64, error)
}

// Reranker 重排序器接口
type Reranker interface {
	// Rerank 对候选集重排序并截断到 topK
	Rerank(ctx context.Context, query string, candidates []types.ScoredCandidate, topK int) ([]types.ScoredCandidate, error)
}

// CrossEncoderConfig Cross-Encoder 重排序配置
type CrossEncoderConfig struct {
	// 单次打分调用的超时
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultCrossEncoderConfig 默认配置
func DefaultCrossEncoderConfig() CrossEncoderConfig {
	return CrossEncoderConfig{
		Timeout: 30 * time.Second,
	}
}

// CrossEncoderReranker Cross-Encoder 重排序器。
// 对每个候选独立打分，重排序分数是最终排序的唯一依据，
// 融合分数在此阶段之后被丢弃。
type CrossEncoderReranker struct {
	scorer Scorer
	config CrossEncoderConfig
	logger *zap.Logger
}

// NewCrossEncoderReranker 创建 Cross-Encoder 重排序器
func NewCrossEncoderReranker(scorer Scorer, config CrossEncoderConfig, logger *zap.Logger) *CrossEncoderReranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrossEncoderReranker{
		scorer: scorer,
		config: config,
		logger: logger,
	}
}

// Rerank 重排序。
// 任一候选打分失败即返回 SCORING_UNAVAILABLE；调用方（管线）负责
// 退化到融合阶段排序。成功时输出纯按重排序分数降序、
// 分数相同按块 ID 升序，截断到 topK。
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, candidates []types.ScoredCandidate, topK int) ([]types.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}

	reranked := make([]types.ScoredCandidate, len(candidates))
	copy(reranked, candidates)

	for i := range reranked {
		score, err := r.scoreWithTimeout(ctx, query, reranked[i].Chunk.Text)
		if err != nil {
			return nil, types.NewError(types.ErrScoringUnavailable, "cross-encoder scoring failed").
				WithCause(err).
				WithRetryable(true)
		}
		reranked[i].RerankScore = score
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].RerankScore != reranked[j].RerankScore {
			return reranked[i].RerankScore > reranked[j].RerankScore
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})

	r.logger.Debug("reranking completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("top_k", topK),
		zap.Float64("top_score", reranked[0].RerankScore))

	return reranked[:topK], nil
}

// scoreWithTimeout 带超时打分
func (r *CrossEncoderReranker) scoreWithTimeout(ctx context.Context, query, text string) (float64, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	return r.scorer.Score(ctx, query, text)
}

// ====== 词重叠重排序器（离线/退化模式）======

// OverlapReranker 基于查询-文档词重叠的本地重排序器。
// 没有可用的 Cross-Encoder 模型时作为确定性替代。
type OverlapReranker struct {
	logger *zap.Logger
}

// NewOverlapReranker 创建词重叠重排序器
func NewOverlapReranker(logger *zap.Logger) *OverlapReranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverlapReranker{logger: logger}
}

// Rerank 按查询词覆盖率重排序
func (r *OverlapReranker) Rerank(ctx context.Context, query string, candidates []types.ScoredCandidate, topK int) ([]types.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}

	reranked := make([]types.ScoredCandidate, len(candidates))
	copy(reranked, candidates)

	queryTerms := tokenize(query)
	for i := range reranked {
		reranked[i].RerankScore = overlapScore(queryTerms, tokenize(reranked[i].Chunk.Text))
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].RerankScore != reranked[j].RerankScore {
			return reranked[i].RerankScore > reranked[j].RerankScore
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})

	return reranked[:topK], nil
}

// overlapScore 查询词在文档中的覆盖比例
func overlapScore(queryTerms, docTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0.0
	}

	docSet := make(map[string]bool, len(docTerms))
	for _, term := range docTerms {
		docSet[term] = true
	}

	matchCount := 0
	for _, qTerm := range queryTerms {
		if docSet[qTerm] {
			matchCount++
		}
	}

	return float64(matchCount) / float64(len(queryTerms))
}
