package rerank

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/types"
)

// ProviderReranker 将批量打分提供商适配为检索管线的重排序器。
// 一次 API 调用对全部候选打分，比逐对打分便宜一个数量级。
type ProviderReranker struct {
	provider Provider
	logger   *zap.Logger
}

// NewProviderReranker 创建基于 API 提供商的重排序器。
func NewProviderReranker(provider Provider, logger *zap.Logger) *ProviderReranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderReranker{provider: provider, logger: logger}
}

// Rerank 批量打分后按相关性降序排序，分数相同按块 ID 升序。
// 上游失败时错误原样透传，管线依据错误码决定是否退化。
func (r *ProviderReranker) Rerank(ctx context.Context, query string, candidates []types.ScoredCandidate, topK int) ([]types.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}
	if max := r.provider.MaxDocuments(); len(candidates) > max {
		return nil, types.NewError(types.ErrInvalidRequest, "too many rerank candidates").
			WithProvider(r.provider.Name())
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Chunk.Text
	}

	resp, err := r.provider.Score(ctx, &ScoreRequest{
		Query:     query,
		Documents: docs,
	})
	if err != nil {
		return nil, err
	}

	reranked := make([]types.ScoredCandidate, len(candidates))
	copy(reranked, candidates)
	for _, res := range resp.Results {
		if res.Index < 0 || res.Index >= len(reranked) {
			return nil, types.NewError(types.ErrScoringUnavailable, "rerank result index out of range").
				WithProvider(r.provider.Name())
		}
		reranked[res.Index].RerankScore = res.RelevanceScore
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].RerankScore != reranked[j].RerankScore {
			return reranked[i].RerankScore > reranked[j].RerankScore
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})

	r.logger.Debug("provider reranking completed",
		zap.String("provider", resp.Provider),
		zap.String("model", resp.Model),
		zap.Int("candidates", len(candidates)),
		zap.Int("top_k", topK))

	return reranked[:topK], nil
}
