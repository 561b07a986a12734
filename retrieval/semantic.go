package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/store"
	"github.com/BaSui01/ragflow/types"
)

// Hit 单路检索命中
type Hit struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// SemanticRetriever 语义检索器（查询向量最近邻搜索）
type SemanticRetriever struct {
	index  store.VectorIndex
	logger *zap.Logger
}

// NewSemanticRetriever 创建语义检索器
func NewSemanticRetriever(index store.VectorIndex, logger *zap.Logger) *SemanticRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticRetriever{
		index:  index,
		logger: logger,
	}
}

// Search 返回与查询向量最相似的 ≤k 个块，按相似度降序，
// 分数相同按块 ID 升序。索引为空或未构建时返回 INDEX_UNAVAILABLE。
func (r *SemanticRetriever) Search(ctx context.Context, queryEmbedding []float64, k int) ([]Hit, error) {
	if k < 1 {
		return nil, types.NewError(types.ErrInvalidRequest, "k must be >= 1")
	}
	if r.index == nil || r.index.Size() == 0 {
		return nil, types.NewError(types.ErrIndexUnavailable, "vector index is empty or not built")
	}

	results, err := r.index.Search(queryEmbedding, k)
	if err != nil {
		return nil, types.NewError(types.ErrIndexUnavailable, "vector index search failed").WithCause(err)
	}

	hits := make([]Hit, len(results))
	for i, res := range results {
		hits[i] = Hit{ChunkID: res.ID, Score: res.Score}
	}

	r.logger.Debug("semantic search completed",
		zap.Int("k", k),
		zap.Int("hits", len(hits)))

	return hits, nil
}
