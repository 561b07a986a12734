package types

// Chunk 文档块（索引后不可变）
type Chunk struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Embedding []float64         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Query 单次检索请求的查询
type Query struct {
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// ScoredCandidate 候选块及各阶段分数
// 仅在单次检索调用的生命周期内存在。
type ScoredCandidate struct {
	Chunk         Chunk   `json:"chunk"`
	SemanticScore float64 `json:"semantic_score"`
	LexicalScore  float64 `json:"lexical_score"`
	FusedScore    float64 `json:"fused_score"`
	RerankScore   float64 `json:"rerank_score,omitempty"`
}

// RetrievalResult 检索结果（按最终分数降序）
type RetrievalResult struct {
	Candidates []ScoredCandidate `json:"candidates"`

	// Degraded 表示重排序阶段失败、结果退化为融合阶段排序。
	// 此时 Err 记录退化原因（SCORING_UNAVAILABLE），但请求本身成功。
	Degraded bool   `json:"degraded,omitempty"`
	Err      *Error `json:"error,omitempty"`
}

// ChunkIDs 返回结果中块 ID 的有序列表。
func (r *RetrievalResult) ChunkIDs() []string {
	ids := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		ids[i] = c.Chunk.ID
	}
	return ids
}

// Texts 返回结果中块文本的有序列表，供下游生成组件拼接上下文。
func (r *RetrievalResult) Texts() []string {
	texts := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		texts[i] = c.Chunk.Text
	}
	return texts
}
