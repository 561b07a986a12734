package retrieval

import (
	"fmt"
	"math"
	"sort"
)

// FusionConfig 融合阶段权重配置
type FusionConfig struct {
	SemanticWeight float64 `json:"semantic_weight" yaml:"semantic_weight"`
	LexicalWeight  float64 `json:"lexical_weight" yaml:"lexical_weight"`
}

// DefaultFusionConfig 返回默认融合配置
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		SemanticWeight: 0.5,
		LexicalWeight:  0.5,
	}
}

// Validate 校验权重：均 ≥0 且和为 1。
func (c FusionConfig) Validate() error {
	if c.SemanticWeight < 0 || c.LexicalWeight < 0 {
		return fmt.Errorf("fusion weights must be >= 0, got (%f, %f)", c.SemanticWeight, c.LexicalWeight)
	}
	if math.Abs(c.SemanticWeight+c.LexicalWeight-1.0) > 1e-9 {
		return fmt.Errorf("fusion weights must sum to 1, got %f", c.SemanticWeight+c.LexicalWeight)
	}
	return nil
}

// FusedHit 融合后的候选
type FusedHit struct {
	ChunkID       string  `json:"chunk_id"`
	SemanticScore float64 `json:"semantic_score"` // 原始语义分数
	LexicalScore  float64 `json:"lexical_score"`  // 原始词法分数
	FusedScore    float64 `json:"fused_score"`
}

// Fuser 融合阶段：两路排序列表加权合并为单一候选集
type Fuser struct {
	config FusionConfig
}

// NewFuser 创建融合器。权重非法时返回 error。
func NewFuser(config FusionConfig) (*Fuser, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Fuser{config: config}, nil
}

// Fuse 合并两路检索结果。
//
// 每路分数先做 Min-Max 归一化到 [0,1]（单元素或全等列表归一化为 1.0），
// 对出现在任一列表中的块计算
//
//	fused = wSem*normSem + wLex*normLex
//
// 在某一路中缺席按该路 0 分处理，不做二次归一化。
// 输出按融合分数降序，分数相同按块 ID 升序。
func (f *Fuser) Fuse(semantic, lexical []Hit) []FusedHit {
	semRaw := hitScores(semantic)
	lexRaw := hitScores(lexical)

	semNorm := normalizeScores(semRaw)
	lexNorm := normalizeScores(lexRaw)

	allIDs := make(map[string]bool, len(semNorm)+len(lexNorm))
	for id := range semNorm {
		allIDs[id] = true
	}
	for id := range lexNorm {
		allIDs[id] = true
	}

	fused := make([]FusedHit, 0, len(allIDs))
	for id := range allIDs {
		fused = append(fused, FusedHit{
			ChunkID:       id,
			SemanticScore: semRaw[id],
			LexicalScore:  lexRaw[id],
			FusedScore:    semNorm[id]*f.config.SemanticWeight + lexNorm[id]*f.config.LexicalWeight,
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})

	return fused
}

// hitScores 将命中列表转换为 id -> 分数映射
func hitScores(hits []Hit) map[string]float64 {
	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		scores[h.ChunkID] = h.Score
	}
	return scores
}

// normalizeScores 归一化分数（Min-Max）。
// 全部分数相同时（含单元素列表）归一化为 1.0。
func normalizeScores(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}

	minScore := math.MaxFloat64
	maxScore := -math.MaxFloat64

	for _, score := range scores {
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}

	normalized := make(map[string]float64, len(scores))
	scoreRange := maxScore - minScore

	if scoreRange == 0 {
		for id := range scores {
			normalized[id] = 1.0
		}
	} else {
		for id, score := range scores {
			normalized[id] = (score - minScore) / scoreRange
		}
	}

	return normalized
}
