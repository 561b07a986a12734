// Package faq 提供基于问题文本相似度的问答直查。
//
// 命中阈值以上的 FAQ 条目可以跳过整条检索管线直接应答，
// 相似度用 Ratcliff/Obershelp 序列匹配计算。
package faq

import (
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/loader"
	"github.com/BaSui01/ragflow/types"
)

// DefaultThreshold 默认命中阈值
const DefaultThreshold = 0.82

// Lookup FAQ 直查缓存。并发安全，Update 整体替换条目集。
type Lookup struct {
	mu        sync.RWMutex
	entries   []types.Chunk
	threshold float64
	logger    *zap.Logger
}

// NewLookup 创建 FAQ 直查。threshold 为 0 时使用默认阈值。
func NewLookup(threshold float64, logger *zap.Logger) *Lookup {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lookup{
		threshold: threshold,
		logger:    logger,
	}
}

// Update 替换 FAQ 条目集。只保留携带规范化问题元数据的块。
func (l *Lookup) Update(chunks []types.Chunk) {
	filtered := make([]types.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Metadata["question_normalized"] != "" {
			filtered = append(filtered, c)
		}
	}

	l.mu.Lock()
	l.entries = filtered
	l.mu.Unlock()

	l.logger.Info("faq lookup cache updated", zap.Int("entries", len(filtered)))
}

// Size 返回当前条目数
func (l *Lookup) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// FindBestMatch 返回与问题最相似的 FAQ 条目及相似度。
// 最高相似度低于阈值时返回 (nil, score, false)。
// 相同相似度保留条目集中靠前的一条。
func (l *Lookup) FindBestMatch(question string) (*types.Chunk, float64, bool) {
	normalized := loader.NormalizeQuestion(question)
	if normalized == "" {
		return nil, 0, false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var best *types.Chunk
	bestScore := 0.0
	queryRunes := []rune(normalized)

	for i := range l.entries {
		candidate := l.entries[i].Metadata["question_normalized"]
		score := ratio(queryRunes, []rune(candidate))
		if score > bestScore {
			best = &l.entries[i]
			bestScore = score
		}
	}

	if best == nil || bestScore < l.threshold {
		return nil, bestScore, false
	}

	l.logger.Debug("faq override hit",
		zap.String("question", question),
		zap.String("matched", best.Metadata["question"]),
		zap.Float64("score", bestScore))

	chunk := *best
	return &chunk, bestScore, true
}

// ratio Ratcliff/Obershelp 相似度：2M / (len(a)+len(b))，
// M 为递归最长公共子串匹配的字符总数。
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0.0
	}
	return 2.0 * float64(countMatches(a, b)) / float64(total)
}

// countMatches 递归统计匹配字符数
func countMatches(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}

	return size +
		countMatches(a[:ai], b[:bi]) +
		countMatches(a[ai+size:], b[bi+size:])
}

// longestCommonSubstring 查找最长公共子串的起始位置和长度。
// 等长子串保留最先找到的一个，保证结果确定。
func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	// prev[j] 为以 a[i-1], b[j-1] 结尾的公共子串长度
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return ai, bi, size
}
