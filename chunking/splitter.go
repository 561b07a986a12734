package chunking

import (
	"strings"

	"go.uber.org/zap"
)

// SplitterConfig 分块配置
type SplitterConfig struct {
	// 块大小（tokens）
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// 相邻块之间的重叠（tokens）
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// 低于此 token 数的尾块被并入前一块
	MinChunkSize int `json:"min_chunk_size" yaml:"min_chunk_size"`

	// 分隔符优先级：段落 > 行 > 句子 > 单词
	Separators []string `json:"separators,omitempty" yaml:"separators,omitempty"`
}

// DefaultSplitterConfig 默认分块配置
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:    512,
		ChunkOverlap: 102,
		MinChunkSize: 50,
		Separators:   []string{"\n\n", "\n", ". ", "。", "! ", "！", "? ", "？", " "},
	}
}

// Piece 切分产出的文本块
type Piece struct {
	Text       string `json:"text"`
	Index      int    `json:"index"`
	TokenCount int    `json:"token_count"`
}

// RecursiveSplitter 递归字符分块器。
// 优先在段落和句子边界分割，单段超限时降级到更细的分隔符。
type RecursiveSplitter struct {
	config    SplitterConfig
	tokenizer Tokenizer
	logger    *zap.Logger
}

// NewRecursiveSplitter 创建递归分块器
func NewRecursiveSplitter(config SplitterConfig, tokenizer Tokenizer, logger *zap.Logger) *RecursiveSplitter {
	def := DefaultSplitterConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = def.ChunkSize
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}
	if len(config.Separators) == 0 {
		config.Separators = def.Separators
	}
	if tokenizer == nil {
		tokenizer = NewEstimatorTokenizer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecursiveSplitter{
		config:    config,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// Split 将文本切分为块
func (s *RecursiveSplitter) Split(text string) []Piece {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parts := s.splitText(text, s.config.Separators)
	parts = s.mergeSmallTail(parts)

	pieces := make([]Piece, 0, len(parts))
	for i, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		pieces = append(pieces, Piece{
			Text:       trimmed,
			Index:      i,
			TokenCount: s.tokenizer.CountTokens(trimmed),
		})
	}

	s.logger.Debug("text split completed",
		zap.Int("pieces", len(pieces)),
		zap.Int("chunk_size", s.config.ChunkSize),
		zap.Int("overlap", s.config.ChunkOverlap))

	return pieces
}

// splitText 递归分割并合并
func (s *RecursiveSplitter) splitText(text string, separators []string) []string {
	if len(separators) == 0 {
		return s.splitByRunes(text)
	}

	separator := separators[0]
	raw := strings.Split(text, separator)

	// 单个分隔符无法细分时尝试下一级
	if len(raw) == 1 {
		return s.splitText(text, separators[1:])
	}

	// 恢复分隔符，保持拼接后与原文一致
	splits := make([]string, 0, len(raw))
	for i, part := range raw {
		if i < len(raw)-1 {
			part += separator
		}
		if part != "" {
			splits = append(splits, part)
		}
	}

	var result []string
	var pending []string

	flush := func() {
		if len(pending) > 0 {
			result = append(result, s.mergeSplits(pending)...)
			pending = nil
		}
	}

	for _, split := range splits {
		if s.tokenizer.CountTokens(split) <= s.config.ChunkSize {
			pending = append(pending, split)
			continue
		}
		// 超限片段用更细分隔符递归处理
		flush()
		result = append(result, s.splitText(split, separators[1:])...)
	}
	flush()

	return result
}

// mergeSplits 贪心合并片段到目标块大小，并携带与前一块的重叠。
func (s *RecursiveSplitter) mergeSplits(splits []string) []string {
	var chunks []string
	var current []string
	currentTokens := 0

	for _, split := range splits {
		tokens := s.tokenizer.CountTokens(split)

		if currentTokens+tokens > s.config.ChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ""))

			// 从当前块尾部保留重叠片段
			var kept []string
			keptTokens := 0
			for i := len(current) - 1; i >= 0; i-- {
				t := s.tokenizer.CountTokens(current[i])
				if keptTokens+t > s.config.ChunkOverlap {
					break
				}
				kept = append([]string{current[i]}, kept...)
				keptTokens += t
			}
			current = kept
			currentTokens = keptTokens
		}

		current = append(current, split)
		currentTokens += tokens
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}

// splitByRunes 最后手段：按字符硬分割。
func (s *RecursiveSplitter) splitByRunes(text string) []string {
	runes := []rune(text)
	// 估算每个 token 约 4 个字符
	charsPerChunk := s.config.ChunkSize * 4
	if charsPerChunk <= 0 {
		charsPerChunk = len(runes)
	}

	var chunks []string
	for i := 0; i < len(runes); i += charsPerChunk {
		end := i + charsPerChunk
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// mergeSmallTail 将过小的尾块并入前一块
func (s *RecursiveSplitter) mergeSmallTail(parts []string) []string {
	if len(parts) < 2 || s.config.MinChunkSize <= 0 {
		return parts
	}

	last := parts[len(parts)-1]
	if s.tokenizer.CountTokens(last) >= s.config.MinChunkSize {
		return parts
	}

	merged := parts[len(parts)-2] + last
	return append(parts[:len(parts)-2], merged)
}
