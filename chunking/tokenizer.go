package chunking

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer 分词器接口
type Tokenizer interface {
	CountTokens(text string) int
}

// ====== tiktoken ======

// modelEncodings 将模型名称映射到 tiktoken 编码。
var modelEncodings = map[string]string{
	"gpt-4o":                 "o200k_base",
	"gpt-4o-mini":            "o200k_base",
	"gpt-4":                  "cl100k_base",
	"gpt-3.5-turbo":          "cl100k_base",
	"text-embedding-3-large": "cl100k_base",
	"text-embedding-3-small": "cl100k_base",
}

// TiktokenTokenizer 基于 tiktoken 的精确分词器。
// 编码数据首次使用时才加载，加载失败回退到字符估算并只告警一次。
type TiktokenTokenizer struct {
	model    string
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
	fallback *EstimatorTokenizer
}

// NewTiktokenTokenizer 创建 tiktoken 分词器，未知模型默认 cl100k_base。
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	encoding, ok := modelEncodings[model]
	if !ok {
		encoding = "cl100k_base"
	}
	return &TiktokenTokenizer{
		model:    model,
		encoding: encoding,
		fallback: NewEstimatorTokenizer(),
	}
}

func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// CountTokens 返回文本的 token 数，编码不可用时回退到估算。
func (t *TiktokenTokenizer) CountTokens(text string) int {
	if err := t.init(); err != nil {
		return t.fallback.CountTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// ====== 字符估算 ======

// EstimatorTokenizer 基于字符计数的 token 估算器。
// 区分 CJK 和 ASCII 字符，无需下载编码数据。
type EstimatorTokenizer struct{}

// NewEstimatorTokenizer 创建估算分词器。
func NewEstimatorTokenizer() *EstimatorTokenizer {
	return &EstimatorTokenizer{}
}

// CountTokens 估算 token 数。CJK 约 1.5 字符/token，ASCII 约 4 字符/token。
func (e *EstimatorTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	totalChars := utf8.RuneCountInString(text)
	cjkCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		}
	}

	estimated := int(float64(cjkCount)/1.5 + float64(totalChars-cjkCount)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated
}

// isCJK returns true if the rune is a CJK character.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x20000 && r <= 0x2A6DF) || // CJK Extension B
		(r >= 0xF900 && r <= 0xFAFF) || // CJK Compatibility Ideographs
		(r >= 0x3000 && r <= 0x303F) || // CJK Symbols and Punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // Halfwidth and Fullwidth Forms
}
