package rerank

import (
	"context"

	"github.com/BaSui01/ragflow/types"
)

// ScoreRequest 代表一次批量交叉编码打分请求。
type ScoreRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
	TopN      int      `json:"top_n,omitempty"`
}

// ScoreResult 单个文档的相关性得分，Index 指向输入文档的原始下标。
type ScoreResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Usage 上游计费统计
type Usage struct {
	SearchUnits int `json:"search_units,omitempty"`
	TotalTokens int `json:"total_tokens,omitempty"`
}

// ScoreResponse 批量打分响应
type ScoreResponse struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Results  []ScoreResult `json:"results"`
	Usage    Usage         `json:"usage"`
}

// Provider 定义统一的交叉编码打分接口。
type Provider interface {
	// Score 对查询和文档批量打分。
	Score(ctx context.Context, req *ScoreRequest) (*ScoreResponse, error)

	// Name 返回提供商名称。
	Name() string

	// MaxDocuments 返回单次请求支持的最大文档数。
	MaxDocuments() int
}

// statusToError 将上游 HTTP 状态码映射为打分服务不可用错误。
// 重排序是可退化阶段：认证失败、限流和服务端错误都不应让整个
// 检索请求失败，状态码与可重试性保留在错误里供诊断和重试决策。
func statusToError(provider string, status int, body string) *types.Error {
	switch {
	case status == 401 || status == 403:
		return types.NewError(types.ErrScoringUnavailable, "rerank api rejected credentials").
			WithProvider(provider).WithHTTPStatus(status)
	case status == 429:
		return types.NewError(types.ErrScoringUnavailable, "rerank api rate limited").
			WithProvider(provider).WithHTTPStatus(status).WithRetryable(true)
	default:
		return types.NewError(types.ErrScoringUnavailable, "rerank api error: "+body).
			WithProvider(provider).WithHTTPStatus(status).WithRetryable(status >= 500)
	}
}
