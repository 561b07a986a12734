package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/BaSui01/ragflow/types"
)

// BaseProvider 为嵌入提供者提供共同的 HTTP 请求、限流和错误映射.
type BaseProvider struct {
	name       string
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxBatch   int
	limiter    *rate.Limiter
}

// BaseConfig 持有基础提供者的共同配置.
type BaseConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	MaxBatch   int
	Timeout    time.Duration
	RPS        float64
}

// NewBaseProvider 创建基础提供者.
func NewBaseProvider(cfg BaseConfig) *BaseProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxBatch := cfg.MaxBatch
	if maxBatch == 0 {
		maxBatch = 100
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return &BaseProvider{
		name:       cfg.Name,
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxBatch:   maxBatch,
		limiter:    limiter,
	}
}

func (p *BaseProvider) Name() string      { return p.name }
func (p *BaseProvider) Dimensions() int   { return p.dimensions }
func (p *BaseProvider) MaxBatchSize() int { return p.maxBatch }

// EmbedQuery 嵌入单个查询字符串.
func (p *BaseProvider) EmbedQuery(ctx context.Context, query string, embedFn func(context.Context, *EmbeddingRequest) (*EmbeddingResponse, error)) ([]float64, error) {
	resp, err := embedFn(ctx, &EmbeddingRequest{
		Input:     []string{query},
		InputType: InputTypeQuery,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "no embeddings returned").WithProvider(p.name)
	}
	return resp.Embeddings[0].Embedding, nil
}

// EmbedDocuments 批量嵌入文档.
func (p *BaseProvider) EmbedDocuments(ctx context.Context, documents []string, embedFn func(context.Context, *EmbeddingRequest) (*EmbeddingResponse, error)) ([][]float64, error) {
	resp, err := embedFn(ctx, &EmbeddingRequest{
		Input:     documents,
		InputType: InputTypeDocument,
	})
	if err != nil {
		return nil, err
	}
	result := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		result[i] = emb.Embedding
	}
	return result, nil
}

// DoRequest 执行 HTTP 请求并进行限流和错误映射.
func (p *BaseProvider) DoRequest(ctx context.Context, method, endpoint string, body any, headers map[string]string) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, types.NewError(types.ErrTimeout, "rate limiter wait cancelled").
				WithProvider(p.name).WithCause(err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRequest, "failed to marshal request").WithCause(err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "failed to create request").WithCause(err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, err.Error()).
			WithProvider(p.name).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to read response").
			WithProvider(p.name).WithCause(err)
	}

	if resp.StatusCode >= 400 {
		return nil, mapHTTPError(resp.StatusCode, string(respBody), p.name)
	}

	return respBody, nil
}

// mapHTTPError 将 HTTP 状态映射为 types.Error.
func mapHTTPError(status int, msg, provider string) *types.Error {
	code := types.ErrUpstreamError
	retryable := status >= 500

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = types.ErrAuthentication
	case http.StatusTooManyRequests:
		code = types.ErrRateLimited
		retryable = true
	case http.StatusBadRequest:
		code = types.ErrInvalidRequest
	}

	return types.NewError(code, msg).
		WithProvider(provider).
		WithHTTPStatus(status).
		WithRetryable(retryable)
}

// ChooseModel 从请求、默认配置和兜底值中选择模型.
func ChooseModel(reqModel, defaultModel, fallback string) string {
	if reqModel != "" {
		return reqModel
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallback
}
