package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/ragflow/types"
)

// JinaProvider 调用 Jina AI /v1/rerank 接口进行交叉编码打分。
type JinaProvider struct {
	cfg    JinaConfig
	client *http.Client
}

// NewJinaProvider 创建 Jina 打分提供商。
func NewJinaProvider(cfg JinaConfig) *JinaProvider {
	def := DefaultJinaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	return &JinaProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *JinaProvider) Name() string      { return "jina-rerank" }
func (p *JinaProvider) MaxDocuments() int { return 1024 }

type jinaScoreRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopN      int      `json:"top_n,omitempty"`
}

type jinaScoreResponse struct {
	Model   string `json:"model"`
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Score 批量打分。
func (p *JinaProvider) Score(ctx context.Context, req *ScoreRequest) (*ScoreResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := jinaScoreRequest{
		Query:     req.Query,
		Documents: req.Documents,
		Model:     model,
		TopN:      req.TopN,
	}

	payload, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/rerank",
		bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrScoringUnavailable, "jina rerank request failed").
			WithProvider(p.Name()).WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, statusToError(p.Name(), resp.StatusCode, string(raw))
	}

	var jResp jinaScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&jResp); err != nil {
		return nil, types.NewError(types.ErrScoringUnavailable, "failed to decode jina response").
			WithProvider(p.Name()).WithCause(err)
	}

	results := make([]ScoreResult, len(jResp.Results))
	for i, r := range jResp.Results {
		results[i] = ScoreResult{Index: r.Index, RelevanceScore: r.RelevanceScore}
	}

	return &ScoreResponse{
		Provider: p.Name(),
		Model:    jResp.Model,
		Results:  results,
		Usage:    Usage{TotalTokens: jResp.Usage.TotalTokens},
	}, nil
}
