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

// CohereProvider 调用 Cohere /v2/rerank 接口进行交叉编码打分。
type CohereProvider struct {
	cfg    CohereConfig
	client *http.Client
}

// NewCohereProvider 创建 Cohere 打分提供商。
func NewCohereProvider(cfg CohereConfig) *CohereProvider {
	def := DefaultCohereConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	return &CohereProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *CohereProvider) Name() string      { return "cohere-rerank" }
func (p *CohereProvider) MaxDocuments() int { return 1000 }

type cohereScoreRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopN      int      `json:"top_n,omitempty"`
}

type cohereScoreResponse struct {
	ID      string `json:"id"`
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Meta struct {
		BilledUnits struct {
			SearchUnits int `json:"search_units"`
		} `json:"billed_units"`
	} `json:"meta"`
}

// Score 批量打分。网络错误和 5xx 返回 SCORING_UNAVAILABLE。
func (p *CohereProvider) Score(ctx context.Context, req *ScoreRequest) (*ScoreResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := cohereScoreRequest{
		Query:     req.Query,
		Documents: req.Documents,
		Model:     model,
		TopN:      req.TopN,
	}

	payload, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v2/rerank",
		bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrScoringUnavailable, "cohere rerank request failed").
			WithProvider(p.Name()).WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, statusToError(p.Name(), resp.StatusCode, string(raw))
	}

	var cResp cohereScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return nil, types.NewError(types.ErrScoringUnavailable, "failed to decode cohere response").
			WithProvider(p.Name()).WithCause(err)
	}

	results := make([]ScoreResult, len(cResp.Results))
	for i, r := range cResp.Results {
		results[i] = ScoreResult{Index: r.Index, RelevanceScore: r.RelevanceScore}
	}

	return &ScoreResponse{
		Provider: p.Name(),
		Model:    model,
		Results:  results,
		Usage:    Usage{SearchUnits: cResp.Meta.BilledUnits.SearchUnits},
	}, nil
}
