package embedding

import (
	"context"
	"encoding/json"
	"time"
)

// JinaProvider 使用 Jina AI 的 API 生成嵌入.
type JinaProvider struct {
	*BaseProvider
	cfg JinaConfig
}

// NewJinaProvider 创建 Jina AI 嵌入提供者.
func NewJinaProvider(cfg JinaConfig) *JinaProvider {
	def := DefaultJinaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = def.Dimensions
	}

	return &JinaProvider{
		BaseProvider: NewBaseProvider(BaseConfig{
			Name:       "jina-embedding",
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			MaxBatch:   2048,
			Timeout:    cfg.Timeout,
			RPS:        cfg.RPS,
		}),
		cfg: cfg,
	}
}

type jinaEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Task       string   `json:"task,omitempty"`       // retrieval.query or retrieval.passage
	Dimensions int      `json:"dimensions,omitempty"` // Matryoshka dimensions
}

type jinaEmbedResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens  int `json:"total_tokens"`
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

// Embed 使用 Jina AI 生成嵌入.
func (p *JinaProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	model := ChooseModel(req.Model, p.cfg.Model, "jina-embeddings-v3")

	body := jinaEmbedRequest{
		Input:      req.Input,
		Model:      model,
		Dimensions: req.Dimensions,
	}

	// 映射 Jina 任务的输入类型
	switch req.InputType {
	case InputTypeQuery:
		body.Task = "retrieval.query"
	case InputTypeDocument:
		body.Task = "retrieval.passage"
	}

	respBody, err := p.DoRequest(ctx, "POST", "/v1/embeddings", body, map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}

	var jResp jinaEmbedResponse
	if err := json.Unmarshal(respBody, &jResp); err != nil {
		return nil, err
	}

	embeddings := make([]EmbeddingData, len(jResp.Data))
	for i, d := range jResp.Data {
		embeddings[i] = EmbeddingData{
			Index:     d.Index,
			Embedding: d.Embedding,
		}
	}

	return &EmbeddingResponse{
		Provider:   p.Name(),
		Model:      jResp.Model,
		Embeddings: embeddings,
		Usage: EmbeddingUsage{
			PromptTokens: jResp.Usage.PromptTokens,
			TotalTokens:  jResp.Usage.TotalTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}

// EmbedQuery 嵌入单个查询.
func (p *JinaProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return p.BaseProvider.EmbedQuery(ctx, query, p.Embed)
}

// EmbedDocuments 批量嵌入文档.
func (p *JinaProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	return p.BaseProvider.EmbedDocuments(ctx, documents, p.Embed)
}
