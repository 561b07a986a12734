package rerank

import "time"

// CohereConfig configures the Cohere cross-encoder provider.
type CohereConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // rerank-v3.5
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// JinaConfig configures the Jina AI cross-encoder provider.
type JinaConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // jina-reranker-v2-base-multilingual
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultCohereConfig returns default Cohere config.
func DefaultCohereConfig() CohereConfig {
	return CohereConfig{
		BaseURL: "https://api.cohere.ai",
		Model:   "rerank-v3.5",
		Timeout: 30 * time.Second,
	}
}

// DefaultJinaConfig returns default Jina config.
func DefaultJinaConfig() JinaConfig {
	return JinaConfig{
		BaseURL: "https://api.jina.ai",
		Model:   "jina-reranker-v2-base-multilingual",
		Timeout: 30 * time.Second,
	}
}
