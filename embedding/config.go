package embedding

import "time"

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"` // text-embedding-3-large
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// RPS caps outgoing requests per second, 0 disables limiting.
	RPS float64 `json:"rps,omitempty" yaml:"rps,omitempty"`
}

// JinaConfig configures the Jina AI embedding provider.
type JinaConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"` // jina-embeddings-v3
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RPS        float64       `json:"rps,omitempty" yaml:"rps,omitempty"`
}

// DefaultOpenAIConfig returns default OpenAI embedding config.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:    "https://api.openai.com",
		Model:      "text-embedding-3-large",
		Dimensions: 3072,
		Timeout:    30 * time.Second,
	}
}

// DefaultJinaConfig returns default Jina embedding config.
func DefaultJinaConfig() JinaConfig {
	return JinaConfig{
		BaseURL:    "https://api.jina.ai",
		Model:      "jina-embeddings-v3",
		Dimensions: 1024,
		Timeout:    30 * time.Second,
	}
}
