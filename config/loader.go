// =============================================================================
// 📦 RAGFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("RAGFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/ragflow/chunking"
	"github.com/BaSui01/ragflow/embedding"
	"github.com/BaSui01/ragflow/eval"
	"github.com/BaSui01/ragflow/rerank"
	"github.com/BaSui01/ragflow/retrieval"
	"github.com/BaSui01/ragflow/store"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 RAGFlow 的完整配置结构
type Config struct {
	// Retrieval 检索管线配置
	Retrieval retrieval.PipelineConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Index 向量索引配置
	Index IndexConfig `yaml:"index" env:"INDEX"`

	// BM25 词法检索参数
	BM25 retrieval.BM25Config `yaml:"bm25" env:"BM25"`

	// Chunking 文档分块配置
	Chunking chunking.SplitterConfig `yaml:"chunking" env:"CHUNKING"`

	// Embedding 嵌入服务配置
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Rerank 重排序服务配置
	Rerank RerankConfig `yaml:"rerank" env:"RERANK"`

	// Eval 批量评估配置
	Eval eval.EvaluatorConfig `yaml:"eval" env:"EVAL"`

	// FAQ 问答直答缓存配置
	FAQ FAQConfig `yaml:"faq" env:"FAQ"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
}

// IndexConfig 向量索引配置
type IndexConfig struct {
	// Type 索引类型: flat（精确、确定性）, hnsw（近似、适合大语料）
	Type string `yaml:"type" env:"TYPE"`

	// HNSW 图索引参数，仅 type 为 hnsw 时生效
	HNSW store.HNSWConfig `yaml:"hnsw" env:"HNSW"`
}

// EmbeddingConfig 嵌入服务配置
type EmbeddingConfig struct {
	// Provider 嵌入提供商: openai, jina
	Provider string `yaml:"provider" env:"PROVIDER"`

	// OpenAI 提供商配置
	OpenAI embedding.OpenAIConfig `yaml:"openai" env:"OPENAI"`

	// Jina 提供商配置
	Jina embedding.JinaConfig `yaml:"jina" env:"JINA"`

	// CacheEnabled 是否启用 Redis 嵌入缓存
	CacheEnabled bool `yaml:"cache_enabled" env:"CACHE_ENABLED"`

	// Cache Redis 缓存配置
	Cache embedding.CacheConfig `yaml:"cache" env:"CACHE"`
}

// RerankConfig 重排序服务配置
type RerankConfig struct {
	// Provider 重排序提供商: cohere, jina, overlap
	// overlap 为无外部依赖的本地词法重排
	Provider string `yaml:"provider" env:"PROVIDER"`

	// Cohere 提供商配置
	Cohere rerank.CohereConfig `yaml:"cohere" env:"COHERE"`

	// Jina 提供商配置
	Jina rerank.JinaConfig `yaml:"jina" env:"JINA"`
}

// FAQConfig 问答直答缓存配置
type FAQConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// 命中阈值，问题相似度达到该值直接返回缓存答案
	Threshold float64 `yaml:"threshold" env:"THRESHOLD"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "RAGFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段。
// 环境变量名取 env tag，子包配置结构体没有 env tag 时退化为
// yaml tag 的大写形式，例如 RAGFLOW_BM25_K1。
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := envKeyForField(fieldType)
		if envTag == "" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// envKeyForField 计算字段的环境变量名后缀
func envKeyForField(f reflect.StructField) string {
	if tag := f.Tag.Get("env"); tag != "" {
		if tag == "-" {
			return ""
		}
		return tag
	}
	yamlTag := f.Tag.Get("yaml")
	if yamlTag == "" || yamlTag == "-" {
		return ""
	}
	name := strings.Split(yamlTag, ",")[0]
	if name == "" {
		return ""
	}
	return strings.ToUpper(name)
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if err := c.Retrieval.Fusion.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Retrieval.SemanticK <= 0 || c.Retrieval.LexicalK <= 0 {
		errs = append(errs, "semantic_k and lexical_k must be positive")
	}
	if c.Retrieval.RerankCandidates <= 0 {
		errs = append(errs, "rerank_candidates must be positive")
	}

	if c.BM25.K1 <= 0 {
		errs = append(errs, "bm25 k1 must be positive")
	}
	if c.BM25.B < 0 || c.BM25.B > 1 {
		errs = append(errs, "bm25 b must be between 0 and 1")
	}

	if c.Chunking.ChunkSize <= 0 {
		errs = append(errs, "chunk_size must be positive")
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errs = append(errs, "chunk_overlap must be non-negative and less than chunk_size")
	}

	switch store.IndexType(c.Index.Type) {
	case store.IndexFlat, store.IndexHNSW:
	default:
		errs = append(errs, fmt.Sprintf("unknown index type %q", c.Index.Type))
	}

	switch c.Embedding.Provider {
	case "openai", "jina":
	default:
		errs = append(errs, fmt.Sprintf("unknown embedding provider %q", c.Embedding.Provider))
	}

	switch c.Rerank.Provider {
	case "cohere", "jina", "overlap":
	default:
		errs = append(errs, fmt.Sprintf("unknown rerank provider %q", c.Rerank.Provider))
	}

	if c.Eval.Concurrency <= 0 {
		errs = append(errs, "eval concurrency must be positive")
	}

	if c.FAQ.Enabled && (c.FAQ.Threshold <= 0 || c.FAQ.Threshold > 1) {
		errs = append(errs, "faq threshold must be in (0, 1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
