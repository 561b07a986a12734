package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = fmt.Errorf("cache miss")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return err == ErrCacheMiss
}

// CacheConfig 嵌入缓存配置
type CacheConfig struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 缓存条目过期时间
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// 键前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultCacheConfig 返回默认嵌入缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Addr:      "localhost:6379",
		DB:        0,
		TTL:       24 * time.Hour,
		KeyPrefix: "emb",
	}
}

// Cache 基于 Redis 的嵌入向量缓存。
// 键为模型名和文本内容的 SHA-256 摘要，同一文本重复嵌入只计费一次。
type Cache struct {
	redis  *redis.Client
	config CacheConfig
	logger *zap.Logger
}

// NewCache 创建嵌入缓存并验证连接
func NewCache(config CacheConfig, logger *zap.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewCacheWithClient(client, config, logger), nil
}

// NewCacheWithClient 使用既有 Redis 客户端创建嵌入缓存。
// 测试时可注入 miniredis 客户端。
func NewCacheWithClient(client *redis.Client, config CacheConfig, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "emb"
	}
	if config.TTL == 0 {
		config.TTL = 24 * time.Hour
	}
	return &Cache{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "embedding_cache")),
	}
}

// Get 查询缓存的嵌入向量，未命中返回 ErrCacheMiss
func (c *Cache) Get(ctx context.Context, model, text string) ([]float64, error) {
	val, err := c.redis.Get(ctx, c.key(model, text)).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		c.logger.Error("cache get failed", zap.Error(err))
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var embedding []float64
	if err := json.Unmarshal([]byte(val), &embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached embedding: %w", err)
	}
	return embedding, nil
}

// Set 写入嵌入向量
func (c *Cache) Set(ctx context.Context, model, text string, embedding []float64) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(model, text), string(data), c.config.TTL).Err(); err != nil {
		c.logger.Error("cache set failed", zap.Error(err))
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Close 关闭底层 Redis 连接
func (c *Cache) Close() error {
	return c.redis.Close()
}

// key 生成缓存键
func (c *Cache) key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return c.config.KeyPrefix + ":" + model + ":" + hex.EncodeToString(sum[:])
}
