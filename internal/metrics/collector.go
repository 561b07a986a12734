package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 检索指标
	retrievalsTotal   *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
	rerankFallbacks   prometheus.Counter

	// 嵌入指标
	embedRequestsTotal   *prometheus.CounterVec
	embedRequestDuration *prometheus.HistogramVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 评估指标
	evalItemsTotal *prometheus.CounterVec
	evalScores     *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到给定 registerer。
// reg 为 nil 时使用 prometheus.DefaultRegisterer。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	factory := func(cv prometheus.Collector) {
		reg.MustRegister(cv)
	}

	// 检索指标
	c.retrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"status"},
	)
	factory(c.retrievalsTotal)

	c.retrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"status"},
	)
	factory(c.retrievalDuration)

	c.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_stage_duration_seconds",
			Help:      "Per-stage retrieval duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"}, // semantic, lexical, fusion, rerank
	)
	factory(c.stageDuration)

	c.rerankFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_fallbacks_total",
			Help:      "Total number of requests degraded to fusion ordering",
		},
	)
	factory(c.rerankFallbacks)

	// 嵌入指标
	c.embedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "status"},
	)
	factory(c.embedRequestsTotal)

	c.embedRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embed_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)
	factory(c.embedRequestDuration)

	// 缓存指标
	c.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)
	factory(c.cacheHits)

	c.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)
	factory(c.cacheMisses)

	// 评估指标
	c.evalItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eval_items_total",
			Help:      "Total number of evaluated items",
		},
		[]string{"status"}, // ok, failed
	)
	factory(c.evalItemsTotal)

	c.evalScores = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "eval_metric_score",
			Help:      "Latest averaged evaluation metric scores",
		},
		[]string{"metric"},
	)
	factory(c.evalScores)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 检索指标记录
// =============================================================================

// RecordRetrieval 记录一次检索请求
func (c *Collector) RecordRetrieval(status string, duration time.Duration) {
	c.retrievalsTotal.WithLabelValues(status).Inc()
	c.retrievalDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordStage 记录单阶段耗时
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRerankFallback 记录一次重排序退化
func (c *Collector) RecordRerankFallback() {
	c.rerankFallbacks.Inc()
}

// =============================================================================
// 🤖 嵌入指标记录
// =============================================================================

// RecordEmbedRequest 记录嵌入请求
func (c *Collector) RecordEmbedRequest(provider, status string, duration time.Duration) {
	c.embedRequestsTotal.WithLabelValues(provider, status).Inc()
	c.embedRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// 📏 评估指标记录
// =============================================================================

// RecordEvalItem 记录单条评估项结果
func (c *Collector) RecordEvalItem(status string) {
	c.evalItemsTotal.WithLabelValues(status).Inc()
}

// RecordEvalScore 记录某指标的批均分
func (c *Collector) RecordEvalScore(metric string, score float64) {
	c.evalScores.WithLabelValues(metric).Set(score)
}
