package eval

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/ragflow/internal/metrics"
	"github.com/BaSui01/ragflow/types"
)

// EvaluatorConfig 评估器配置
type EvaluatorConfig struct {
	// Concurrency 并发评估的样本数
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// SampleTimeout 单个样本的评估超时
	SampleTimeout time.Duration `json:"sample_timeout" yaml:"sample_timeout"`
}

// DefaultEvaluatorConfig 返回默认评估器配置
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Concurrency:   5,
		SampleTimeout: 60 * time.Second,
	}
}

// Pipeline 端到端问答流水线。
// 样本缺少检索上下文时，评估器先跑流水线补齐答案与上下文再打分。
type Pipeline interface {
	Run(ctx context.Context, question string) (answer string, contexts []string, err error)
}

// Evaluator 批量评估器。
// 样本之间并发执行，单个样本或指标失败只记录到该样本的结果中，
// 整批评估总是跑完。
type Evaluator struct {
	config    EvaluatorConfig
	metrics   []Metric
	pipeline  Pipeline
	collector *metrics.Collector
	logger    *zap.Logger
}

// EvaluatorOption 评估器可选配置
type EvaluatorOption func(*Evaluator)

// WithCollector 接入指标收集器
func WithCollector(c *metrics.Collector) EvaluatorOption {
	return func(e *Evaluator) { e.collector = c }
}

// WithPipeline 接入问答流水线，用于为缺少上下文的样本生成答案与上下文
func WithPipeline(p Pipeline) EvaluatorOption {
	return func(e *Evaluator) { e.pipeline = p }
}

// NewEvaluator 创建评估器
func NewEvaluator(config EvaluatorConfig, metricList []Metric, logger *zap.Logger, opts ...EvaluatorOption) (*Evaluator, error) {
	if len(metricList) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "at least one metric is required")
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Evaluator{
		config:  config,
		metrics: metricList,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate 评估整批样本并生成报告。
// 返回 error 仅在输入非法或上下文取消时；指标失败不升级为请求失败。
func (e *Evaluator) Evaluate(ctx context.Context, samples []Sample) (*Report, error) {
	if len(samples) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "no samples to evaluate")
	}

	start := time.Now()
	results := make([]*ItemResult, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)

	for i, sample := range samples {
		i, sample := i, sample
		g.Go(func() error {
			results[i] = e.evaluateSample(gctx, &sample)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, types.NewError(types.ErrPipelineFailed, "evaluation cancelled").WithCause(err)
	}

	report := e.buildReport(results, time.Since(start))

	e.logger.Info("evaluation completed",
		zap.Int("samples", len(samples)),
		zap.Int("failed_items", report.FailedItems),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// evaluateSample 评估单个样本，指标失败被隔离记录。
func (e *Evaluator) evaluateSample(ctx context.Context, sample *Sample) *ItemResult {
	result := NewItemResult(sample.ID)

	sctx := ctx
	if e.config.SampleTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, e.config.SampleTimeout)
		defer cancel()
	}

	ready := true
	if e.pipeline != nil && len(sample.Contexts) == 0 {
		answer, contexts, err := e.pipeline.Run(sctx, sample.Question)
		if err != nil {
			ready = false
			result.AddError("pipeline: " + err.Error())
			e.logger.Warn("pipeline run failed",
				zap.String("sample", sample.ID),
				zap.Error(err))
		} else {
			sample.Contexts = contexts
			if sample.Answer == "" {
				sample.Answer = answer
			}
		}
	}

	if ready {
		for _, metric := range e.metrics {
			score, err := metric.Compute(sctx, sample)
			if err != nil {
				result.AddError(metric.Name() + ": " + err.Error())
				e.logger.Warn("metric computation failed",
					zap.String("sample", sample.ID),
					zap.String("metric", metric.Name()),
					zap.Error(err))
				continue
			}
			result.AddScore(metric.Name(), score)
		}
	}

	if e.collector != nil {
		status := "ok"
		if result.Failed() {
			status = "error"
		}
		e.collector.RecordEvalItem(status)
	}

	return result
}

// buildReport 聚合样本结果并计算各指标均值
func (e *Evaluator) buildReport(results []*ItemResult, duration time.Duration) *Report {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	failed := 0

	for _, item := range results {
		if item.Failed() {
			failed++
		}
		for name, score := range item.Scores {
			sums[name] += score
			counts[name]++
		}
	}

	averages := make(map[string]float64, len(sums))
	for name, sum := range sums {
		averages[name] = sum / float64(counts[name])
		if e.collector != nil {
			e.collector.RecordEvalScore(name, averages[name])
		}
	}

	return &Report{
		Items:       results,
		Averages:    averages,
		FailedItems: failed,
		Duration:    duration,
		CreatedAt:   time.Now(),
	}
}
