package eval

import (
	"context"
	"time"
)

// Metric 评估指标接口
type Metric interface {
	// Name 指标名称
	Name() string
	// Compute 计算指标值，范围 0.0 - 1.0
	Compute(ctx context.Context, sample *Sample) (float64, error)
}

// Embedder 将文本编码为稠密向量，语义类指标依赖它。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Sample 单条评估样本
type Sample struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Contexts    []string `json:"contexts"`
	GroundTruth string   `json:"ground_truth,omitempty"`
}

// ItemResult 单条样本的评估结果
type ItemResult struct {
	SampleID string             `json:"sample_id"`
	Scores   map[string]float64 `json:"scores"`
	Errors   []string           `json:"errors,omitempty"`
}

// NewItemResult 创建样本评估结果
func NewItemResult(sampleID string) *ItemResult {
	return &ItemResult{
		SampleID: sampleID,
		Scores:   make(map[string]float64),
	}
}

// AddScore 记录指标值
func (r *ItemResult) AddScore(name string, value float64) *ItemResult {
	r.Scores[name] = value
	return r
}

// AddError 记录指标错误
func (r *ItemResult) AddError(err string) *ItemResult {
	r.Errors = append(r.Errors, err)
	return r
}

// Failed 样本是否有指标计算失败
func (r *ItemResult) Failed() bool {
	return len(r.Errors) > 0
}

// Report 整批评估报告
type Report struct {
	Items       []*ItemResult      `json:"items"`
	Averages    map[string]float64 `json:"averages"`
	FailedItems int                `json:"failed_items"`
	Duration    time.Duration      `json:"duration"`
	CreatedAt   time.Time          `json:"created_at"`
}
