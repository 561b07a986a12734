package eval

import (
	"context"
	"strings"
	"unicode"

	"github.com/BaSui01/ragflow/store"
	"github.com/BaSui01/ragflow/types"
)

// DefaultSupportThreshold 语句被上下文支持的最低词召回率
const DefaultSupportThreshold = 0.6

// DefaultRelevanceThreshold 上下文与参考答案相关的最低词覆盖率
const DefaultRelevanceThreshold = 0.3

// ====== faithfulness ======

// FaithfulnessMetric 忠实度：答案中被检索上下文支持的语句比例。
// 语句的词召回率达到阈值即视为被支持。
type FaithfulnessMetric struct {
	SupportThreshold float64
}

// NewFaithfulnessMetric 创建忠实度指标
func NewFaithfulnessMetric() *FaithfulnessMetric {
	return &FaithfulnessMetric{SupportThreshold: DefaultSupportThreshold}
}

func (m *FaithfulnessMetric) Name() string { return "faithfulness" }

func (m *FaithfulnessMetric) Compute(ctx context.Context, sample *Sample) (float64, error) {
	if strings.TrimSpace(sample.Answer) == "" {
		return 0, types.NewError(types.ErrMetricComputationFailed, "faithfulness requires an answer")
	}

	statements := splitSentences(sample.Answer)
	if len(statements) == 0 {
		return 0, types.NewError(types.ErrMetricComputationFailed, "answer has no statements")
	}
	if len(sample.Contexts) == 0 {
		return 0.0, nil
	}

	contextTokens := make([]map[string]bool, len(sample.Contexts))
	for i, c := range sample.Contexts {
		contextTokens[i] = tokenSet(c)
	}

	supported := 0
	for _, statement := range statements {
		tokens := tokenize(statement)
		for _, ctxSet := range contextTokens {
			if tokenRecall(tokens, ctxSet) >= m.SupportThreshold {
				supported++
				break
			}
		}
	}
	return float64(supported) / float64(len(statements)), nil
}

// ====== answer_relevancy ======

// AnswerRelevancyMetric 答案相关性：问题与答案嵌入的余弦相似度。
type AnswerRelevancyMetric struct {
	embedder Embedder
}

// NewAnswerRelevancyMetric 创建答案相关性指标
func NewAnswerRelevancyMetric(embedder Embedder) *AnswerRelevancyMetric {
	return &AnswerRelevancyMetric{embedder: embedder}
}

func (m *AnswerRelevancyMetric) Name() string { return "answer_relevancy" }

func (m *AnswerRelevancyMetric) Compute(ctx context.Context, sample *Sample) (float64, error) {
	if strings.TrimSpace(sample.Question) == "" || strings.TrimSpace(sample.Answer) == "" {
		return 0, types.NewError(types.ErrMetricComputationFailed, "answer_relevancy requires question and answer")
	}
	return embeddingSimilarity(ctx, m.embedder, sample.Question, sample.Answer)
}

// ====== answer_similarity ======

// AnswerSimilarityMetric 答案语义相似度：答案与参考答案嵌入的余弦相似度。
type AnswerSimilarityMetric struct {
	embedder Embedder
}

// NewAnswerSimilarityMetric 创建答案相似度指标
func NewAnswerSimilarityMetric(embedder Embedder) *AnswerSimilarityMetric {
	return &AnswerSimilarityMetric{embedder: embedder}
}

func (m *AnswerSimilarityMetric) Name() string { return "answer_similarity" }

func (m *AnswerSimilarityMetric) Compute(ctx context.Context, sample *Sample) (float64, error) {
	if strings.TrimSpace(sample.GroundTruth) == "" {
		return 0, types.NewError(types.ErrMetricComputationFailed, "answer_similarity requires ground truth")
	}
	if strings.TrimSpace(sample.Answer) == "" {
		return 0, types.NewError(types.ErrMetricComputationFailed, "answer_similarity requires an answer")
	}
	return embeddingSimilarity(ctx, m.embedder, sample.Answer, sample.GroundTruth)
}

// ====== answer_correctness ======

// AnswerCorrectnessMetric 答案正确性：词级 F1 与语义相似度的加权和。
type AnswerCorrectnessMetric struct {
	embedder Embedder

	// F1Weight 词级 F1 的权重，其余权重归语义相似度
	F1Weight float64
}

// NewAnswerCorrectnessMetric 创建答案正确性指标
func NewAnswerCorrectnessMetric(embedder Embedder) *AnswerCorrectnessMetric {
	return &AnswerCorrectnessMetric{
		embedder: embedder,
		F1Weight: 0.75,
	}
}

func (m *AnswerCorrectnessMetric) Name() string { return "answer_correctness" }

func (m *AnswerCorrectnessMetric) Compute(ctx context.Context, sample *Sample) (float64, error) {
	if strings.TrimSpace(sample.GroundTruth) == "" {
		return 0, types.NewError(types.ErrMetricComputationFailed, "answer_correctness requires ground truth")
	}
	if strings.TrimSpace(sample.Answer) == "" {
		return 0, types.NewError(types.ErrMetricComputationFailed, "answer_correctness requires an answer")
	}

	f1 := tokenF1(tokenize(sample.Answer), tokenize(sample.GroundTruth))

	similarity, err := embeddingSimilarity(ctx, m.embedder, sample.Answer, sample.GroundTruth)
	if err != nil {
		return 0, err
	}

	return m.F1Weight*f1 + (1-m.F1Weight)*similarity, nil
}

// ====== context_recall ======

// ContextRecallMetric 上下文召回率：参考答案中可归因到检索上下文的语句比例。
type ContextRecallMetric struct {
	SupportThreshold float64
}

// NewContextRecallMetric 创建上下文召回率指标
func NewContextRecallMetric() *ContextRecallMetric {
	return &ContextRecallMetric{SupportThreshold: DefaultSupportThreshold}
}

func (m *ContextRecallMetric) Name() string { return "context_recall" }

func (m *ContextRecallMetric) Compute(ctx context.Context, sample *Sample) (float64, error) {
	if strings.TrimSpace(sample.GroundTruth) == "" {
		return 0, types.NewError(types.ErrMetricComputationFailed, "context_recall requires ground truth")
	}

	statements := splitSentences(sample.GroundTruth)
	if len(statements) == 0 {
		return 0, types.NewError(types.ErrMetricComputationFailed, "ground truth has no statements")
	}
	if len(sample.Contexts) == 0 {
		return 0.0, nil
	}

	contextTokens := make([]map[string]bool, len(sample.Contexts))
	for i, c := range sample.Contexts {
		contextTokens[i] = tokenSet(c)
	}

	attributed := 0
	for _, statement := range statements {
		tokens := tokenize(statement)
		for _, ctxSet := range contextTokens {
			if tokenRecall(tokens, ctxSet) >= m.SupportThreshold {
				attributed++
				break
			}
		}
	}
	return float64(attributed) / float64(len(statements)), nil
}

// ====== context_precision ======

// ContextPrecisionMetric 上下文精确率：相关上下文是否排在前列。
// 取相关位置上的 precision@k 均值，排序越靠前得分越高。
type ContextPrecisionMetric struct {
	RelevanceThreshold float64
}

// NewContextPrecisionMetric 创建上下文精确率指标
func NewContextPrecisionMetric() *ContextPrecisionMetric {
	return &ContextPrecisionMetric{RelevanceThreshold: DefaultRelevanceThreshold}
}

func (m *ContextPrecisionMetric) Name() string { return "context_precision" }

func (m *ContextPrecisionMetric) Compute(ctx context.Context, sample *Sample) (float64, error) {
	if strings.TrimSpace(sample.GroundTruth) == "" {
		return 0, types.NewError(types.ErrMetricComputationFailed, "context_precision requires ground truth")
	}
	if len(sample.Contexts) == 0 {
		return 0.0, nil
	}

	gtTokens := tokenize(sample.GroundTruth)

	var precisionSum float64
	relevantSeen := 0
	for k, c := range sample.Contexts {
		if tokenRecall(gtTokens, tokenSet(c)) >= m.RelevanceThreshold {
			relevantSeen++
			precisionSum += float64(relevantSeen) / float64(k+1)
		}
	}

	if relevantSeen == 0 {
		return 0.0, nil
	}
	return precisionSum / float64(relevantSeen), nil
}

// ====== 辅助函数 ======

// DefaultMetrics 返回全套检索增强生成评估指标
func DefaultMetrics(embedder Embedder) []Metric {
	return []Metric{
		NewFaithfulnessMetric(),
		NewAnswerRelevancyMetric(embedder),
		NewAnswerCorrectnessMetric(embedder),
		NewAnswerSimilarityMetric(embedder),
		NewContextRecallMetric(),
		NewContextPrecisionMetric(),
	}
}

// embeddingSimilarity 两段文本嵌入的余弦相似度，负值截断为 0。
func embeddingSimilarity(ctx context.Context, embedder Embedder, a, b string) (float64, error) {
	if embedder == nil {
		return 0, types.NewError(types.ErrMetricComputationFailed, "metric requires an embedder")
	}

	va, err := embedder.Embed(ctx, a)
	if err != nil {
		return 0, types.NewError(types.ErrMetricComputationFailed, "embedding failed").WithCause(err)
	}
	vb, err := embedder.Embed(ctx, b)
	if err != nil {
		return 0, types.NewError(types.ErrMetricComputationFailed, "embedding failed").WithCause(err)
	}

	similarity := store.CosineSimilarity(va, vb)
	if similarity < 0 {
		similarity = 0
	}
	return similarity, nil
}

// tokenize 小写分词，丢弃标点
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// tokenSet 词集合
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range tokenize(text) {
		set[token] = true
	}
	return set
}

// tokenRecall 词召回率：tokens 中出现在 set 里的比例
func tokenRecall(tokens []string, set map[string]bool) float64 {
	if len(tokens) == 0 {
		return 0.0
	}
	hit := 0
	for _, token := range tokens {
		if set[token] {
			hit++
		}
	}
	return float64(hit) / float64(len(tokens))
}

// tokenF1 词级 F1
func tokenF1(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	bSet := make(map[string]int)
	for _, token := range b {
		bSet[token]++
	}

	overlap := 0
	for _, token := range a {
		if bSet[token] > 0 {
			overlap++
			bSet[token]--
		}
	}
	if overlap == 0 {
		return 0.0
	}

	precision := float64(overlap) / float64(len(a))
	recall := float64(overlap) / float64(len(b))
	return 2 * precision * recall / (precision + recall)
}

// splitSentences 按句末标点分割语句
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '。', '!', '！', '?', '？', '\n':
			flush()
		}
	}
	flush()

	return sentences
}
