package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/types"
)

// BM25Config BM25 参数配置
type BM25Config struct {
	K1 float64 `json:"k1" yaml:"k1"` // 词频饱和参数 (1.2-2.0)
	B  float64 `json:"b" yaml:"b"`   // 文档长度归一化参数 (0.75)
}

// DefaultBM25Config 返回默认 BM25 配置
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1: 1.5,
		B:  0.75,
	}
}

// BM25Retriever 词法检索器（Okapi BM25）
type BM25Retriever struct {
	config BM25Config

	mu        sync.RWMutex
	docIDs    []string                    // 按 ID 升序
	termFreqs map[string]map[string]int   // docID -> term -> freq
	docLens   map[string]int              // docID -> token 数
	idf       map[string]float64          // term -> idf
	avgDocLen float64

	logger *zap.Logger
}

// NewBM25Retriever 创建 BM25 检索器
func NewBM25Retriever(config BM25Config, logger *zap.Logger) *BM25Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BM25Retriever{
		config:    config,
		termFreqs: make(map[string]map[string]int),
		docLens:   make(map[string]int),
		idf:       make(map[string]float64),
		logger:    logger,
	}
}

// IndexChunks 索引块并预计算 BM25 统计信息。
// 全量重建：重复调用会替换此前的语料。
func (r *BM25Retriever) IndexChunks(chunks []types.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.docIDs = make([]string, 0, len(chunks))
	r.termFreqs = make(map[string]map[string]int, len(chunks))
	r.docLens = make(map[string]int, len(chunks))
	r.idf = make(map[string]float64)

	totalLen := 0
	termDocCount := make(map[string]int)

	for _, chunk := range chunks {
		terms := tokenize(chunk.Text)
		r.docIDs = append(r.docIDs, chunk.ID)
		r.docLens[chunk.ID] = len(terms)
		totalLen += len(terms)

		freqs := make(map[string]int, len(terms))
		for _, term := range terms {
			freqs[term]++
		}
		r.termFreqs[chunk.ID] = freqs

		for term := range freqs {
			termDocCount[term]++
		}
	}
	sort.Strings(r.docIDs)

	if len(chunks) > 0 {
		r.avgDocLen = float64(totalLen) / float64(len(chunks))
	}

	n := float64(len(chunks))
	for term, df := range termDocCount {
		r.idf[term] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
	}

	r.logger.Info("bm25 corpus indexed",
		zap.Int("docs", len(chunks)),
		zap.Float64("avg_doc_len", r.avgDocLen))

	return nil
}

// Search 返回 BM25 分数最高的 ≤k 个块，按分数降序，
// 分数相同按块 ID 升序。未索引任何文档时返回 EMPTY_CORPUS。
func (r *BM25Retriever) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k < 1 {
		return nil, types.NewError(types.ErrInvalidRequest, "k must be >= 1")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.docIDs) == 0 {
		return nil, types.NewError(types.ErrEmptyCorpus, "no documents indexed")
	}

	queryTerms := tokenize(query)
	hits := make([]Hit, 0, len(r.docIDs))

	for _, docID := range r.docIDs {
		score := r.scoreDoc(docID, queryTerms)
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{ChunkID: docID, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// scoreDoc 对单个文档计算 BM25 分数（持有读锁时调用）
func (r *BM25Retriever) scoreDoc(docID string, queryTerms []string) float64 {
	freqs := r.termFreqs[docID]
	docLen := float64(r.docLens[docID])

	score := 0.0
	for _, qTerm := range queryTerms {
		tf, ok := freqs[qTerm]
		if !ok {
			continue
		}
		idf := r.idf[qTerm]

		numerator := float64(tf) * (r.config.K1 + 1.0)
		denominator := float64(tf) + r.config.K1*(1.0-r.config.B+r.config.B*(docLen/r.avgDocLen))

		score += idf * (numerator / denominator)
	}

	return score
}

// CorpusSize 返回已索引文档数
func (r *BM25Retriever) CorpusSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docIDs)
}

// tokenize 分词：转小写并按空白分割
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
