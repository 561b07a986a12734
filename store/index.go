package store

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// VectorIndex 向量索引接口
type VectorIndex interface {
	// Build 构建索引
	Build(vectors [][]float64, ids []string) error

	// Search 搜索最近邻
	Search(query []float64, k int) ([]SearchResult, error)

	// Add 添加向量
	Add(vector []float64, id string) error

	// Size 索引大小
	Size() int
}

// SearchResult 搜索结果
type SearchResult struct {
	ID       string
	Distance float64
	Score    float64 // 1 - distance (for cosine)
}

// IndexType 索引类型
type IndexType string

const (
	IndexFlat IndexType = "flat" // 精确搜索（确定性）
	IndexHNSW IndexType = "hnsw" // HNSW 图索引（近似）
)

// CosineSimilarity 计算余弦相似度。
// 维度不一致或零向量返回 0。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ====== Flat 索引 ======

// FlatIndex 精确暴力搜索索引。
// 结果按相似度降序，分数相同按 ID 升序，重复调用结果完全一致。
type FlatIndex struct {
	vectors map[string][]float64
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewFlatIndex 创建 Flat 索引
func NewFlatIndex(logger *zap.Logger) *FlatIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlatIndex{
		vectors: make(map[string][]float64),
		logger:  logger,
	}
}

// Build 构建索引
func (idx *FlatIndex) Build(vectors [][]float64, ids []string) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("vectors and ids length mismatch")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = make(map[string][]float64, len(vectors))
	for i, vec := range vectors {
		idx.vectors[ids[i]] = vec
	}

	idx.logger.Info("flat index built", zap.Int("size", len(idx.vectors)))
	return nil
}

// Search 搜索最近邻
func (idx *FlatIndex) Search(query []float64, k int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		similarity := CosineSimilarity(query, vec)
		results = append(results, SearchResult{
			ID:       id,
			Distance: 1.0 - similarity,
			Score:    similarity,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Add 添加向量
func (idx *FlatIndex) Add(vector []float64, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.vectors[id]; exists {
		return fmt.Errorf("vector %s already exists", id)
	}
	idx.vectors[id] = vector
	return nil
}

// Size 索引大小
func (idx *FlatIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// ====== HNSW 索引 ======

// HNSWConfig HNSW 配置
type HNSWConfig struct {
	M              int     `json:"m" yaml:"m"`                             // 每层最大连接数（12-48）
	EfConstruction int     `json:"ef_construction" yaml:"ef_construction"` // 构建时搜索宽度（100-200）
	EfSearch       int     `json:"ef_search" yaml:"ef_search"`             // 搜索时宽度（50-200）
	MaxLevel       int     `json:"max_level" yaml:"max_level"`             // 最大层数
	Ml             float64 `json:"ml" yaml:"ml"`                           // 层数归一化因子
}

// DefaultHNSWConfig 默认 HNSW 配置
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{
		M:              16,
		EfConstruction: 200,
		EfSearch:       100,
		MaxLevel:       16,
		Ml:             1.0 / math.Log(2.0),
	}
}

// AdaptiveHNSWConfig 自适应 HNSW 配置（根据数据规模动态调整）
func AdaptiveHNSWConfig(dataSize int) HNSWConfig {
	config := DefaultHNSWConfig()

	switch {
	case dataSize < 10000:
		config.M = 12
		config.EfConstruction = 100
		config.EfSearch = 50
	case dataSize < 100000:
		config.M = 16
		config.EfConstruction = 200
		config.EfSearch = 100
	case dataSize < 1000000:
		config.M = 24
		config.EfConstruction = 300
		config.EfSearch = 150
	default:
		config.M = 32
		config.EfConstruction = 400
		config.EfSearch = 200
	}

	return config
}

// HNSWIndex HNSW 索引（Hierarchical Navigable Small World）
type HNSWIndex struct {
	config     HNSWConfig
	vectors    map[string][]float64
	graph      map[string]map[int][]string // id -> level -> neighbors
	entryPoint string
	maxLevel   int
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHNSWIndex 创建 HNSW 索引
func NewHNSWIndex(config HNSWConfig, logger *zap.Logger) *HNSWIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HNSWIndex{
		config:  config,
		vectors: make(map[string][]float64),
		graph:   make(map[string]map[int][]string),
		logger:  logger,
	}
}

// Build 构建 HNSW 索引
func (idx *HNSWIndex) Build(vectors [][]float64, ids []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(vectors) != len(ids) {
		return fmt.Errorf("vectors and ids length mismatch")
	}

	// M 为零表示参数未显式指定，按语料规模自适应
	if idx.config.M == 0 {
		idx.config = AdaptiveHNSWConfig(len(vectors))
	}

	idx.logger.Info("building HNSW index",
		zap.Int("vectors", len(vectors)),
		zap.Int("M", idx.config.M),
		zap.Int("ef_construction", idx.config.EfConstruction))

	for i, vec := range vectors {
		id := ids[i]
		idx.vectors[id] = vec

		level := idx.randomLevel()
		if level > idx.maxLevel {
			idx.maxLevel = level
		}

		idx.graph[id] = make(map[int][]string)
		for l := 0; l <= level; l++ {
			idx.graph[id][l] = []string{}
		}

		if idx.entryPoint == "" {
			idx.entryPoint = id
		} else {
			idx.insert(id, vec, level)
		}
	}

	idx.logger.Info("HNSW index built",
		zap.Int("size", len(idx.vectors)),
		zap.Int("max_level", idx.maxLevel))

	return nil
}

// Search 搜索最近邻
func (idx *HNSWIndex) Search(query []float64, k int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return []SearchResult{}, nil
	}

	ep := idx.entryPoint
	for level := idx.maxLevel; level > 0; level-- {
		ep = idx.searchLayer(query, ep, 1, level)[0]
	}

	candidates := idx.searchLayer(query, ep, idx.config.EfSearch, 0)

	results := make([]SearchResult, 0, k)
	for i := 0; i < len(candidates) && i < k; i++ {
		id := candidates[i]
		distance := idx.distance(query, idx.vectors[id])
		results = append(results, SearchResult{
			ID:       id,
			Distance: distance,
			Score:    1.0 - distance,
		})
	}

	// 距离相同按 ID 升序，保证同一索引状态下结果稳定
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results, nil
}

// Add 添加向量
func (idx *HNSWIndex) Add(vector []float64, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.vectors[id]; exists {
		return fmt.Errorf("vector %s already exists", id)
	}

	idx.vectors[id] = vector
	level := idx.randomLevel()

	if level > idx.maxLevel {
		idx.maxLevel = level
	}

	idx.graph[id] = make(map[int][]string)
	for l := 0; l <= level; l++ {
		idx.graph[id][l] = []string{}
	}

	if idx.entryPoint == "" {
		idx.entryPoint = id
	} else {
		idx.insert(id, vector, level)
	}

	return nil
}

// Size 索引大小
func (idx *HNSWIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// ====== HNSW 内部方法 ======

// insert 插入节点
func (idx *HNSWIndex) insert(id string, vector []float64, level int) {
	ep := idx.entryPoint
	for lc := idx.maxLevel; lc > level; lc-- {
		ep = idx.searchLayer(vector, ep, 1, lc)[0]
	}

	for lc := level; lc >= 0; lc-- {
		candidates := idx.searchLayer(vector, ep, idx.config.EfConstruction, lc)

		m := idx.config.M
		if lc == 0 {
			m = idx.config.M * 2
		}

		neighbors := idx.selectNeighbors(id, candidates, m)

		idx.graph[id][lc] = neighbors
		for _, nid := range neighbors {
			idx.graph[nid][lc] = append(idx.graph[nid][lc], id)

			if len(idx.graph[nid][lc]) > m {
				idx.graph[nid][lc] = idx.selectNeighbors(nid, idx.graph[nid][lc], m)
			}
		}

		if len(candidates) > 0 {
			ep = candidates[0]
		}
	}
}

// searchLayer 在指定层搜索
func (idx *HNSWIndex) searchLayer(query []float64, ep string, ef int, level int) []string {
	visited := make(map[string]bool)
	candidates := &minHeap{}
	w := &maxHeap{}

	dist := idx.distance(query, idx.vectors[ep])
	heap.Push(candidates, &heapItem{id: ep, dist: dist})
	heap.Push(w, &heapItem{id: ep, dist: dist})
	visited[ep] = true

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(*heapItem)

		if c.dist > (*w)[0].dist {
			break
		}

		for _, nid := range idx.graph[c.id][level] {
			if visited[nid] {
				continue
			}
			visited[nid] = true

			dist := idx.distance(query, idx.vectors[nid])

			if dist < (*w)[0].dist || w.Len() < ef {
				heap.Push(candidates, &heapItem{id: nid, dist: dist})
				heap.Push(w, &heapItem{id: nid, dist: dist})

				if w.Len() > ef {
					heap.Pop(w)
				}
			}
		}
	}

	result := make([]string, w.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(w).(*heapItem).id
	}

	return result
}

// selectNeighbors 选择邻居（取距离最近的 m 个）
func (idx *HNSWIndex) selectNeighbors(id string, candidates []string, m int) []string {
	if len(candidates) <= m {
		return candidates
	}

	type candidate struct {
		id   string
		dist float64
	}

	cands := make([]candidate, len(candidates))
	for i, cid := range candidates {
		cands[i] = candidate{
			id:   cid,
			dist: idx.distance(idx.vectors[id], idx.vectors[cid]),
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].id < cands[j].id
	})

	result := make([]string, m)
	for i := 0; i < m; i++ {
		result[i] = cands[i].id
	}

	return result
}

// randomLevel 随机生成层数
func (idx *HNSWIndex) randomLevel() int {
	level := 0
	for rand.Float64() < 0.5 && level < idx.config.MaxLevel {
		level++
	}
	return level
}

// distance 计算距离（余弦距离）
func (idx *HNSWIndex) distance(a, b []float64) float64 {
	return 1.0 - CosineSimilarity(a, b)
}

// ====== 堆实现 ======

type heapItem struct {
	id   string
	dist float64
}

type minHeap []*heapItem

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x any) {
	*h = append(*h, x.(*heapItem))
}

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

type maxHeap []*heapItem

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) {
	*h = append(*h, x.(*heapItem))
}

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
