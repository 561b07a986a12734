package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow/types"
)

// ChunkStore 块存储接口
type ChunkStore interface {
	// 添加块（追加式；重建通过 ClearAll + AddChunks）
	AddChunks(ctx context.Context, chunks []types.Chunk) error

	// 按 ID 获取块
	GetChunk(ctx context.Context, id string) (*types.Chunk, error)

	// 列出全部块（按 ID 升序，保证遍历顺序确定）
	ListChunks(ctx context.Context) ([]types.Chunk, error)

	// 获取块数量
	Count(ctx context.Context) (int, error)
}

// Clearable 支持清空全部数据的块存储可选接口，通过类型断言检测：
//
//	if c, ok := store.(Clearable); ok { c.ClearAll(ctx) }
type Clearable interface {
	ClearAll(ctx context.Context) error
}

// ====== 内存块存储（用于测试和小规模应用）======

// InMemoryChunkStore 内存块存储
type InMemoryChunkStore struct {
	chunks map[string]types.Chunk
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewInMemoryChunkStore 创建内存块存储
func NewInMemoryChunkStore(logger *zap.Logger) *InMemoryChunkStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryChunkStore{
		chunks: make(map[string]types.Chunk),
		logger: logger,
	}
}

// AddChunks 添加块
func (s *InMemoryChunkStore) AddChunks(ctx context.Context, chunks []types.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk has empty id")
		}
		if _, exists := s.chunks[chunk.ID]; exists {
			return fmt.Errorf("chunk %s already exists", chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}

	s.logger.Info("chunks added to store",
		zap.Int("count", len(chunks)),
		zap.Int("total", len(s.chunks)))

	return nil
}

// GetChunk 按 ID 获取块
func (s *InMemoryChunkStore) GetChunk(ctx context.Context, id string) (*types.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s not found", id)
	}
	return &chunk, nil
}

// ListChunks 列出全部块，按 ID 升序
func (s *InMemoryChunkStore) ListChunks(ctx context.Context) ([]types.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	chunks := make([]types.Chunk, 0, len(ids))
	for _, id := range ids {
		chunks = append(chunks, s.chunks[id])
	}
	return chunks, nil
}

// Count 返回块数量
func (s *InMemoryChunkStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// ClearAll 清空内存存储中的全部块
func (s *InMemoryChunkStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]types.Chunk)
	s.logger.Info("all chunks cleared from store")
	return nil
}
