package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tamyadav31/BOT-GPT/internal/config"
	"github.com/tamyadav31/BOT-GPT/internal/database"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"github.com/tamyadav31/BOT-GPT/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChunkStore 分块文本读取服务
// 按 (document_id, chunk_index) 读取分块文本，Redis作为读穿缓存，未启用时直接查库
type ChunkStore struct {
	db       *gorm.DB
	client   *redis.Client
	enabled  bool
	ttl      time.Duration
	hitStats *CacheHitStats
}

// CacheHitStats 缓存命中率统计
type CacheHitStats struct {
	hits   int64
	misses int64
	mu     sync.RWMutex
}

// NewChunkStore 创建分块文本读取服务
func NewChunkStore(db *gorm.DB) *ChunkStore {
	cfg := config.AppConfig

	ttl := time.Hour
	if cfg != nil && cfg.Redis.TTL > 0 {
		ttl = time.Duration(cfg.Redis.TTL) * time.Second
	}

	store := &ChunkStore{
		db:       db,
		ttl:      ttl,
		hitStats: &CacheHitStats{},
	}
	if cfg != nil && cfg.Redis.Enabled && database.RedisClient != nil {
		store.client = database.RedisClient
		store.enabled = true
	}
	return store
}

// GetChunkText 读取指定分块的文本
func (s *ChunkStore) GetChunkText(ctx context.Context, documentID uint, chunkIndex int) (string, error) {
	if s.enabled {
		key := s.chunkKey(documentID, chunkIndex)
		text, err := s.client.Get(ctx, key).Result()
		if err == nil {
			s.recordHit()
			return text, nil
		}
		if err != redis.Nil {
			logger.Warn("Redis chunk lookup failed, falling back to database",
				zap.Uint("document_id", documentID), zap.Error(err))
		}
		s.recordMiss()
	}

	var chunk models.DocumentChunk
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND chunk_index = ?", documentID, chunkIndex).
		First(&chunk).Error
	if err != nil {
		return "", fmt.Errorf("failed to load chunk %d of document %d: %w", chunkIndex, documentID, err)
	}

	if s.enabled {
		key := s.chunkKey(documentID, chunkIndex)
		if err := s.client.Set(ctx, key, chunk.Text, s.ttl).Err(); err != nil {
			logger.Warn("Failed to cache chunk text", zap.Error(err))
		}
	}

	return chunk.Text, nil
}

// DeleteDocumentChunks 删除文档的所有分块缓存
func (s *ChunkStore) DeleteDocumentChunks(ctx context.Context, documentID uint) error {
	if !s.enabled {
		return nil
	}

	pattern := fmt.Sprintf("chunk:%d:*", documentID)
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cached chunk", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	return iter.Err()
}

// chunkKey 生成分块Redis键
func (s *ChunkStore) chunkKey(documentID uint, chunkIndex int) string {
	return fmt.Sprintf("chunk:%d:%d", documentID, chunkIndex)
}

// recordHit 记录缓存命中
func (s *ChunkStore) recordHit() {
	s.hitStats.mu.Lock()
	s.hitStats.hits++
	s.hitStats.mu.Unlock()
}

// recordMiss 记录缓存未命中
func (s *ChunkStore) recordMiss() {
	s.hitStats.mu.Lock()
	s.hitStats.misses++
	s.hitStats.mu.Unlock()
}

// GetCacheStats 获取缓存统计信息
func (s *ChunkStore) GetCacheStats() (hits, misses int64, hitRate float64) {
	s.hitStats.mu.RLock()
	defer s.hitStats.mu.RUnlock()

	hits = s.hitStats.hits
	misses = s.hitStats.misses
	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return
}
