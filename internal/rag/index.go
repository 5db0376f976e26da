package rag

import (
	"bytes"
	"context"
	"encoding/gob"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tamyadav31/BOT-GPT/internal/errors"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"github.com/tamyadav31/BOT-GPT/internal/metrics"
	"go.uber.org/zap"
)

// DocumentIndex 单个文档的平坦最近邻索引
// 每个向量对应文档的一个非空分块，ChunkIndexes 记录向量位置到
// 原始 chunk_index 的映射。构建后不可变，重建时整体替换。
type DocumentIndex struct {
	Dim          int
	ChunkIndexes []int
	Vectors      [][]float32
}

// Len 返回索引中的向量数
func (d *DocumentIndex) Len() int {
	return len(d.Vectors)
}

// Search 精确最近邻检索，返回按平方欧氏距离升序的前k个结果
// k 超过索引基数时自动收敛到基数
func (d *DocumentIndex) Search(query []float32, k int) []Match {
	if d.Len() == 0 || k <= 0 {
		return nil
	}
	if k > d.Len() {
		k = d.Len()
	}

	matches := make([]Match, d.Len())
	for i, vec := range d.Vectors {
		matches[i] = Match{
			ChunkIndex: d.ChunkIndexes[i],
			Distance:   squaredL2(query, vec),
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ChunkIndex < matches[j].ChunkIndex
	})
	return matches[:k]
}

// Match 检索结果
type Match struct {
	ChunkIndex int     `json:"chunk_index"`
	Distance   float32 `json:"distance"`
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// encodeIndex 序列化索引为不透明字节块
func encodeIndex(idx *DocumentIndex) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(idx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeIndex 反序列化索引，数据损坏时报错
func decodeIndex(data []byte) (*DocumentIndex, error) {
	var idx DocumentIndex
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&idx); err != nil {
		return nil, err
	}
	if len(idx.ChunkIndexes) != len(idx.Vectors) {
		return nil, fmt.Errorf("index corrupt: %d chunk indexes for %d vectors",
			len(idx.ChunkIndexes), len(idx.Vectors))
	}
	return &idx, nil
}

// Index 文档级向量索引服务
// 构建时嵌入所有非空分块并持久化，查询时精确扫描最近邻。
// 缓存加载每进程每文档至多一次，除非显式Clear。
type Index struct {
	embedder Embedder
	store    BlobStore
	cache    *Cache
	loadMu   sync.Mutex
}

// NewIndex 创建索引服务
func NewIndex(embedder Embedder, store BlobStore, cache *Cache) *Index {
	if cache == nil {
		cache = NewCache()
	}
	return &Index{
		embedder: embedder,
		store:    store,
		cache:    cache,
	}
}

// Build 为文档构建索引并持久化，同时装入缓存（整体替换旧条目）
// 空白分块先被过滤；全部为空时构建退化为no-op，不留下索引，
// 后续查询返回空结果。嵌入数量不匹配视为该文档的构建失败，
// 文档分块本身保持有效，仅检索降级。
func (x *Index) Build(ctx context.Context, documentID uint, chunks []string) error {
	if documentID == 0 {
		return errors.NewInvalidParameterError("document_id", "must be positive")
	}

	var texts []string
	var chunkIndexes []int
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		texts = append(texts, c)
		chunkIndexes = append(chunkIndexes, i)
	}
	if len(texts) == 0 {
		logger.Warn("no non-blank chunks to index", zap.Uint("document_id", documentID))
		return nil
	}

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		metrics.IndexBuilds.WithLabelValues("error").Inc()
		return errors.NewIndexBuildError(documentID, err)
	}
	if len(vectors) != len(texts) {
		metrics.IndexBuilds.WithLabelValues("error").Inc()
		return errors.NewIndexBuildError(documentID,
			fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(vectors), len(texts)))
	}

	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			metrics.IndexBuilds.WithLabelValues("error").Inc()
			return errors.NewIndexBuildError(documentID,
				fmt.Errorf("non-uniform embedding dimensions: %d vs %d", len(v), dim))
		}
	}

	idx := &DocumentIndex{
		Dim:          dim,
		ChunkIndexes: chunkIndexes,
		Vectors:      vectors,
	}

	data, err := encodeIndex(idx)
	if err != nil {
		metrics.IndexBuilds.WithLabelValues("error").Inc()
		return errors.NewIndexBuildError(documentID, err)
	}
	if err := x.store.Put(ctx, documentID, data); err != nil {
		metrics.IndexBuilds.WithLabelValues("error").Inc()
		return errors.NewIndexBuildError(documentID, err)
	}

	x.cache.Put(documentID, idx)
	metrics.IndexBuilds.WithLabelValues("ok").Inc()
	logger.Info("built document index",
		zap.Uint("document_id", documentID),
		zap.Int("vectors", idx.Len()),
		zap.Int("dim", dim))
	return nil
}

// Query 检索与查询文本最相近的k个分块
// 索引不存在（从未构建或构建退化为空）返回空结果且无错误；
// 持久化数据损坏或嵌入失败返回IndexError。
func (x *Index) Query(ctx context.Context, documentID uint, queryText string, k int) ([]Match, error) {
	if documentID == 0 {
		return nil, errors.NewInvalidParameterError("document_id", "must be positive")
	}
	if strings.TrimSpace(queryText) == "" {
		return nil, errors.NewInvalidParameterError("query_text", "cannot be blank")
	}
	if k <= 0 {
		return nil, errors.NewInvalidParameterError("k", "must be positive")
	}

	idx, err := x.load(ctx, documentID)
	if err != nil {
		metrics.IndexQueries.WithLabelValues("error").Inc()
		return nil, err
	}
	if idx == nil {
		// 索引缺失是正常的静默路径："无上下文可用"
		return nil, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{strings.TrimSpace(queryText)})
	if err != nil {
		metrics.IndexQueries.WithLabelValues("error").Inc()
		return nil, errors.NewIndexError("failed to embed query", err)
	}
	if len(vectors) != 1 {
		metrics.IndexQueries.WithLabelValues("error").Inc()
		return nil, errors.NewIndexError("embedder returned unexpected vector count", nil)
	}
	// 维度不一致说明构建与查询使用了不同的嵌入模型，
	// 截断比较会产生悄然错误的距离，必须显式报错
	if len(vectors[0]) != idx.Dim {
		metrics.IndexQueries.WithLabelValues("error").Inc()
		return nil, errors.NewIndexError(
			fmt.Sprintf("query vector dimension %d does not match index dimension %d", len(vectors[0]), idx.Dim), nil)
	}

	metrics.IndexQueries.WithLabelValues("ok").Inc()
	return idx.Search(vectors[0], k), nil
}

// load 从缓存或持久化存储加载索引
// 返回 (nil, nil) 表示索引不存在
func (x *Index) load(ctx context.Context, documentID uint) (*DocumentIndex, error) {
	if idx, ok := x.cache.Get(documentID); ok {
		return idx, nil
	}

	// 串行化加载路径，保证每进程每文档至多从存储加载一次
	x.loadMu.Lock()
	defer x.loadMu.Unlock()

	if idx, ok := x.cache.Get(documentID); ok {
		return idx, nil
	}

	data, err := x.store.Get(ctx, documentID)
	if err != nil {
		if stderrors.Is(err, ErrBlobNotFound) {
			return nil, nil
		}
		return nil, errors.NewIndexError("failed to read persisted index", err)
	}

	idx, err := decodeIndex(data)
	if err != nil {
		return nil, errors.NewIndexError("persisted index is malformed", err)
	}

	x.cache.Put(documentID, idx)
	logger.Debug("loaded document index from storage", zap.Uint("document_id", documentID))
	return idx, nil
}

// Delete 删除文档的持久化索引及缓存条目
func (x *Index) Delete(ctx context.Context, documentID uint) error {
	if documentID == 0 {
		return errors.NewInvalidParameterError("document_id", "must be positive")
	}
	x.cache.Remove(documentID)
	return x.store.Delete(ctx, documentID)
}

// ClearCache 清空索引缓存
func (x *Index) ClearCache() {
	x.cache.Clear()
}
