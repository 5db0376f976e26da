package rag

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tamyadav31/BOT-GPT/internal/errors"
)

// wordEmbedder 确定性的词袋嵌入，用于离线测试
// 相同文本嵌入结果完全一致，词重叠越多的文本距离越近
type wordEmbedder struct {
	dim int
}

func newWordEmbedder() *wordEmbedder {
	return &wordEmbedder{dim: 64}
}

func (w *wordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, w.dim)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, word := range words {
			var h uint32 = 2166136261
			for _, c := range word {
				h ^= uint32(c)
				h *= 16777619
			}
			vec[h%uint32(w.dim)]++
		}
		// 归一化，使距离只反映词分布而非长度
		var norm float32
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			inv := 1 / sqrt32(norm)
			for j := range vec {
				vec[j] *= inv
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (w *wordEmbedder) Ready() bool { return true }

func sqrt32(x float32) float32 {
	// 牛顿迭代足够测试精度
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z = (z + x/z) / 2
	}
	return z
}

// failingEmbedder 总是失败的嵌入器
type failingEmbedder struct{}

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, apperrors.NewEmbedderError(stderrors.New("boom"))
}

func (f *failingEmbedder) Ready() bool { return false }

// mismatchEmbedder 返回数量不匹配的向量
type mismatchEmbedder struct{}

func (m *mismatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 2, 3}}, nil
}

func (m *mismatchEmbedder) Ready() bool { return true }

func newTestIndex(t *testing.T, embedder Embedder) *Index {
	t.Helper()
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	return NewIndex(embedder, store, NewCache())
}

func TestIndexBuildQueryRoundTrip(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	ctx := context.Background()

	chunks := []string{"alpha foo", "beta bar", "gamma baz"}
	require.NoError(t, idx.Build(ctx, 1, chunks))

	// 与某个分块完全相同的查询必须将该分块排在首位，距离为0
	matches, err := idx.Query(ctx, 1, "beta bar", 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 1, matches[0].ChunkIndex)
	assert.InDelta(t, 0, matches[0].Distance, 1e-5)

	// 距离升序
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i].Distance, matches[i-1].Distance)
	}
}

func TestIndexQueryNeverBuilt(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())

	matches, err := idx.Query(context.Background(), 42, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndexQueryKClamped(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, 1, []string{"one", "two"}))

	matches, err := idx.Query(ctx, 1, "one", 100)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestIndexQueryInvalidParameters(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	ctx := context.Background()

	tests := []struct {
		name  string
		docID uint
		query string
		k     int
	}{
		{"document_id为零", 0, "q", 3},
		{"空查询", 1, "   ", 3},
		{"k为零", 1, "q", 0},
		{"k为负", 1, "q", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := idx.Query(ctx, tt.docID, tt.query, tt.k)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidParameter))
		})
	}
}

func TestIndexBuildAllBlankChunks(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	ctx := context.Background()

	// 全空白分块：构建为no-op，之后的查询走"索引缺失"路径
	require.NoError(t, idx.Build(ctx, 7, []string{"", "   ", "\n"}))

	matches, err := idx.Query(ctx, 7, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndexBuildBlankChunksKeepOriginalIndexes(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	ctx := context.Background()

	// 下标1为空白：检索结果必须仍引用原始chunk_index
	require.NoError(t, idx.Build(ctx, 1, []string{"alpha foo", "   ", "gamma baz"}))

	matches, err := idx.Query(ctx, 1, "gamma baz", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].ChunkIndex)
}

func TestIndexBuildEmbedderFailure(t *testing.T) {
	idx := newTestIndex(t, &failingEmbedder{})

	err := idx.Build(context.Background(), 1, []string{"chunk"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexBuildFailed))
}

func TestIndexBuildCountMismatch(t *testing.T) {
	idx := newTestIndex(t, &mismatchEmbedder{})

	err := idx.Build(context.Background(), 1, []string{"a", "b", "c"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexBuildFailed))
}

func TestIndexPersistenceAcrossCaches(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalBlobStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	first := NewIndex(newWordEmbedder(), store, NewCache())
	require.NoError(t, first.Build(ctx, 1, []string{"alpha foo", "beta bar"}))

	// 新缓存模拟进程重启：必须从持久化存储加载
	second := NewIndex(newWordEmbedder(), store, NewCache())
	matches, err := second.Query(ctx, 1, "alpha foo", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].ChunkIndex)
}

func TestIndexMalformedBlob(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalBlobStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 1, []byte("not a gob payload")))

	idx := NewIndex(newWordEmbedder(), store, NewCache())
	_, err = idx.Query(ctx, 1, "anything", 3)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexError))
}

func TestIndexQueryDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalBlobStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	builder := NewIndex(&wordEmbedder{dim: 64}, store, NewCache())
	require.NoError(t, builder.Build(ctx, 1, []string{"alpha foo", "beta bar"}))

	// 构建与查询之间嵌入模型变更：维度不一致必须显式报错而非悄然截断
	querier := NewIndex(&wordEmbedder{dim: 32}, store, NewCache())
	_, err = querier.Query(ctx, 1, "alpha foo", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexError))
}

func TestIndexDelete(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, 1, []string{"alpha foo"}))
	require.NoError(t, idx.Delete(ctx, 1))

	matches, err := idx.Query(ctx, 1, "alpha foo", 1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndexConcurrentBuildsSameDocument(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	ctx := context.Background()

	setA := []string{"alpha one", "alpha two"}
	setB := []string{"beta one", "beta two", "beta three"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		chunks := setA
		if i%2 == 1 {
			chunks = setB
		}
		go func(c []string) {
			defer wg.Done()
			_ = idx.Build(ctx, 1, c)
		}(chunks)
	}
	wg.Wait()

	// 缓存必须持有两个构建结果之一的完整索引，绝不能是混合体
	cached, ok := idx.cache.Get(1)
	require.True(t, ok)
	assert.Contains(t, []int{2, 3}, cached.Len())
}

func TestIndexConcurrentQueryDuringBuild(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	ctx := context.Background()

	require.NoError(t, idx.Build(ctx, 1, []string{"alpha foo", "beta bar"}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				matches, err := idx.Query(ctx, 1, "alpha foo", 2)
				assert.NoError(t, err)
				assert.NotEmpty(t, matches)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			_ = idx.Build(ctx, 1, []string{"alpha foo", "beta bar"})
		}
	}()
	wg.Wait()
}

func TestIndexEndToEndScenario(t *testing.T) {
	// 文档分块、建索引、用自然语言查询，最相关的分块排在首位
	ctx := context.Background()

	chunks, err := Chunk("The sky is blue. Grass is green. Water is wet.", 20, 5)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	idx := newTestIndex(t, newWordEmbedder())
	require.NoError(t, idx.Build(ctx, 1, chunks))

	matches, err := idx.Query(ctx, 1, "What color is the sky?", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, chunks[matches[0].ChunkIndex], "sky is blue")
}
