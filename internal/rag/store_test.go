package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStoreRoundTrip(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	payload := []byte("opaque index bytes")
	require.NoError(t, store.Put(ctx, 5, payload))

	got, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLocalBlobStoreMissing(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalBlobStoreOverwrite(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 1, []byte("first")))
	require.NoError(t, store.Put(ctx, 1, []byte("second")))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestLocalBlobStoreDelete(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 1, []byte("data")))
	require.NoError(t, store.Delete(ctx, 1))

	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	// 删除不存在的索引不是错误
	assert.NoError(t, store.Delete(ctx, 1))
}

func TestCacheSwap(t *testing.T) {
	cache := NewCache()

	first := &DocumentIndex{Dim: 2, ChunkIndexes: []int{0}, Vectors: [][]float32{{1, 2}}}
	second := &DocumentIndex{Dim: 2, ChunkIndexes: []int{0, 1}, Vectors: [][]float32{{1, 2}, {3, 4}}}

	cache.Put(1, first)
	got, ok := cache.Get(1)
	require.True(t, ok)
	assert.Same(t, first, got)

	cache.Put(1, second)
	got, ok = cache.Get(1)
	require.True(t, ok)
	assert.Same(t, second, got)

	cache.Remove(1)
	_, ok = cache.Get(1)
	assert.False(t, ok)

	cache.Put(2, first)
	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}
