package rag

import (
	"sync"
)

// Cache 进程级索引缓存：documentID -> 内存中的DocumentIndex
// 显式注入而非全局单例。支持并发读，构建时整体替换（swap），
// 并发查询绝不会观察到半成品索引。无淘汰策略；跨进程重建后的
// 陈旧性是已接受的限制，仅能通过 Clear 或进程重启消除。
type Cache struct {
	mu      sync.RWMutex
	entries map[uint]*DocumentIndex
}

// NewCache 创建索引缓存
func NewCache() *Cache {
	return &Cache{
		entries: make(map[uint]*DocumentIndex),
	}
}

// Get 读取缓存条目
func (c *Cache) Get(documentID uint) (*DocumentIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.entries[documentID]
	return idx, ok
}

// Put 替换缓存条目（整体swap）
func (c *Cache) Put(documentID uint, idx *DocumentIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[documentID] = idx
}

// Remove 删除缓存条目
func (c *Cache) Remove(documentID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, documentID)
}

// Clear 清空缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint]*DocumentIndex)
}

// Len 返回缓存条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
