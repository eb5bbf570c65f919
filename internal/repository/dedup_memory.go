package repository

import (
	"container/list"
	"context"
	"sync"
	"time"

	"lc2gh/internal/model"
)

type dedupEntry struct {
	fp     model.Fingerprint
	seenAt time.Time
}

// memoryDedupCache 有上限的 LRU，条目超过 TTL 后视为不存在
type memoryDedupCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	order      *list.List
	index      map[model.Fingerprint]*list.Element
	now        func() time.Time
}

// NewMemoryDedupCache 创建内存去重缓存，maxEntries<=0 表示不限，ttl<=0 表示永不过期
func NewMemoryDedupCache(maxEntries int, ttl time.Duration) DedupCache {
	return newMemoryDedupCache(maxEntries, ttl, time.Now)
}

func newMemoryDedupCache(maxEntries int, ttl time.Duration, now func() time.Time) *memoryDedupCache {
	return &memoryDedupCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		order:      list.New(),
		index:      make(map[model.Fingerprint]*list.Element),
		now:        now,
	}
}

// MarkSeen 检查并插入
func (c *memoryDedupCache) MarkSeen(_ context.Context, fp model.Fingerprint) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.index[fp]; ok {
		entry := elem.Value.(*dedupEntry)
		if !c.expired(entry, now) {
			c.order.MoveToFront(elem)
			return false, nil
		}
		entry.seenAt = now
		c.order.MoveToFront(elem)
		return true, nil
	}

	c.index[fp] = c.order.PushFront(&dedupEntry{fp: fp, seenAt: now})
	if c.maxEntries > 0 {
		for c.order.Len() > c.maxEntries {
			oldest := c.order.Back()
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(*dedupEntry).fp)
		}
	}
	return true, nil
}

// Contains 检查指纹
func (c *memoryDedupCache) Contains(_ context.Context, fp model.Fingerprint) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[fp]
	if !ok {
		return false, nil
	}
	return !c.expired(elem.Value.(*dedupEntry), c.now()), nil
}

func (c *memoryDedupCache) expired(entry *dedupEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.seenAt) >= c.ttl
}
