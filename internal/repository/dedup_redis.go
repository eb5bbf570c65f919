package repository

import (
	"context"
	"fmt"
	"time"

	"lc2gh/internal/model"
	"lc2gh/pkg/redis"
)

// redisDedupCache 用 SETNX 做原子的检查并插入，重启后仍然有效
type redisDedupCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDedupCache 创建 Redis 去重缓存
func NewRedisDedupCache(client *redis.Client, prefix string, ttl time.Duration) DedupCache {
	return &redisDedupCache{client: client, prefix: prefix + "dedup:", ttl: ttl}
}

// MarkSeen 检查并插入
func (c *redisDedupCache) MarkSeen(ctx context.Context, fp model.Fingerprint) (bool, error) {
	inserted, err := c.client.SetNX(ctx, c.prefix+string(fp), time.Now().Unix(), c.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to mark fingerprint: %w", err)
	}
	return inserted, nil
}

// Contains 检查指纹
func (c *redisDedupCache) Contains(ctx context.Context, fp model.Fingerprint) (bool, error) {
	exists, err := c.client.Exists(ctx, c.prefix+string(fp))
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return exists, nil
}
