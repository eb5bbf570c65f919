package repository

import (
	"context"
	"fmt"

	"lc2gh/pkg/redis"
)

// redisKVStore 把所有键存到一个 Redis 哈希里
type redisKVStore struct {
	client *redis.Client
	key    string
}

// NewRedisKVStore 创建 Redis 键值存储
func NewRedisKVStore(client *redis.Client, prefix string) KVStore {
	return &redisKVStore{client: client, key: prefix + "session"}
}

// Get 读取指定键
func (s *redisKVStore) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	all, err := s.client.HGetAll(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session hash: %w", err)
	}

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := all[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

// Update 在 MULTI/EXEC 中写入与删除
func (s *redisKVStore) Update(ctx context.Context, set map[string]string, remove []string) error {
	del := make([]string, 0, len(remove))
	for _, key := range remove {
		if _, overwritten := set[key]; !overwritten {
			del = append(del, key)
		}
	}
	if err := s.client.HUpdate(ctx, s.key, set, del); err != nil {
		return fmt.Errorf("failed to update session hash: %w", err)
	}
	return nil
}

// SetIfAbsent 键不存在时写入
func (s *redisKVStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	if _, err := s.client.HSetNX(ctx, s.key, key, value); err != nil {
		return "", fmt.Errorf("failed to set %s: %w", key, err)
	}
	stored, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return stored[key], nil
}

// Close 关闭连接
func (s *redisKVStore) Close() error {
	return s.client.Close()
}
