package repository

import (
	"context"
	"errors"
)

// ErrStoreClosed 存储已关闭
var ErrStoreClosed = errors.New("kv store closed")

// KVStore 本地持久化的键值映射，对应扩展端的 chrome.storage.local
type KVStore interface {
	// Get 读取指定键，不存在的键不出现在结果中
	Get(ctx context.Context, keys ...string) (map[string]string, error)

	// Update 原子地写入 set 并删除 remove 中的键
	Update(ctx context.Context, set map[string]string, remove []string) error

	// SetIfAbsent 键不存在时写入 value，返回最终存储的值
	SetIfAbsent(ctx context.Context, key, value string) (string, error)

	// Close 释放底层连接
	Close() error
}
