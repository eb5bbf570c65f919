package repository

import (
	"context"
	"sync"
)

// memoryKVStore 进程内实现，重启后丢失
type memoryKVStore struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemoryKVStore 创建内存键值存储
func NewMemoryKVStore() KVStore {
	return &memoryKVStore{data: make(map[string]string)}
}

// Get 读取指定键
func (s *memoryKVStore) Get(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := s.data[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

// Update 原子写入与删除
func (s *memoryKVStore) Update(_ context.Context, set map[string]string, remove []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	for key, value := range set {
		s.data[key] = value
	}
	for _, key := range remove {
		delete(s.data, key)
	}
	return nil
}

// SetIfAbsent 键不存在时写入
func (s *memoryKVStore) SetIfAbsent(_ context.Context, key, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrStoreClosed
	}

	if existing, ok := s.data[key]; ok {
		return existing, nil
	}
	s.data[key] = value
	return value, nil
}

// Close 关闭存储
func (s *memoryKVStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
