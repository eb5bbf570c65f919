package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry PostgreSQL 中的一条键值记录
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 返回表名
func (KVEntry) TableName() string {
	return "kv_state"
}

// postgresKVStore 基于 gorm 的 PostgreSQL 实现
type postgresKVStore struct {
	db *gorm.DB
}

// NewPostgresKVStore 创建 PostgreSQL 键值存储并迁移表结构
func NewPostgresKVStore(db *gorm.DB) (KVStore, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_state: %w", err)
	}
	return &postgresKVStore{db: db}, nil
}

// Get 读取指定键
func (s *postgresKVStore) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	var entries []KVEntry
	if err := s.db.WithContext(ctx).Where("key IN ?", keys).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to query kv state: %w", err)
	}
	for _, entry := range entries {
		result[entry.Key] = entry.Value
	}
	return result, nil
}

// Update 在一个事务里写入与删除
func (s *postgresKVStore) Update(ctx context.Context, set map[string]string, remove []string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range set {
			entry := KVEntry{Key: key, Value: value, UpdatedAt: now}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to upsert %s: %w", key, err)
			}
		}
		if len(remove) > 0 {
			if err := tx.Where("key IN ?", remove).Delete(&KVEntry{}).Error; err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}
		return nil
	})
}

// SetIfAbsent 键不存在时写入
func (s *postgresKVStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	var stored KVEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to insert %s: %w", key, err)
		}
		return tx.Where("key = ?", key).First(&stored).Error
	})
	if err != nil {
		return "", err
	}
	return stored.Value, nil
}

// Close 关闭底层连接
func (s *postgresKVStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
