package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// sqliteKVStore 默认的本地 SQLite 实现
type sqliteKVStore struct {
	db *sql.DB
}

// NewSQLiteKVStore 创建 SQLite 键值存储，db 需已建好 kv_state 表
func NewSQLiteKVStore(db *sql.DB) KVStore {
	return &sqliteKVStore{db: db}
}

// Get 读取指定键
func (s *sqliteKVStore) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv_state WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query kv state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan kv state: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv state: %w", err)
	}
	return result, nil
}

// Update 在一个事务里写入与删除
func (s *sqliteKVStore) Update(ctx context.Context, set map[string]string, remove []string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		for key, value := range set {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, value, now,
			); err != nil {
				return fmt.Errorf("failed to upsert %s: %w", key, err)
			}
		}
		for _, key := range remove {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv_state WHERE key = ?`, key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// SetIfAbsent 键不存在时写入
func (s *sqliteKVStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	var stored string
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO NOTHING`,
			key, value, time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to insert %s: %w", key, err)
		}
		return tx.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&stored)
	})
	if err != nil {
		return "", err
	}
	return stored, nil
}

// Close 关闭数据库
func (s *sqliteKVStore) Close() error {
	return s.db.Close()
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
