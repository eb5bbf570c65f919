package repository

import (
	"context"

	"lc2gh/internal/model"
)

// DedupCache 已发送指纹的集合
type DedupCache interface {
	// MarkSeen 原子地检查并插入指纹，首次出现时返回 true
	MarkSeen(ctx context.Context, fp model.Fingerprint) (bool, error)

	// Contains 检查指纹是否已存在
	Contains(ctx context.Context, fp model.Fingerprint) (bool, error)
}
