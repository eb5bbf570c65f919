package boot

import (
	"lc2gh/internal/repository"
	"lc2gh/pkg/config"
)

// Repositories 包含所有仓储实例
type Repositories struct {
	SessionRepo repository.SessionRepository
	DedupCache  repository.DedupCache
}

// InitRepositories 初始化所有仓储实例
func InitRepositories(cfg *config.Config, storage *Storage) *Repositories {
	var dedup repository.DedupCache
	switch cfg.Dedup.Backend {
	case "redis":
		dedup = repository.NewRedisDedupCache(storage.Redis, cfg.Storage.KeyPrefix, cfg.Dedup.TTL)
	default:
		dedup = repository.NewMemoryDedupCache(cfg.Dedup.MaxEntries, cfg.Dedup.TTL)
	}

	return &Repositories{
		SessionRepo: repository.NewSessionRepository(storage.KV),
		DedupCache:  dedup,
	}
}
