package boot

import (
	"fmt"

	"lc2gh/internal/repository"
	"lc2gh/pkg/config"
	"lc2gh/pkg/database"
	"lc2gh/pkg/logger"
	"lc2gh/pkg/redis"
)

// Storage 凭证存储与可选的 Redis 连接
type Storage struct {
	Driver string
	KV     repository.KVStore
	Redis  *redis.Client
}

// Close 释放连接
func (s *Storage) Close() {
	if s.KV != nil {
		if err := s.KV.Close(); err != nil {
			logger.Warn("failed to close kv store: %v", err)
		}
	}
	// Redis KV 的 Close 已经关闭了同一个客户端
	if s.Redis != nil && (s.KV == nil || s.Driver != "redis") {
		_ = s.Redis.Close()
	}
}

// InitStorage 按 storage.driver 初始化凭证存储
func InitStorage(cfg *config.Config) (*Storage, error) {
	storage := &Storage{Driver: cfg.Storage.Driver}

	if cfg.Storage.Driver == "redis" || cfg.Dedup.Backend == "redis" {
		client, err := InitRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		storage.Redis = client
	}

	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("memory storage selected, credentials are lost on restart")
		storage.KV = repository.NewMemoryKVStore()
	case "sqlite":
		db, err := database.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			storage.Close()
			return nil, err
		}
		storage.KV = repository.NewSQLiteKVStore(db)
	case "postgres":
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			storage.Close()
			return nil, err
		}
		kv, err := repository.NewPostgresKVStore(db)
		if err != nil {
			storage.Close()
			return nil, err
		}
		storage.KV = kv
	case "mongodb":
		mongo, err := InitMongo(&cfg.MongoDB)
		if err != nil {
			storage.Close()
			return nil, err
		}
		storage.KV = repository.NewMongoKVStore(mongo.Collection(cfg.MongoDB.Collection), mongo.Close)
	case "redis":
		storage.KV = repository.NewRedisKVStore(storage.Redis, cfg.Storage.KeyPrefix)
	default:
		storage.Close()
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Storage.Driver)
	}

	logger.Info("credential store started driver=%s", cfg.Storage.Driver)
	return storage, nil
}

// InitMongo 初始化 MongoDB 连接
func InitMongo(cfg *config.MongoDBConfig) (*database.MongoClient, error) {
	mongoConfig := &database.MongoDBConfig{
		URI:         cfg.URI,
		Database:    cfg.Database,
		MaxPoolSize: cfg.MaxPoolSize,
		MinPoolSize: cfg.MinPoolSize,
	}
	return database.NewMongoClient(mongoConfig)
}

// InitRedis 初始化 Redis 客户端
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	return redis.NewClient(&redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
