package repository

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lc2gh/internal/model"
	"lc2gh/pkg/redis"
)

const (
	envPostgresDSN = "LC2GH_TEST_POSTGRES_DSN"
	envMongoURI    = "LC2GH_TEST_MONGO_URI"
)

// newMiniredis 启动进程内 Redis，返回服务端与已连接的客户端
func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("parse miniredis port: %v", err)
	}
	client, err := redis.NewClient(&redis.Config{Host: mr.Host(), Port: port})
	if err != nil {
		t.Fatalf("redis.NewClient: %v", err)
	}
	return mr, client
}

func openRedisStore(t *testing.T) KVStore {
	t.Helper()
	_, client := newMiniredis(t)
	store := NewRedisKVStore(client, "lc2gh-test:")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func openPostgresStore(t *testing.T) KVStore {
	t.Helper()
	dsn := os.Getenv(envPostgresDSN)
	if dsn == "" {
		return nil
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	store, err := NewPostgresKVStore(db)
	if err != nil {
		t.Fatalf("NewPostgresKVStore: %v", err)
	}
	if err := db.Exec("DELETE FROM kv_state").Error; err != nil {
		t.Fatalf("reset kv_state: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func openMongoStore(t *testing.T) KVStore {
	t.Helper()
	uri := os.Getenv(envMongoURI)
	if uri == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect mongodb: %v", err)
	}
	collection := client.Database("lc2gh_test").Collection("session_" + uuid.NewString()[:8])
	store := NewMongoKVStore(collection, func(ctx context.Context) error {
		_ = collection.Drop(ctx)
		return client.Disconnect(ctx)
	})
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisKVStore_TokenTripleReplacedTogether(t *testing.T) {
	mr, client := newMiniredis(t)
	store := NewRedisKVStore(client, "lc2gh-test:")
	defer store.Close()
	ctx := context.Background()

	if err := store.Update(ctx, map[string]string{"jwt": "a", "refresh_token": "r1", "exp": "100"}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	// 所有字段在同一个哈希中
	if got := mr.HGet("lc2gh-test:session", "refresh_token"); got != "r1" {
		t.Fatalf("expected hash field written, got %q", got)
	}

	// 同一次更新里既写入又删除的键以写入为准
	if err := store.Update(ctx, map[string]string{"jwt": "b", "exp": "200"}, []string{"jwt", "refresh_token", "exp"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := store.Get(ctx, "jwt", "refresh_token", "exp")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["jwt"] != "b" || got["exp"] != "200" {
		t.Fatalf("unexpected values: %v", got)
	}
	if _, ok := got["refresh_token"]; ok {
		t.Fatal("expected refresh_token removed")
	}
}

func TestRedisKVStore_SessionRepository(t *testing.T) {
	_, client := newMiniredis(t)
	store := NewRedisKVStore(client, "lc2gh-test:")
	defer store.Close()
	repo := NewSessionRepository(store)
	ctx := context.Background()

	deviceID, err := repo.EnsureDeviceID(ctx)
	if err != nil {
		t.Fatalf("EnsureDeviceID: %v", err)
	}
	tokens := model.TokenSet{AccessToken: "jwt", RefreshToken: "refresh", ExpiresAt: 1700000000}
	if err := repo.SaveLink(ctx, tokens, "http://backend.test"); err != nil {
		t.Fatalf("SaveLink: %v", err)
	}
	if err := repo.ClearCredentials(ctx); err != nil {
		t.Fatalf("ClearCredentials: %v", err)
	}

	session, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if session.AccessToken != "" || session.RefreshToken != "" || session.ExpiresAt != 0 {
		t.Fatalf("expected credentials cleared, got %+v", session)
	}
	if session.DeviceID != deviceID || session.APIBase != "http://backend.test" {
		t.Fatalf("expected device id and api base kept, got %+v", session)
	}
}

func TestRedisDedupCache_MarkSeen(t *testing.T) {
	mr, client := newMiniredis(t)
	defer client.Close()
	cache := NewRedisDedupCache(client, "lc2gh-test:", time.Hour)
	ctx := context.Background()

	first, err := cache.MarkSeen(ctx, "fp-1")
	if err != nil || !first {
		t.Fatalf("expected first insert, got %v %v", first, err)
	}
	again, err := cache.MarkSeen(ctx, "fp-1")
	if err != nil || again {
		t.Fatalf("expected duplicate, got %v %v", again, err)
	}
	if ok, _ := cache.Contains(ctx, "fp-1"); !ok {
		t.Fatal("expected Contains true")
	}
	if ttl := mr.TTL("lc2gh-test:dedup:fp-1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestRedisDedupCache_Expires(t *testing.T) {
	mr, client := newMiniredis(t)
	defer client.Close()
	cache := NewRedisDedupCache(client, "lc2gh-test:", time.Minute)
	ctx := context.Background()

	_, _ = cache.MarkSeen(ctx, "fp")
	mr.FastForward(2 * time.Minute)

	if ok, _ := cache.Contains(ctx, "fp"); ok {
		t.Fatal("expected entry expired")
	}
	inserted, err := cache.MarkSeen(ctx, "fp")
	if err != nil || !inserted {
		t.Fatalf("expected expired fingerprint to be inserted again, got %v %v", inserted, err)
	}
}
